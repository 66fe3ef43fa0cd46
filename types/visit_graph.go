package types

import (
	"bufio"
	"encoding/json"
	"os"
)

// VisitGraph records the transitions observed between states,
// keyed by state hash
type VisitGraph struct {
	Nodes map[string]*Node `json:"nodes"`
}

func NewVisitGraph() *VisitGraph {
	return &VisitGraph{
		Nodes: make(map[string]*Node),
	}
}

// Update adds the transition, returns true if the from state was new
func (v *VisitGraph) Update(from NodeState, action string, to NodeState) bool {
	fromKey := from.Hash()
	toKey := to.Hash()
	new := false
	if _, ok := v.Nodes[fromKey]; !ok {
		v.Nodes[fromKey] = NewNode(from)
		new = true
	}
	if _, ok := v.Nodes[toKey]; !ok {
		v.Nodes[toKey] = NewNode(to)
	}
	v.Nodes[fromKey].Visits += 1
	v.Nodes[fromKey].AddNext(action, toKey)
	v.Nodes[toKey].AddPrev(action, fromKey)
	return new
}

// Merge adds the visits and edges of other into v
func (v *VisitGraph) Merge(other *VisitGraph) {
	for k, n := range other.Nodes {
		cur, ok := v.Nodes[k]
		if !ok {
			cur = &Node{
				Key:  k,
				Next: make(map[string]map[string]bool),
				Prev: make(map[string]map[string]bool),
			}
			v.Nodes[k] = cur
		}
		cur.Visits += n.Visits
		for a, nexts := range n.Next {
			for next := range nexts {
				cur.AddNext(a, next)
			}
		}
		for a, prevs := range n.Prev {
			for prev := range prevs {
				cur.AddPrev(a, prev)
			}
		}
	}
}

func (v *VisitGraph) Record(filePath string) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := bufio.NewWriter(file)
	if _, err := writer.Write(bs); err != nil {
		return err
	}
	return writer.Flush()
}

type NodeState interface {
	Hash() string
}

type Node struct {
	Key    string `json:"key"`
	Visits int    `json:"visits"`
	// Next, Prev: Each action can lead to many states
	Next map[string]map[string]bool `json:"next"`
	Prev map[string]map[string]bool `json:"prev"`
}

func NewNode(s NodeState) *Node {
	return &Node{
		Key:    s.Hash(),
		Visits: 0,
		Next:   make(map[string]map[string]bool),
		Prev:   make(map[string]map[string]bool),
	}
}

func (n *Node) AddPrev(a, prev string) {
	if _, ok := n.Prev[a]; !ok {
		n.Prev[a] = make(map[string]bool)
	}
	n.Prev[a][prev] = true
}

func (n *Node) AddNext(a, next string) {
	if _, ok := n.Next[a]; !ok {
		n.Next[a] = make(map[string]bool)
	}
	n.Next[a][next] = true
}
