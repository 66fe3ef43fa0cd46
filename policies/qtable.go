package policies

import (
	"encoding/json"
	"math"
	"os"
	"sort"
)

// QTable maps state hash -> action hash -> value
type QTable struct {
	table map[string]map[string]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
	}
}

// Get returns the stored value, def if the pair was never set
func (q *QTable) Get(state, action string, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		return def
	}
	if val, ok := q.table[state][action]; ok {
		return val
	}
	return def
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

// Max over the actions stored for the state, def if none is stored
func (q *QTable) Max(state string, def float64) (string, float64) {
	if _, ok := q.table[state]; !ok {
		return "", def
	}
	actions := make([]string, 0, len(q.table[state]))
	for a := range q.table[state] {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return q.MaxAmong(state, actions, def)
}

// MaxAmong the given actions, unknown actions count as def
// Ties are broken by the order of actions
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	if len(actions) == 0 {
		return "", def
	}
	maxAction := ""
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

// Values stored for the state, a copy
func (q *QTable) Values(state string) map[string]float64 {
	out := make(map[string]float64)
	for a, v := range q.table[state] {
		out[a] = v
	}
	return out
}

func (q *QTable) Len() int {
	return len(q.table)
}

// Record writes the table as JSON to path
func (q *QTable) Record(path string) error {
	bs, err := json.MarshalIndent(q.table, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0644)
}
