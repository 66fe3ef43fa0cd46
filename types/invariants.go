package types

import (
	"encoding/json"
	"log/slog"
	"os"
	"path"
	"sort"
	"strconv"
)

// InvariantDesc is a property every trace should satisfy.
// Check returns false and the offending step when the trace violates it.
type InvariantDesc struct {
	Name  string
	Check func(*Trace) (bool, int)
}

// Violation of an invariant in one episode
type Violation struct {
	Invariant string `json:"invariant"`
	Episode   int    `json:"episode"`
	Step      int    `json:"step"`
}

// InvariantDataSet lists the violations found in the analyzed episodes
type InvariantDataSet struct {
	Episodes   int         `json:"episodes"`
	Violations []Violation `json:"violations"`
}

// FirstViolations maps every violated invariant to the first episode violating it
func (d *InvariantDataSet) FirstViolations() map[string]int {
	first := make(map[string]int)
	for _, v := range d.Violations {
		if e, ok := first[v.Invariant]; !ok || v.Episode < e {
			first[v.Invariant] = v.Episode
		}
	}
	return first
}

// InvariantAnalyzer checks the invariants on every episode
// and records the violating traces under savePath
type InvariantAnalyzer struct {
	savePath   string
	invariants []InvariantDesc
	dataSet    *InvariantDataSet
	logger     *slog.Logger
}

var _ Analyzer = &InvariantAnalyzer{}

func NewInvariantAnalyzer(savePath string, logger *slog.Logger, invariants ...InvariantDesc) *InvariantAnalyzer {
	if err := os.MkdirAll(savePath, 0777); err != nil {
		logger.Warn("could not create invariants folder", "path", savePath, "error", err)
	}
	a := &InvariantAnalyzer{
		savePath:   savePath,
		invariants: invariants,
		logger:     logger,
	}
	a.Reset()
	return a
}

func (a *InvariantAnalyzer) Analyze(run int, exp string, eCtx *EpisodeContext) {
	episode := a.dataSet.Episodes
	a.dataSet.Episodes += 1
	for _, inv := range a.invariants {
		ok, step := inv.Check(eCtx.Trace)
		if ok {
			continue
		}
		a.dataSet.Violations = append(a.dataSet.Violations, Violation{
			Invariant: inv.Name,
			Episode:   episode,
			Step:      step,
		})
		tracePath := path.Join(a.savePath, strconv.Itoa(run)+"_"+exp+"_"+inv.Name+"_"+strconv.Itoa(episode)+"_step"+strconv.Itoa(step)+".json")
		bs, err := json.Marshal(eCtx.Trace)
		if err == nil {
			err = os.WriteFile(tracePath, bs, 0644)
		}
		if err != nil {
			a.logger.Warn("could not record violating trace", "invariant", inv.Name, "error", err)
		}
	}
}

func (a *InvariantAnalyzer) DataSet() DataSet {
	return a.dataSet
}

func (a *InvariantAnalyzer) Reset() {
	a.dataSet = &InvariantDataSet{
		Violations: make([]Violation, 0),
	}
}

// InvariantComparator logs the first violation of every invariant per experiment
// and writes all of them to <run>_violations.json
func InvariantComparator(savePath string, logger *slog.Logger) Comparator {
	return func(run int, names []string, ds []DataSet) {
		data := make(map[string]*InvariantDataSet)
		for i, exp := range names {
			dataSet, ok := ds[i].(*InvariantDataSet)
			if !ok {
				continue
			}
			data[exp] = dataSet
			first := dataSet.FirstViolations()
			if len(first) == 0 {
				logger.Debug("no invariant violated", "run", run+1, "experiment", exp, "episodes", dataSet.Episodes)
				continue
			}
			invariants := make([]string, 0, len(first))
			for name := range first {
				invariants = append(invariants, name)
			}
			sort.Strings(invariants)
			for _, name := range invariants {
				logger.Warn("invariant violated", "run", run+1, "experiment", exp, "invariant", name, "first_episode", first[name])
			}
		}

		bs, err := json.Marshal(data)
		if err != nil {
			return
		}
		if err := os.WriteFile(path.Join(savePath, strconv.Itoa(run)+"_violations.json"), bs, 0644); err != nil {
			logger.Warn("could not record violations", "error", err)
		}
	}
}
