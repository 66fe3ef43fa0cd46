package chain

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/zeu5/chain-rl/types"
)

// QValuesController logs the learnt value of every position and move
// once training is over
type QValuesController struct {
	types.BaseController
	nStates int
	step    float64
	logger  *slog.Logger

	// Values of the last run, position hash -> move -> value
	Values map[string]map[string]float64
}

func NewQValuesController(nStates int, step float64, logger *slog.Logger) *QValuesController {
	return &QValuesController{
		nStates: nStates,
		step:    step,
		logger:  logger,
		Values:  make(map[string]map[string]float64),
	}
}

func (q *QValuesController) OnEnd(a *types.Agent) {
	valuer, ok := a.Policy().(types.QValuer)
	if !ok {
		return
	}
	q.Values = make(map[string]map[string]float64)
	for _, s := range PositionStates(q.nStates, q.step) {
		values := valuer.QValues(s)
		q.Values[s.Hash()] = values
	}
	for _, s := range PositionStates(q.nStates, q.step) {
		best, _ := q.Best(s.Hash())
		q.logger.Info("found q values", "position", s.Hash(), "values", formatValues(q.Values[s.Hash()]), "best", best)
	}
}

// Best returns the move with the highest value at the position
func (q *QValuesController) Best(position string) (string, bool) {
	values, ok := q.Values[position]
	if !ok || len(values) == 0 {
		return "", false
	}
	best := ""
	for _, m := range AllMoves {
		v, ok := values[m.Hash()]
		if !ok {
			continue
		}
		if best == "" || v > values[best] {
			best = m.Hash()
		}
	}
	return best, best != ""
}

func formatValues(values map[string]float64) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4f", k, values[k])
	}
	return strings.Join(parts, " ")
}
