package policies

import (
	"math"

	"github.com/zeu5/chain-rl/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SoftMaxPolicy learns with the Q-learning rule and explores by sampling
// actions proportionally to exp(Q/temperature)
type SoftMaxPolicy struct {
	*QLearningPolicy
	temperature float64
	rand        rand.Source
}

var _ types.Policy = &SoftMaxPolicy{}

func NewSoftMaxPolicy(config QLearningConfig, temperature float64) *SoftMaxPolicy {
	q := NewQLearningPolicy(config)
	if temperature <= 0 {
		temperature = 1
	}
	return &SoftMaxPolicy{
		QLearningPolicy: q,
		temperature:     temperature,
		rand:            rand.NewSource(q.seed + 1),
	}
}

func (s *SoftMaxPolicy) Params() map[string]float64 {
	params := s.QLearningPolicy.Params()
	delete(params, "epsilon")
	params["temperature"] = s.temperature
	return params
}

func (s *SoftMaxPolicy) Reset() {
	s.QLearningPolicy.Reset()
	s.rand.Seed(s.seed + 1)
}

func (s *SoftMaxPolicy) NextAction(sCtx *types.StepContext, state types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	if !sCtx.Mode.Training() {
		return s.greedy(state, actions)
	}
	stateHash := state.Hash()

	vals := make([]float64, len(actions))
	maxVal := math.Inf(-1)
	for i, action := range actions {
		vals[i] = s.qTable.Get(stateHash, action.Hash(), s.config.InitialValue) / s.temperature
		if vals[i] > maxVal {
			maxVal = vals[i]
		}
	}
	sum := float64(0)
	for i, val := range vals {
		exp := math.Exp(val - maxVal)
		vals[i] = exp
		sum += exp
	}
	weights := make([]float64, len(actions))
	for i, v := range vals {
		weights[i] = v / sum
	}
	i, ok := sampleuv.NewWeighted(weights, s.rand).Take()
	if !ok {
		return nil, false
	}
	return actions[i], true
}
