package policies

import (
	"github.com/zeu5/chain-rl/types"
)

// BonusPolicy adds an exploration bonus of weight/visits to every reward.
// Updates are applied at the end of each training episode, going backwards
// over the trace so that the bonus of late steps reaches the early ones.
type BonusPolicy struct {
	*QLearningPolicy
	weight float64
	visits *QTable
}

var _ types.Policy = &BonusPolicy{}

func NewBonusPolicy(config QLearningConfig, weight float64) *BonusPolicy {
	return &BonusPolicy{
		QLearningPolicy: NewQLearningPolicy(config),
		weight:          weight,
		visits:          NewQTable(),
	}
}

func (b *BonusPolicy) Params() map[string]float64 {
	params := b.QLearningPolicy.Params()
	params["bonus"] = b.weight
	return params
}

// Visits of the state action pair during training
func (b *BonusPolicy) Visits(state, action string) int {
	return int(b.visits.Get(state, action, 0))
}

func (b *BonusPolicy) Reset() {
	b.QLearningPolicy.Reset()
	b.visits = NewQTable()
}

// Update only decays epsilon, the values are learnt in UpdateIteration
func (b *BonusPolicy) Update(_ *types.StepContext) float64 {
	b.decayEpsilon()
	return 0
}

func (b *BonusPolicy) UpdateIteration(eCtx *types.EpisodeContext) {
	trace := eCtx.Trace
	lastIndex := trace.Len() - 1

	for i := lastIndex; i > -1; i-- { // going backwards in the episode
		state, action, reward, nextState, ok := trace.Get(i)
		if ok {
			// the episode was cut after the last step, its future is unknown
			b.updateInternal(state, action, reward, nextState, i == lastIndex && !eCtx.TerminalState)
		}
	}
}

func (b *BonusPolicy) updateInternal(state types.State, action types.Action, reward float64, nextState types.State, outOfHorizon bool) {
	stateHash := state.Hash()
	actionHash := action.Hash()
	t := b.visits.Get(stateHash, actionHash, 0) + 1
	b.visits.Set(stateHash, actionHash, t)

	nextStateVal := 0.0
	if !outOfHorizon {
		if nextActions := nextState.Actions(); len(nextActions) > 0 {
			hashes := make([]string, len(nextActions))
			for i, a := range nextActions {
				hashes[i] = a.Hash()
			}
			_, nextStateVal = b.qTable.MaxAmong(nextState.Hash(), hashes, b.config.InitialValue)
		}
	}
	curVal := b.qTable.Get(stateHash, actionHash, b.config.InitialValue)

	alpha := b.config.LearningRate
	newVal := (1-alpha)*curVal + alpha*(reward+b.weight/t+b.config.Discount*nextStateVal)
	b.qTable.Set(stateHash, actionHash, newVal)
}
