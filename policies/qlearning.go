package policies

import (
	"math"
	"time"

	"github.com/zeu5/chain-rl/types"
	"golang.org/x/exp/rand"
)

// QLearningConfig parameters of the tabular Q-learning policy
type QLearningConfig struct {
	LearningRate float64
	Discount     float64
	// epsilon decays linearly from EpsilonStart to EpsilonMin
	// over EpsilonDecaySteps training steps
	EpsilonStart      float64
	EpsilonMin        float64
	EpsilonDecaySteps int
	// value of state-action pairs never updated
	InitialValue float64
	// 0 seeds from the current time
	Seed uint64
}

// QLearningPolicy is epsilon-greedy during training and greedy during test epochs
type QLearningPolicy struct {
	qTable  *QTable
	config  QLearningConfig
	epsilon float64
	seed    uint64
	rand    *rand.Rand
}

var _ types.Policy = &QLearningPolicy{}
var _ types.QValuer = &QLearningPolicy{}
var _ types.ParamsProvider = &QLearningPolicy{}
var _ types.Recorder = &QLearningPolicy{}

func NewQLearningPolicy(config QLearningConfig) *QLearningPolicy {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &QLearningPolicy{
		qTable:  NewQTable(),
		config:  config,
		epsilon: config.EpsilonStart,
		seed:    seed,
		rand:    rand.New(rand.NewSource(seed)),
	}
}

func (q *QLearningPolicy) Params() map[string]float64 {
	return map[string]float64{
		"epsilon":       q.epsilon,
		"discount":      q.config.Discount,
		"learning_rate": q.config.LearningRate,
	}
}

func (q *QLearningPolicy) QTable() *QTable {
	return q.qTable
}

func (q *QLearningPolicy) QValues(state types.State) map[string]float64 {
	stateHash := state.Hash()
	values := make(map[string]float64)
	for _, a := range state.Actions() {
		aHash := a.Hash()
		values[aHash] = q.qTable.Get(stateHash, aHash, q.config.InitialValue)
	}
	return values
}

func (q *QLearningPolicy) Record(path string) error {
	return q.qTable.Record(path)
}

func (q *QLearningPolicy) Reset() {
	q.qTable = NewQTable()
	q.epsilon = q.config.EpsilonStart
	q.rand.Seed(q.seed)
}

func (q *QLearningPolicy) NextAction(sCtx *types.StepContext, state types.State, actions []types.Action) (types.Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	if sCtx.Mode.Training() && q.rand.Float64() < q.epsilon {
		i := q.rand.Intn(len(actions))
		return actions[i], true
	}
	return q.greedy(state, actions)
}

func (q *QLearningPolicy) greedy(state types.State, actions []types.Action) (types.Action, bool) {
	actionsMap := make(map[string]types.Action)
	availableActions := make([]string, len(actions))
	for i, a := range actions {
		aHash := a.Hash()
		actionsMap[aHash] = a
		availableActions[i] = aHash
	}
	maxAction, _ := q.qTable.MaxAmong(state.Hash(), availableActions, q.config.InitialValue)
	if maxAction == "" {
		return nil, false
	}
	return actionsMap[maxAction], true
}

// Update applies the one step Q-learning rule and decays epsilon
func (q *QLearningPolicy) Update(sCtx *types.StepContext) float64 {
	stateHash := sCtx.State.Hash()
	actionHash := sCtx.Action.Hash()

	nextStateVal := 0.0
	if nextActions := sCtx.NextState.Actions(); len(nextActions) > 0 {
		hashes := make([]string, len(nextActions))
		for i, a := range nextActions {
			hashes[i] = a.Hash()
		}
		_, nextStateVal = q.qTable.MaxAmong(sCtx.NextState.Hash(), hashes, q.config.InitialValue)
	}
	curVal := q.qTable.Get(stateHash, actionHash, q.config.InitialValue)

	tdError := sCtx.Reward + q.config.Discount*nextStateVal - curVal
	q.qTable.Set(stateHash, actionHash, curVal+q.config.LearningRate*tdError)

	q.decayEpsilon()
	return tdError
}

func (q *QLearningPolicy) decayEpsilon() {
	if q.config.EpsilonDecaySteps <= 0 {
		return
	}
	step := (q.config.EpsilonStart - q.config.EpsilonMin) / float64(q.config.EpsilonDecaySteps)
	q.epsilon = math.Max(q.epsilon-step, q.config.EpsilonMin)
}

func (q *QLearningPolicy) UpdateIteration(_ *types.EpisodeContext) {}
