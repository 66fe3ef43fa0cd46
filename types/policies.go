package types

import (
	"time"

	"golang.org/x/exp/rand"
)

type Policy interface {
	// Called at the end of each training episode
	UpdateIteration(*EpisodeContext)
	// Pick the next action among the ones available, false if none can be picked
	NextAction(*StepContext, State, []Action) (Action, bool)
	// Learn from the transition stored in the step context, returns the TD error
	Update(*StepContext) float64
	// Forget everything learnt so far
	Reset()
}

// ParamsProvider is implemented by policies that expose their learning parameters
type ParamsProvider interface {
	Params() map[string]float64
}

// QValuer is implemented by policies that keep a value per state-action pair
type QValuer interface {
	QValues(State) map[string]float64
}

type RandomPolicy struct {
	rand *rand.Rand
	seed uint64
}

var _ Policy = &RandomPolicy{}

// NewRandomPolicy picks actions uniformly, seed 0 uses the current time
func NewRandomPolicy(seed uint64) *RandomPolicy {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomPolicy{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

func (r *RandomPolicy) Reset() {
	r.rand.Seed(r.seed)
}

func (r *RandomPolicy) UpdateIteration(_ *EpisodeContext) {}

func (r *RandomPolicy) NextAction(_ *StepContext, _ State, actions []Action) (Action, bool) {
	if len(actions) == 0 {
		return nil, false
	}
	i := r.rand.Intn(len(actions))
	return actions[i], true
}

func (r *RandomPolicy) Update(_ *StepContext) float64 { return 0 }
