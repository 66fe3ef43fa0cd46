package types

// Environment is the contract the driver trains against.
// Implementations adapt a concrete simulator to it.
type Environment interface {
	// Reset called at the start of each episode
	Reset(*EpisodeContext) (State, error)
	// Step applies the action and returns the next state and the reward
	Step(Action, *StepContext) (State, float64, error)
}

// State of the system that RL policies observe
type State interface {
	// Indexed by the Hash
	// Should be deterministic
	Hash() string
	// Actions possible from the state
	Actions() []Action
}

// And Action that RL policy can take
type Action interface {
	// Index of the action
	// Should be deterministic
	Hash() string
}

// Terminator is implemented by environments that can end an episode
// before the horizon.
type Terminator interface {
	InTerminalState() bool
}

// Summarizer is implemented by environments that want to see the
// results of each test epoch.
type Summarizer interface {
	SummarizePerformance(testData any)
}

// Mode of an epoch, training or test
type Mode int

const (
	// ModeTraining is the conventional flag for training epochs
	ModeTraining Mode = -1
	// ModeTest is used for the interleaved evaluation epochs
	ModeTest Mode = 0
)

func (m Mode) String() string {
	if m == ModeTraining {
		return "train"
	}
	return "test"
}

// Training returns true for training epochs
func (m Mode) Training() bool {
	return m == ModeTraining
}
