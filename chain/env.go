package chain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/zeu5/chain-rl/util"
)

const (
	DefaultNStates = 10
	DefaultStep    = 0.1

	// ActionAdvance moves one step up the chain
	ActionAdvance = 0
	// ActionRestart goes back to the start of the chain
	ActionRestart = 1

	// ModeTraining is the reset flag used by training epochs, any other value is evaluation
	ModeTraining = -1

	restartReward = 0.2
	topReward     = 1.0
)

// ErrInvalidAction is returned by Act for actions other than 0 and 1
var ErrInvalidAction = errors.New("invalid action")

// Observation of the environment, currently a single value
type Observation []float64

// Shape of one observation input
type Shape []int

type ChainConfig struct {
	// number of positions in the chain, 0 means DefaultNStates
	NStates int
	// distance between two positions, 0 means DefaultStep
	Step float64
	// nil discards the summaries
	Logger *slog.Logger
}

func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		NStates: DefaultNStates,
		Step:    DefaultStep,
	}
}

// ChainEnv holds an agent position on a chain of NStates positions.
// Advancing past the top of the chain is rewarded with 1 and
// restarting from the bottom with 0.2.
//
// The position is kept as an integer level, position = level * step.
type ChainEnv struct {
	nStates int
	step    float64
	level   int
	logger  *slog.Logger
}

func NewChainEnv(config ChainConfig) (*ChainEnv, error) {
	if config.NStates < 0 {
		return nil, fmt.Errorf("number of states must be positive, got %d", config.NStates)
	}
	if config.Step < 0 || math.IsNaN(config.Step) || math.IsInf(config.Step, 0) {
		return nil, fmt.Errorf("step must be a positive number, got %v", config.Step)
	}
	if config.NStates == 0 {
		config.NStates = DefaultNStates
	}
	if config.Step == 0 {
		config.Step = DefaultStep
	}
	if config.Logger == nil {
		config.Logger = util.DiscardLogger()
	}
	return &ChainEnv{
		nStates: config.NStates,
		step:    config.Step,
		level:   0,
		logger:  config.Logger,
	}, nil
}

func (c *ChainEnv) NStates() int {
	return c.nStates
}

func (c *ChainEnv) Step() float64 {
	return c.step
}

// Position is the current scalar location on the chain
func (c *ChainEnv) Position() float64 {
	return float64(c.level) * c.step
}

// MaxPosition is the top of the chain, (NStates-1) * step
func (c *ChainEnv) MaxPosition() float64 {
	return float64(c.nStates-1) * c.step
}

// Reset moves back to the start of the chain, the mode does not change the transition
func (c *ChainEnv) Reset(mode int) Observation {
	c.level = 0
	return c.Observe()
}

// Act performs one time step and returns the reward.
// Unknown actions leave the position untouched, give no reward
// and return an error wrapping ErrInvalidAction.
func (c *ChainEnv) Act(action int) (float64, error) {
	switch action {
	case ActionAdvance:
		c.level += 1
		if c.level > c.nStates-1 {
			c.level = c.nStates - 1
			return topReward, nil
		}
		return 0, nil
	case ActionRestart:
		reward := 0.0
		if c.level == 0 {
			reward = restartReward
		}
		c.level = 0
		return reward, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidAction, action)
	}
}

// Observe returns a copy of the current position
func (c *ChainEnv) Observe() Observation {
	return Observation{c.Position()}
}

// InTerminalState is always false, episodes are bounded by the driver
func (c *ChainEnv) InTerminalState() bool {
	return false
}

// InputDimensions of the observation: the single most recent position
func (c *ChainEnv) InputDimensions() []Shape {
	return []Shape{{1}}
}

func (c *ChainEnv) NActions() int {
	return 2
}

// SummarizePerformance logs the test data it is given
func (c *ChainEnv) SummarizePerformance(testData any) {
	c.logger.Info("summarize performance", "test_data", fmt.Sprintf("%+v", testData))
	c.logger.Info("summary was called, nothing else to report")
}
