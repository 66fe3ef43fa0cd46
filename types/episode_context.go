package types

import (
	"context"
	"time"
)

// EpisodeContext wraps static and dynamic information of the episode
// Static: episode number, epoch, mode
// Dynamic: trace, error and the number of timesteps executed
type EpisodeContext struct {
	Context context.Context

	Run     int
	Epoch   int
	Episode int
	Mode    Mode
	// maximum number of steps of this episode
	Horizon int

	Trace *Trace

	Timesteps     int
	TerminalState bool // episode ended before the horizon
	RunDuration   time.Duration
	Err           error
}

func NewEpisodeContext(ctx context.Context, epoch, episode int, mode Mode, horizon int) *EpisodeContext {
	return &EpisodeContext{
		Context: ctx,
		Epoch:   epoch,
		Episode: episode,
		Mode:    mode,
		Horizon: horizon,
		Trace:   NewTrace(),
	}
}

func (e *EpisodeContext) SetError(err error) {
	e.Err = err
}

// TotalReward of the steps executed so far
func (e *EpisodeContext) TotalReward() float64 {
	return e.Trace.TotalReward()
}

// StepContext is passed to the environment and the policy at every step.
// State, Action, NextState and Reward are filled in as the step progresses.
type StepContext struct {
	*EpisodeContext
	Step int

	State     State
	Action    Action
	NextState State
	Reward    float64
}

func NewStepContext(eCtx *EpisodeContext, step int) *StepContext {
	return &StepContext{
		EpisodeContext: eCtx,
		Step:           step,
	}
}
