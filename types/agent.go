package types

import (
	"context"
	"fmt"
	"time"
)

type AgentConfig struct {
	// number of training epochs
	Epochs int
	// number of steps in each training epoch
	EpochLength int
	// maximum steps per episode, defaults to EpochLength
	Horizon     int
	Policy      Policy
	Environment Environment
	Controllers []Controller
}

// EpochResult collects the episodes executed in one epoch
type EpochResult struct {
	Epoch    int
	Mode     Mode
	Traces   []*Trace
	Steps    int
	Episodes int
	Reward   float64
}

// MeanEpisodeReward is the average total reward of the episodes of the epoch
func (e *EpochResult) MeanEpisodeReward() float64 {
	if e.Episodes == 0 {
		return 0
	}
	return e.Reward / float64(e.Episodes)
}

// RL Agent configured with the corresponding
// policy, environment and controllers
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
	controllers []Controller

	// context of the current Run, used by controllers that run extra epochs
	ctx context.Context
	// number of episodes executed since the start of the Run
	episodes int
	// invoked after every episode (analyzers, recording)
	episodeHook func(*EpisodeContext)
}

// Instantiates a new Agent
func NewAgent(config *AgentConfig) *Agent {
	if config.Horizon <= 0 {
		config.Horizon = config.EpochLength
	}
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
		controllers: config.Controllers,
		ctx:         context.Background(),
	}
}

func (a *Agent) Policy() Policy {
	return a.policy
}

// OnEpisode sets the hook invoked at the end of every episode
func (a *Agent) OnEpisode(hook func(*EpisodeContext)) {
	a.episodeHook = hook
}

// Run the agent for the configured number of epochs
func (a *Agent) Run(ctx context.Context) error {
	a.ctx = ctx
	a.episodes = 0
	for _, c := range a.controllers {
		c.OnStart(a)
	}
	for epoch := 0; epoch < a.config.Epochs; epoch++ {
		for _, c := range a.controllers {
			c.OnEpochStart(a, epoch)
		}
		result, err := a.RunEpoch(ctx, epoch, ModeTraining, a.config.EpochLength)
		if err != nil {
			return err
		}
		for _, c := range a.controllers {
			c.OnEpochEnd(a, result)
		}
	}
	for _, c := range a.controllers {
		c.OnEnd(a)
	}
	return nil
}

// Context of the ongoing Run
func (a *Agent) Context() context.Context {
	return a.ctx
}

// RunEpoch executes length steps split in episodes of at most Horizon steps
func (a *Agent) RunEpoch(ctx context.Context, epoch int, mode Mode, length int) (*EpochResult, error) {
	result := &EpochResult{
		Epoch:  epoch,
		Mode:   mode,
		Traces: make([]*Trace, 0),
	}
	remaining := length
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		horizon := a.config.Horizon
		if remaining < horizon {
			horizon = remaining
		}
		eCtx := NewEpisodeContext(ctx, epoch, a.episodes, mode, horizon)
		a.runEpisode(eCtx)
		a.episodes += 1

		result.Traces = append(result.Traces, eCtx.Trace)
		result.Steps += eCtx.Timesteps
		result.Episodes += 1
		result.Reward += eCtx.TotalReward()
		remaining -= eCtx.Timesteps

		for _, c := range a.controllers {
			c.OnEpisodeEnd(a, eCtx)
		}
		if a.episodeHook != nil {
			a.episodeHook(eCtx)
		}
		if eCtx.Err != nil {
			return result, fmt.Errorf("epoch %d episode %d: %w", epoch, eCtx.Episode, eCtx.Err)
		}
		if eCtx.Timesteps == 0 {
			// no action could be taken, the remaining steps would never be consumed
			break
		}
	}
	return result, nil
}

// run a single episode, the trace and outcome are stored in the episode context
func (a *Agent) runEpisode(eCtx *EpisodeContext) {
	start := time.Now()
	defer func() {
		eCtx.RunDuration = time.Since(start)
	}()

	state, err := a.environment.Reset(eCtx)
	if err != nil {
		eCtx.SetError(err)
		return
	}
	terminator, canTerminate := a.environment.(Terminator)

	for i := 0; i < eCtx.Horizon; i++ {
		select {
		case <-eCtx.Context.Done():
			eCtx.SetError(eCtx.Context.Err())
			return
		default:
		}

		actions := state.Actions()
		if len(actions) == 0 {
			eCtx.TerminalState = true
			return
		}
		sCtx := NewStepContext(eCtx, i)
		sCtx.State = state
		nextAction, ok := a.policy.NextAction(sCtx, state, actions)
		if !ok {
			return
		}
		sCtx.Action = nextAction
		nextState, reward, err := a.environment.Step(nextAction, sCtx)
		if err != nil {
			eCtx.SetError(err)
			return
		}
		sCtx.NextState = nextState
		sCtx.Reward = reward

		eCtx.Trace.Append(i, state, nextAction, reward, nextState)
		eCtx.Timesteps += 1
		for _, c := range a.controllers {
			c.OnActionTaken(a, sCtx)
		}
		state = nextState

		if canTerminate && terminator.InTerminalState() {
			eCtx.TerminalState = true
			return
		}
	}
}
