package chain

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zeu5/chain-rl/types"
)

// Adapter drives a ChainEnv through the driver Environment contract
type Adapter struct {
	env *ChainEnv
}

var _ types.Environment = &Adapter{}
var _ types.Terminator = &Adapter{}
var _ types.Summarizer = &Adapter{}

func NewAdapter(env *ChainEnv) *Adapter {
	return &Adapter{env: env}
}

// NewChainEnvironment creates the simulator and wraps it
func NewChainEnvironment(config ChainConfig) (*Adapter, error) {
	env, err := NewChainEnv(config)
	if err != nil {
		return nil, err
	}
	return NewAdapter(env), nil
}

func (a *Adapter) Reset(eCtx *types.EpisodeContext) (types.State, error) {
	obs := a.env.Reset(int(eCtx.Mode))
	return &PositionState{Position: obs[0]}, nil
}

func (a *Adapter) Step(action types.Action, _ *types.StepContext) (types.State, float64, error) {
	move, ok := action.(*Move)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidAction, action.Hash())
	}
	reward, err := a.env.Act(move.Index)
	if err != nil {
		return nil, 0, err
	}
	obs := a.env.Observe()
	return &PositionState{Position: obs[0]}, reward, nil
}

func (a *Adapter) InTerminalState() bool {
	return a.env.InTerminalState()
}

func (a *Adapter) SummarizePerformance(testData any) {
	a.env.SummarizePerformance(testData)
}

// PositionState is the observation seen by the policies
type PositionState struct {
	Position float64
}

var _ types.State = &PositionState{}

func (p *PositionState) Hash() string {
	// rounding hides the float noise of level * step
	return strconv.FormatFloat(math.Round(p.Position*1e6)/1e6, 'f', -1, 64)
}

func (p *PositionState) Actions() []types.Action {
	return AllMoves
}

// Move is one of the two chain actions
type Move struct {
	Index int
	Name  string
}

var _ types.Action = &Move{}

func (m *Move) Hash() string {
	return m.Name
}

var (
	MoveAdvance                = &Move{Index: ActionAdvance, Name: "Advance"}
	MoveRestart                = &Move{Index: ActionRestart, Name: "Restart"}
	AllMoves    []types.Action = []types.Action{
		MoveAdvance,
		MoveRestart,
	}
)

// PositionStates of every chain position, bottom to top
func PositionStates(nStates int, step float64) []*PositionState {
	states := make([]*PositionState, nStates)
	for i := 0; i < nStates; i++ {
		states[i] = &PositionState{Position: float64(i) * step}
	}
	return states
}
