package chain

import (
	"math"

	"github.com/zeu5/chain-rl/types"
)

// PositionInBounds checks that every observed position lies on the chain
func PositionInBounds(nStates int, step float64) types.InvariantDesc {
	maxPosition := float64(nStates-1) * step
	inBounds := func(s types.State) bool {
		p, ok := s.(*PositionState)
		if !ok {
			return false
		}
		return p.Position >= 0 && p.Position <= maxPosition+1e-9
	}
	return types.InvariantDesc{
		Name: "PositionInBounds",
		Check: func(t *types.Trace) (bool, int) {
			for i := 0; i < t.Len(); i++ {
				state, _, _, next, _ := t.Get(i)
				if !inBounds(state) || !inBounds(next) {
					return false, i
				}
			}
			return true, -1
		},
	}
}

// RewardsMatchMoves checks every reward against the move that produced it:
// restarting pays 0.2 only from the bottom, advancing pays 1 only at the top
func RewardsMatchMoves(nStates int, step float64) types.InvariantDesc {
	maxPosition := float64(nStates-1) * step
	atPosition := func(s types.State, pos float64) bool {
		p, ok := s.(*PositionState)
		return ok && math.Abs(p.Position-pos) < step/2
	}
	return types.InvariantDesc{
		Name: "RewardsMatchMoves",
		Check: func(t *types.Trace) (bool, int) {
			for i := 0; i < t.Len(); i++ {
				state, action, reward, _, _ := t.Get(i)
				expected := 0.0
				switch action.Hash() {
				case MoveAdvance.Hash():
					if atPosition(state, maxPosition) {
						expected = topReward
					}
				case MoveRestart.Hash():
					if atPosition(state, 0) {
						expected = restartReward
					}
				default:
					return false, i
				}
				if reward != expected {
					return false, i
				}
			}
			return true, -1
		},
	}
}

// Invariants of every chain trace
func Invariants(nStates int, step float64) []types.InvariantDesc {
	return []types.InvariantDesc{
		PositionInBounds(nStates, step),
		RewardsMatchMoves(nStates, step),
	}
}
