package policies

import (
	"context"
	"math"
	"testing"

	"github.com/zeu5/chain-rl/types"
)

func TestBonusPolicyReplaysBackwards(t *testing.T) {
	p := NewBonusPolicy(QLearningConfig{LearningRate: 1, Discount: 0.5, Seed: 1}, 1)
	a := &testState{hash: "a", actions: both}
	b := &testState{hash: "b", actions: both}
	c := &testState{hash: "c", actions: both}

	eCtx := types.NewEpisodeContext(context.Background(), 0, 0, types.ModeTraining, 2)
	eCtx.Trace.Append(0, a, left, 0, b)
	eCtx.Trace.Append(1, b, right, 2, c)

	if td := p.Update(types.NewStepContext(eCtx, 0)); td != 0 {
		t.Errorf("per step updates should not learn, got %v", td)
	}
	if p.QTable().Len() != 0 {
		t.Errorf("per step updates should not touch the table")
	}

	p.UpdateIteration(eCtx)
	// last step: 2 + 1/1, the episode was cut so c has no value
	if v := p.QTable().Get("b", "right", 0); math.Abs(v-3) > 1e-9 {
		t.Errorf("expected Q(b, right) = 3, got %v", v)
	}
	// first step sees the updated b: 0 + 1/1 + 0.5 * 3
	if v := p.QTable().Get("a", "left", 0); math.Abs(v-2.5) > 1e-9 {
		t.Errorf("expected Q(a, left) = 2.5, got %v", v)
	}
	if p.Visits("a", "left") != 1 || p.Visits("b", "right") != 1 {
		t.Errorf("expected one visit per pair")
	}

	// the bonus shrinks with the visits
	p.UpdateIteration(eCtx)
	if v := p.QTable().Get("b", "right", 0); math.Abs(v-2.5) > 1e-9 {
		t.Errorf("expected Q(b, right) = 2 + 1/2, got %v", v)
	}
	if p.Params()["bonus"] != 1 {
		t.Errorf("expected the bonus weight in the params")
	}

	p.Reset()
	if p.Visits("a", "left") != 0 || p.QTable().Len() != 0 {
		t.Errorf("reset should forget visits and values")
	}
}
