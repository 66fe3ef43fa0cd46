package chain

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func newTestEnv(t *testing.T, nStates int, step float64) *ChainEnv {
	t.Helper()
	env, err := NewChainEnv(ChainConfig{NStates: nStates, Step: step})
	if err != nil {
		t.Fatalf("creating env: %s", err)
	}
	return env
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDefaults(t *testing.T) {
	for _, cfg := range []ChainConfig{{}, DefaultChainConfig()} {
		env, err := NewChainEnv(cfg)
		if err != nil {
			t.Fatalf("creating env: %s", err)
		}
		if env.NStates() != DefaultNStates || env.Step() != DefaultStep {
			t.Errorf("expected defaults (%d, %v), got (%d, %v)", DefaultNStates, DefaultStep, env.NStates(), env.Step())
		}
	}

	env, err := NewChainEnv(DefaultChainConfig())
	if err != nil {
		t.Fatalf("creating env: %s", err)
	}
	if env.NStates() != DefaultNStates || env.Step() != DefaultStep {
		t.Errorf("expected defaults (%d, %v), got (%d, %v)", DefaultNStates, DefaultStep, env.NStates(), env.Step())
	}
	if env.Position() != 0 {
		t.Errorf("fresh env should start at 0, got %v", env.Position())
	}
	if !almostEqual(env.MaxPosition(), 0.9) {
		t.Errorf("expected max position 0.9, got %v", env.MaxPosition())
	}
}

func TestInvalidConfig(t *testing.T) {
	configs := []ChainConfig{
		{NStates: -1},
		{Step: -0.1},
		{Step: math.NaN()},
		{Step: math.Inf(1)},
	}
	for _, c := range configs {
		if _, err := NewChainEnv(c); err == nil {
			t.Errorf("expected an error for config %+v", c)
		}
	}
}

func TestAdvanceToTop(t *testing.T) {
	env := newTestEnv(t, 10, 0.1)
	env.Reset(ModeTraining)

	for i := 1; i <= 9; i++ {
		reward, err := env.Act(ActionAdvance)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if reward != 0 {
			t.Errorf("advance %d: expected reward 0, got %v", i, reward)
		}
		if !almostEqual(env.Position(), float64(i)*0.1) {
			t.Errorf("advance %d: expected position %v, got %v", i, float64(i)*0.1, env.Position())
		}
	}

	// the tenth advance overshoots and is clamped
	reward, _ := env.Act(ActionAdvance)
	if reward != 1 {
		t.Errorf("expected reward 1 at the top, got %v", reward)
	}
	if !almostEqual(env.Position(), 0.9) {
		t.Errorf("expected position to stay at 0.9, got %v", env.Position())
	}

	// staying at the top keeps paying
	for i := 0; i < 5; i++ {
		reward, _ := env.Act(ActionAdvance)
		if reward != 1 || !almostEqual(env.Position(), 0.9) {
			t.Errorf("expected (1, 0.9) at the top, got (%v, %v)", reward, env.Position())
		}
	}
}

func TestRestart(t *testing.T) {
	env := newTestEnv(t, 10, 0.1)
	env.Reset(ModeTraining)

	reward, _ := env.Act(ActionRestart)
	if reward != 0.2 {
		t.Errorf("restart at 0 should give 0.2, got %v", reward)
	}
	if env.Position() != 0 {
		t.Errorf("expected position 0, got %v", env.Position())
	}

	env.Act(ActionAdvance)
	env.Act(ActionAdvance)
	env.Act(ActionAdvance)
	reward, _ = env.Act(ActionRestart)
	if reward != 0 {
		t.Errorf("restart away from 0 should give 0, got %v", reward)
	}
	if env.Position() != 0 {
		t.Errorf("restart should go back to 0, got %v", env.Position())
	}
}

func TestRestartFromTop(t *testing.T) {
	env := newTestEnv(t, 3, 0.5)
	env.Reset(0)
	env.Act(ActionAdvance)
	env.Act(ActionAdvance)
	if env.Position() != 1.0 {
		t.Fatalf("expected to be at the top, got %v", env.Position())
	}
	reward, _ := env.Act(ActionRestart)
	if reward != 0 || env.Position() != 0 {
		t.Errorf("expected (0, 0), got (%v, %v)", reward, env.Position())
	}
}

func TestAdvanceRewardForChainLengths(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 10, 17, 50} {
		env := newTestEnv(t, n, 0.1)
		env.Reset(ModeTraining)
		for i := 1; i < n; i++ {
			if reward, _ := env.Act(ActionAdvance); reward != 0 {
				t.Errorf("n=%d advance %d: expected reward 0, got %v", n, i, reward)
			}
		}
		reward, err := env.Act(ActionAdvance)
		if err != nil || reward != 1 {
			t.Errorf("n=%d: expected reward 1 on advance %d, got (%v, %v)", n, n, reward, err)
		}
		if top := float64(n-1) * 0.1; !almostEqual(env.Position(), top) {
			t.Errorf("n=%d: expected position %v, got %v", n, top, env.Position())
		}
	}
}

func TestRestartThenAdvanceToTop(t *testing.T) {
	env := newTestEnv(t, 10, 0.1)
	env.Reset(ModeTraining)

	if reward, _ := env.Act(ActionRestart); reward != 0.2 {
		t.Errorf("expected 0.2 for the restart at 0, got %v", reward)
	}
	expected := []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	for i, e := range expected {
		if reward, _ := env.Act(ActionAdvance); reward != e {
			t.Errorf("advance %d: expected reward %v, got %v", i+1, e, reward)
		}
	}
	obs := env.Observe()
	if len(obs) != 1 || !almostEqual(obs[0], 0.9) {
		t.Errorf("expected observation [0.9], got %v", obs)
	}
}

func TestInvalidAction(t *testing.T) {
	env := newTestEnv(t, 10, 0.1)
	env.Reset(ModeTraining)
	env.Act(ActionAdvance)

	for _, action := range []int{-1, 2, 7} {
		reward, err := env.Act(action)
		if !errors.Is(err, ErrInvalidAction) {
			t.Errorf("action %d: expected ErrInvalidAction, got %v", action, err)
		}
		if reward != 0 {
			t.Errorf("action %d: expected no reward, got %v", action, reward)
		}
		if !almostEqual(env.Position(), 0.1) {
			t.Errorf("action %d: position changed to %v", action, env.Position())
		}
	}
}

func TestSingleState(t *testing.T) {
	env := newTestEnv(t, 1, 0.1)
	env.Reset(ModeTraining)

	reward, _ := env.Act(ActionAdvance)
	if reward != 1 || env.Position() != 0 {
		t.Errorf("advance on a single state chain: expected (1, 0), got (%v, %v)", reward, env.Position())
	}
	reward, _ = env.Act(ActionRestart)
	if reward != 0.2 || env.Position() != 0 {
		t.Errorf("restart on a single state chain: expected (0.2, 0), got (%v, %v)", reward, env.Position())
	}
}

func TestPositionStaysInBounds(t *testing.T) {
	for n := 1; n <= 6; n++ {
		env := newTestEnv(t, n, 0.25)
		env.Reset(ModeTraining)
		actions := []int{0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0}
		for _, a := range actions {
			reward, err := env.Act(a)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if reward != 0 && reward != 0.2 && reward != 1 {
				t.Errorf("n=%d: unexpected reward %v", n, reward)
			}
			if env.Position() < 0 || env.Position() > env.MaxPosition()+1e-9 {
				t.Errorf("n=%d: position %v out of [0, %v]", n, env.Position(), env.MaxPosition())
			}
		}
	}
}

func TestResetModes(t *testing.T) {
	env := newTestEnv(t, 10, 0.1)
	for _, mode := range []int{ModeTraining, 0, 1, 42} {
		env.Act(ActionAdvance)
		env.Act(ActionAdvance)
		obs := env.Reset(mode)
		if len(obs) != 1 || obs[0] != 0 {
			t.Errorf("mode %d: expected observation [0], got %v", mode, obs)
		}
	}
}

func TestObserveIsACopy(t *testing.T) {
	env := newTestEnv(t, 10, 0.1)
	env.Reset(ModeTraining)
	env.Act(ActionAdvance)

	obs := env.Observe()
	obs[0] = 5
	if !almostEqual(env.Observe()[0], 0.1) {
		t.Errorf("mutating an observation changed the env, got %v", env.Observe())
	}
	if !almostEqual(env.Position(), 0.1) {
		t.Errorf("position changed to %v", env.Position())
	}
}

func TestStaticDescription(t *testing.T) {
	env := newTestEnv(t, 10, 0.1)
	dims := env.InputDimensions()
	if len(dims) != 1 || len(dims[0]) != 1 || dims[0][0] != 1 {
		t.Errorf("expected input dimensions [[1]], got %v", dims)
	}
	if env.NActions() != 2 {
		t.Errorf("expected 2 actions, got %d", env.NActions())
	}
	env.Act(ActionAdvance)
	if env.InTerminalState() {
		t.Errorf("chain should never be terminal")
	}
}

func TestSummarizePerformanceLogs(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := slog.New(slog.NewTextHandler(buf, nil))
	env, _ := NewChainEnv(ChainConfig{Logger: logger})

	env.SummarizePerformance([]float64{0.5, 0.75})
	if !strings.Contains(buf.String(), "0.75") {
		t.Errorf("expected the test data in the log, got %q", buf.String())
	}
	if env.Position() != 0 {
		t.Errorf("summary changed the position")
	}
}
