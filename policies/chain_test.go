package policies

import (
	"context"
	"testing"

	"github.com/zeu5/chain-rl/chain"
	"github.com/zeu5/chain-rl/types"
	"github.com/zeu5/chain-rl/util"
)

func TestQLearningLearnsToAdvance(t *testing.T) {
	env, err := chain.NewChainEnvironment(chain.ChainConfig{NStates: 5, Step: 0.1})
	if err != nil {
		t.Fatalf("creating env: %s", err)
	}
	policy := NewQLearningPolicy(QLearningConfig{
		LearningRate:      0.5,
		Discount:          0.9,
		EpsilonStart:      1,
		EpsilonMin:        0.1,
		EpsilonDecaySteps: 2000,
		Seed:              123456,
	})
	agent := types.NewAgent(&types.AgentConfig{
		Epochs:      50,
		EpochLength: 100,
		Policy:      policy,
		Environment: env,
		Controllers: []types.Controller{types.NewTrainerController(util.DiscardLogger())},
	})
	if err := agent.Run(context.Background()); err != nil {
		t.Fatalf("training: %s", err)
	}

	for _, s := range chain.PositionStates(5, 0.1)[3:] {
		values := policy.QValues(s)
		if values["Advance"] <= values["Restart"] {
			t.Errorf("position %s: expected Advance to beat Restart, got %v", s.Hash(), values)
		}
	}

	// the top of the chain is worth about 1 / (1 - 0.9)
	top := policy.QValues(&chain.PositionState{Position: 0.4})["Advance"]
	if top < 5 || top > 10.5 {
		t.Errorf("expected Q(top, Advance) close to 10, got %v", top)
	}
}
