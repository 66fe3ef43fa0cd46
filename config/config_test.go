package config

import (
	"os"
	"path"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %s", err)
	}
	if cfg.Chain.NStates != 10 || cfg.Chain.Step != 0.1 || cfg.Agent.Seed != 123456 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	file := path.Join(t.TempDir(), "chain.yaml")
	content := `
chain:
  n_states: 20
agent:
  epochs: 3
  learning_rate: 0.5
record:
  traces: true
`
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %s", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("loading config: %s", err)
	}
	if cfg.Chain.NStates != 20 || cfg.Agent.Epochs != 3 || cfg.Agent.LearningRate != 0.5 || !cfg.Record.Traces {
		t.Errorf("file values not applied: %+v", cfg)
	}
	// unset keys keep their defaults
	if cfg.Chain.Step != 0.1 || cfg.Agent.EpochLength != 100 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(path.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}

	file := path.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(file, []byte("chain: [not, a, map"), 0644)
	if _, err := Load(file); err == nil {
		t.Errorf("expected an error for a malformed file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHAIN_N_STATES", "4")
	t.Setenv("CHAIN_STEP", "0.25")
	t.Setenv("CHAIN_SEED", "42")
	t.Setenv("CHAIN_LOG_LEVEL", "debug")
	t.Setenv("CHAIN_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading config: %s", err)
	}
	if cfg.Chain.NStates != 4 || cfg.Chain.Step != 0.25 || cfg.Agent.Seed != 42 {
		t.Errorf("environment not applied: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("environment not applied: %+v", cfg)
	}

	t.Setenv("CHAIN_EPOCHS", "many")
	if _, err := Load(""); err == nil {
		t.Errorf("expected an error for a non numeric CHAIN_EPOCHS")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*LaunchConfig){
		"n_states":      func(c *LaunchConfig) { c.Chain.NStates = 0 },
		"step":          func(c *LaunchConfig) { c.Chain.Step = -1 },
		"runs":          func(c *LaunchConfig) { c.Agent.Runs = 0 },
		"epochs":        func(c *LaunchConfig) { c.Agent.Epochs = 0 },
		"epoch_length":  func(c *LaunchConfig) { c.Agent.EpochLength = 0 },
		"horizon":       func(c *LaunchConfig) { c.Agent.Horizon = -1 },
		"test length":   func(c *LaunchConfig) { c.Agent.TestEpochLength = -1 },
		"learning_rate": func(c *LaunchConfig) { c.Agent.LearningRate = 0 },
		"discount":      func(c *LaunchConfig) { c.Agent.Discount = 1.5 },
		"epsilon":       func(c *LaunchConfig) { c.Agent.EpsilonMin = 0.5; c.Agent.EpsilonStart = 0.2 },
		"record path":   func(c *LaunchConfig) { c.Record.Path = "" },
		"log level":     func(c *LaunchConfig) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}
