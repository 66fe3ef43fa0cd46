// Package config loads the launch configuration of the chain experiments.
// Values come from defaults, then an optional YAML file, then CHAIN_*
// environment variables. Command line flags are applied last by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LaunchConfig contains every setting of a training session
type LaunchConfig struct {
	Chain   ChainConfig   `yaml:"chain"`
	Agent   AgentConfig   `yaml:"agent"`
	Record  RecordConfig  `yaml:"record"`
	Logging LoggingConfig `yaml:"logging"`
	Redis   RedisConfig   `yaml:"redis"`
	Server  ServerConfig  `yaml:"server"`
}

// ChainConfig is the shape of the environment
type ChainConfig struct {
	NStates int     `yaml:"n_states"`
	Step    float64 `yaml:"step"`
}

// AgentConfig drives the training schedule and the Q-learning policy
type AgentConfig struct {
	Runs            int `yaml:"runs"`
	Epochs          int `yaml:"epochs"`
	EpochLength     int `yaml:"epoch_length"`
	Horizon         int `yaml:"horizon"`
	TestEpochLength int `yaml:"test_epoch_length"`
	// run a test epoch after every TestPeriod training epochs
	TestPeriod int `yaml:"test_period"`

	LearningRate      float64 `yaml:"learning_rate"`
	Discount          float64 `yaml:"discount"`
	EpsilonStart      float64 `yaml:"epsilon_start"`
	EpsilonMin        float64 `yaml:"epsilon_min"`
	EpsilonDecaySteps int     `yaml:"epsilon_decay_steps"`
	Temperature       float64 `yaml:"temperature"`
	// weight of the visit count bonus of the bonus experiment
	ExplorationBonus  float64 `yaml:"exploration_bonus"`
	Seed              uint64  `yaml:"seed"`
}

// RecordConfig controls what is written to the results folder
type RecordConfig struct {
	Path   string `yaml:"path"`
	Traces bool   `yaml:"traces"`
	Policy bool   `yaml:"policy"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// RedisConfig enables publishing rewards when Addr is set
type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings of the reference experiment
func Default() *LaunchConfig {
	return &LaunchConfig{
		Chain: ChainConfig{
			NStates: 10,
			Step:    0.1,
		},
		Agent: AgentConfig{
			Runs:              1,
			Epochs:            10,
			EpochLength:       100,
			Horizon:           0,
			TestEpochLength:   500,
			TestPeriod:        1,
			LearningRate:      0.1,
			Discount:          0.9,
			EpsilonStart:      1.0,
			EpsilonMin:        0.1,
			EpsilonDecaySteps: 1000,
			Temperature:       0.1,
			ExplorationBonus:  0.5,
			Seed:              123456,
		},
		Record: RecordConfig{
			Path: "results",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7080",
		},
	}
}

// Load returns the defaults overridden by the file at path, if any,
// and by the environment
func Load(path string) (*LaunchConfig, error) {
	config := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*LaunchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Validate checks that the configuration can run
func (c *LaunchConfig) Validate() error {
	if c.Chain.NStates < 1 {
		return fmt.Errorf("n_states must be at least 1, got %d", c.Chain.NStates)
	}
	if c.Chain.Step <= 0 {
		return fmt.Errorf("step must be positive, got %v", c.Chain.Step)
	}
	if c.Agent.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", c.Agent.Runs)
	}
	if c.Agent.Epochs < 1 {
		return fmt.Errorf("epochs must be at least 1, got %d", c.Agent.Epochs)
	}
	if c.Agent.EpochLength < 1 {
		return fmt.Errorf("epoch_length must be at least 1, got %d", c.Agent.EpochLength)
	}
	if c.Agent.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", c.Agent.Horizon)
	}
	if c.Agent.TestEpochLength < 0 {
		return fmt.Errorf("test_epoch_length must be non-negative, got %d", c.Agent.TestEpochLength)
	}
	if c.Agent.LearningRate <= 0 || c.Agent.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", c.Agent.LearningRate)
	}
	if c.Agent.Discount < 0 || c.Agent.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1], got %v", c.Agent.Discount)
	}
	if c.Agent.EpsilonMin < 0 || c.Agent.EpsilonStart > 1 || c.Agent.EpsilonMin > c.Agent.EpsilonStart {
		return fmt.Errorf("epsilon must satisfy 0 <= min (%v) <= start (%v) <= 1", c.Agent.EpsilonMin, c.Agent.EpsilonStart)
	}
	if c.Agent.ExplorationBonus < 0 {
		return fmt.Errorf("exploration_bonus must be non-negative, got %v", c.Agent.ExplorationBonus)
	}
	if c.Record.Path == "" {
		return fmt.Errorf("record path must be set")
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies CHAIN_* environment variables to the config
func applyEnvOverrides(config *LaunchConfig) error {
	ints := map[string]*int{
		"CHAIN_N_STATES":    &config.Chain.NStates,
		"CHAIN_RUNS":        &config.Agent.Runs,
		"CHAIN_EPOCHS":      &config.Agent.Epochs,
		"CHAIN_EPOCH_LEN":   &config.Agent.EpochLength,
		"CHAIN_TEST_LEN":    &config.Agent.TestEpochLength,
		"CHAIN_REDIS_DB":    &config.Redis.DB,
		"CHAIN_TEST_PERIOD": &config.Agent.TestPeriod,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", name, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"CHAIN_STEP":          &config.Chain.Step,
		"CHAIN_LEARNING_RATE": &config.Agent.LearningRate,
		"CHAIN_DISCOUNT":      &config.Agent.Discount,
	}
	for name, dst := range floats {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", name, err)
			}
			*dst = f
		}
	}

	if v := os.Getenv("CHAIN_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing CHAIN_SEED: %w", err)
		}
		config.Agent.Seed = seed
	}
	if v := os.Getenv("CHAIN_RECORD_PATH"); v != "" {
		config.Record.Path = v
	}
	if v := os.Getenv("CHAIN_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CHAIN_REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
	}
	if v := os.Getenv("CHAIN_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}
	return nil
}
