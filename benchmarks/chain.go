package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/zeu5/chain-rl/chain"
	"github.com/zeu5/chain-rl/config"
	"github.com/zeu5/chain-rl/policies"
	"github.com/zeu5/chain-rl/types"
	"github.com/zeu5/chain-rl/util"
	"gopkg.in/yaml.v3"
)

// ChainResult is what the reference Q-learning experiment learnt in the last run
type ChainResult struct {
	ComparisonID string
	// position -> move -> value
	QValues map[string]map[string]float64
	// mean episode reward of every test epoch
	TestScores []float64
}

// RunChain trains a Q-learning agent on the chain and compares it with
// softmax, visit bonus and random baselines
func RunChain(ctx context.Context, cfg *config.LaunchConfig, logger *slog.Logger, out io.Writer) (*ChainResult, error) {
	agentCfg := cfg.Agent
	c, err := types.NewComparison(&types.ComparisonConfig{
		Runs:        agentCfg.Runs,
		Epochs:      agentCfg.Epochs,
		EpochLength: agentCfg.EpochLength,
		Horizon:     agentCfg.Horizon,
		RecordPath:  cfg.Record.Path,
		// record flags
		RecordTraces: cfg.Record.Traces,
		RecordPolicy: cfg.Record.Policy,

		Out:    out,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	// after this NewComparison call, the folder is not wiped anymore

	rewardComparators := []types.Comparator{
		types.RewardPlotter(path.Join(cfg.Record.Path, "rewards"), logger),
		types.RewardSummaryComparator(logger),
	}
	if cfg.Redis.Addr != "" {
		cli := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		defer cli.Close()
		rewardComparators = append(rewardComparators, types.RedisRewardPublisher(cli, c.ID, logger))
	}
	c.AddAnalysis("Rewards", types.NewRewardAnalyzer(), types.MultiComparator(rewardComparators...))
	c.AddAnalysis("Visits", chain.NewVisitsAnalyzer(cfg.Chain.NStates, cfg.Chain.Step), chain.VisitsComparator(path.Join(cfg.Record.Path, "visits"), logger))
	invariantsPath := path.Join(cfg.Record.Path, "invariants")
	c.AddAnalysis(
		"Invariants",
		types.NewInvariantAnalyzer(invariantsPath, logger, chain.Invariants(cfg.Chain.NStates, cfg.Chain.Step)...),
		types.InvariantComparator(invariantsPath, logger),
	)

	newEnv := func() (*chain.Adapter, error) {
		chainCfg := chain.DefaultChainConfig()
		chainCfg.NStates = cfg.Chain.NStates
		chainCfg.Step = cfg.Chain.Step
		chainCfg.Logger = logger
		return chain.NewChainEnvironment(chainCfg)
	}
	// every experiment gets its own environment, they never share state
	envs := make([]*chain.Adapter, 4)
	for i := range envs {
		env, err := newEnv()
		if err != nil {
			return nil, err
		}
		envs[i] = env
	}

	qConfig := policies.QLearningConfig{
		LearningRate:      agentCfg.LearningRate,
		Discount:          agentCfg.Discount,
		EpsilonStart:      agentCfg.EpsilonStart,
		EpsilonMin:        agentCfg.EpsilonMin,
		EpsilonDecaySteps: agentCfg.EpsilonDecaySteps,
		Seed:              agentCfg.Seed,
	}
	testControllers := func() []types.Controller {
		if agentCfg.TestEpochLength == 0 {
			return nil
		}
		return []types.Controller{types.NewInterleavedTestEpochController(agentCfg.TestEpochLength, agentCfg.TestPeriod, logger)}
	}

	qValues := chain.NewQValuesController(cfg.Chain.NStates, cfg.Chain.Step, logger)
	qTests := testControllers()
	qControllers := []types.Controller{
		// Before every training epoch, log the epoch number and the policy parameters
		types.NewVerboseController(logger),
		// Update the policy after every training action, report TD errors per episode
		types.NewTrainerController(logger),
	}
	// Interleave a test epoch between training epochs
	qControllers = append(qControllers, qTests...)
	qControllers = append(qControllers, qValues)
	c.AddExperiment(types.NewExperiment("qlearning", policies.NewQLearningPolicy(qConfig), envs[0], qControllers...))

	softmaxControllers := append([]types.Controller{types.NewTrainerController(logger)}, testControllers()...)
	c.AddExperiment(types.NewExperiment("softmax", policies.NewSoftMaxPolicy(qConfig, agentCfg.Temperature), envs[1], softmaxControllers...))

	bonusControllers := append([]types.Controller{types.NewTrainerController(logger)}, testControllers()...)
	c.AddExperiment(types.NewExperiment("bonus", policies.NewBonusPolicy(qConfig, agentCfg.ExplorationBonus), envs[2], bonusControllers...))

	c.AddExperiment(types.NewExperiment("random", types.NewRandomPolicy(agentCfg.Seed), envs[3], testControllers()...))

	if err := recordLaunchConfig(cfg); err != nil {
		logger.Warn("could not record launch config", "error", err)
	}

	if err := c.Run(ctx); err != nil {
		return nil, err
	}

	result := &ChainResult{
		ComparisonID: c.ID,
		QValues:      qValues.Values,
		TestScores:   make([]float64, 0),
	}
	if len(qTests) > 0 {
		result.TestScores = qTests[0].(*types.InterleavedTestEpochController).Scores
	}
	return result, nil
}

// print the resolved configuration next to the results
func recordLaunchConfig(cfg *config.LaunchConfig) error {
	bs, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return util.WriteToFile(path.Join(cfg.Record.Path, "config.yaml"), string(bs))
}

// interruptContext is cancelled on os interrupt or when done is called
func interruptContext() (context.Context, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt) // channel for interrupts from os

	doneCh := make(chan struct{}) // channel for done signal from application

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
		case <-doneCh:
		}
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, func() { close(doneCh) }
}

func ChainCommand() *cobra.Command {
	var nStates int
	var redisAddr string

	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Train a Q-learning agent on the chain environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("n-states") {
				cfg.Chain.NStates = nStates
			}
			if cmd.Flags().Changed("redis") {
				cfg.Redis.Addr = redisAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := util.NewLogger(cfg.Logging.Level, os.Stderr)

			ctx, done := interruptContext()
			defer done()

			stopProfiling, err := startProfiling(logger)
			if err != nil {
				return err
			}
			defer stopProfiling()

			result, err := RunChain(ctx, cfg, logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comparison %s done, results in %s\n", result.ComparisonID, cfg.Record.Path)
			return nil
		},
	}
	cmd.Flags().IntVar(&nStates, "n-states", 10, "Number of positions in the chain")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address to publish the rewards to")
	return cmd
}
