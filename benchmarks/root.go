package benchmarks

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zeu5/chain-rl/config"
)

var (
	epochs          int
	epochLength     int
	testEpochLength int
	runs            int
	saveFile        string
	configFile      string
	logLevel        string
	seed            uint64
	cpuprofile      string
	memprofile      string
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:          "chain-rl",
		Short:        "Train tabular agents on the chain environment",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadDotEnv()
		},
	}
	rootCommand.PersistentFlags().IntVar(&epochs, "epochs", 10, "Number of training epochs")
	rootCommand.PersistentFlags().IntVar(&epochLength, "epoch-length", 100, "Number of steps of each training epoch")
	rootCommand.PersistentFlags().IntVar(&testEpochLength, "test-epoch-length", 500, "Number of steps of each test epoch, 0 disables them")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", 123456, "Seed of the policies random generators")
	rootCommand.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile to this file")
	rootCommand.PersistentFlags().StringVar(&memprofile, "memprofile", "", "Write a memory profile to this file")
	// adding the subcommands here
	rootCommand.AddCommand(ChainCommand())
	rootCommand.AddCommand(ServeCommand())
	return rootCommand
}

// loadDotEnv loads the first .env file found, variables already set win
func loadDotEnv() {
	for _, envFile := range []string{
		".env",
		"../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
}

// resolveConfig merges defaults, config file, environment and the flags set on the command line
func resolveConfig(cmd *cobra.Command) (*config.LaunchConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("epochs") {
		cfg.Agent.Epochs = epochs
	}
	if flags.Changed("epoch-length") {
		cfg.Agent.EpochLength = epochLength
	}
	if flags.Changed("test-epoch-length") {
		cfg.Agent.TestEpochLength = testEpochLength
	}
	if flags.Changed("runs") {
		cfg.Agent.Runs = runs
	}
	if flags.Changed("save") {
		cfg.Record.Path = saveFile
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("seed") {
		cfg.Agent.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
