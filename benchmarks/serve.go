package benchmarks

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeu5/chain-rl/chain"
	"github.com/zeu5/chain-rl/util"
)

// ServeCommand exposes a single chain environment over HTTP until interrupted
func ServeCommand() *cobra.Command {
	var addr string
	var nStates int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chain environment over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("n-states") {
				cfg.Chain.NStates = nStates
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := util.NewLogger(cfg.Logging.Level, os.Stderr)

			chainCfg := chain.DefaultChainConfig()
			chainCfg.NStates = cfg.Chain.NStates
			chainCfg.Step = cfg.Chain.Step
			chainCfg.Logger = logger
			env, err := chain.NewChainEnv(chainCfg)
			if err != nil {
				return err
			}

			ctx, done := interruptContext()
			defer done()

			server := chain.NewServer(ctx, cfg.Server.Addr, env, logger)
			server.Start()
			logger.Info("serving chain environment", "addr", cfg.Server.Addr, "n_states", env.NStates(), "step", env.Step())
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s, interrupt to stop\n", cfg.Server.Addr)

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7080", "Address to listen on")
	cmd.Flags().IntVar(&nStates, "n-states", 10, "Number of positions in the chain")
	return cmd
}
