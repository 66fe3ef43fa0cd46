package main

import (
	"os"

	"github.com/zeu5/chain-rl/benchmarks"
)

// main entry point to the chain experiments and the environment server
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
