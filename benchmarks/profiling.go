package benchmarks

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
)

// startProfiling starts the profiles requested by the flags,
// the returned function stops them and writes the memory profile.
// Profiles live outside the save folder, which is wiped by every comparison.
func startProfiling(logger *slog.Logger) (func(), error) {
	stops := make([]func(), 0)
	if cpuprofile != "" {
		cpuProfPath := cpuprofile
		logger.Info("profiling CPU", "path", cpuProfPath)
		f, err := os.Create(cpuProfPath)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %w", err)
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}

	if memprofile != "" {
		memProfPath := memprofile
		stops = append(stops, func() {
			logger.Info("profiling memory", "path", memProfPath)
			f, err := os.Create(memProfPath)
			if err != nil {
				logger.Error("could not create memory profile", "error", err)
				return
			}
			defer f.Close()
			runtime.GC() // get up-to-date statistics
			if err := pprof.WriteHeapProfile(f); err != nil {
				logger.Error("could not write memory profile", "error", err)
			}
		})
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}, nil
}
