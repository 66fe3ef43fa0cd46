package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zeu5/chain-rl/util"
)

type experimentRunConfig struct {
	// execution configuration
	CurrentRun  int
	Epochs      int
	EpochLength int
	Horizon     int
	Analyzers   []Analyzer
	Context     context.Context

	// record flags
	RecordTraces bool
	RecordPolicy bool

	ReportSavePath string
	Output         *ProgressOutput
	Logger         *slog.Logger

	//misc
	LongestExpNameLen int
}

// Recorder is implemented by policies that can store what they learnt
type Recorder interface {
	Record(string) error
}

// Experiment encapsulates the different parameters to configure an agent and analyze the traces
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
	controllers []Controller
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, policy Policy, environment Environment, controllers ...Controller) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
		controllers: controllers,
	}
}

func (e *Experiment) Policy() Policy {
	return e.policy
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *Trace) error {
	tracesFile := path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	return util.AppendToFile(tracesFile, string(bs))
}

// Run the experiment for the configured number of epochs
// Every episode is passed to the analyzers
func (e *Experiment) Run(rConfig *experimentRunConfig) error {
	select {
	case <-rConfig.Context.Done():
		return rConfig.Context.Err()
	default:
	}

	agent := NewAgent(&AgentConfig{
		Epochs:      rConfig.Epochs,
		EpochLength: rConfig.EpochLength,
		Horizon:     rConfig.Horizon,
		Policy:      e.policy,
		Environment: e.environment,
		Controllers: e.controllers,
	})

	trainingEpisodes := 0
	testEpisodes := 0
	trainingReward := 0.0
	testReward := 0.0
	var recordErr error

	agent.OnEpisode(func(eCtx *EpisodeContext) {
		eCtx.Run = rConfig.CurrentRun
		if eCtx.Mode.Training() {
			trainingEpisodes += 1
			trainingReward += eCtx.TotalReward()
		} else {
			testEpisodes += 1
			testReward += eCtx.TotalReward()
		}

		if rConfig.RecordTraces && recordErr == nil {
			recordErr = e.recordTrace(rConfig, eCtx.Trace)
		}

		// analyze the trace, even if the episode ended with an error
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, e.Name, eCtx)
		}

		// terminal execution display
		rConfig.Output.TrySet(fmt.Sprintf("Exp:%*s, Epoch:%3d/%d, Train Eps:%6d [R %8.2f], Test Eps:%6d [R %8.2f]",
			rConfig.LongestExpNameLen, e.Name, eCtx.Epoch+1, rConfig.Epochs,
			trainingEpisodes, trainingReward, testEpisodes, testReward))
	})

	if err := agent.Run(rConfig.Context); err != nil {
		return fmt.Errorf("experiment %s: %w", e.Name, err)
	}
	if recordErr != nil {
		rConfig.Logger.Warn("could not record traces", "experiment", e.Name, "error", recordErr)
	}

	if rConfig.RecordPolicy {
		if r, ok := e.policy.(Recorder); ok {
			policyPath := path.Join(rConfig.ReportSavePath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".json")
			if err := r.Record(policyPath); err != nil {
				return fmt.Errorf("recording policy of %s: %w", e.Name, err)
			}
		}
	}
	return nil
}

// Reset clears what the policy learnt, runs are independent
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// Run, experiment, finished episode
	Analyze(int, string, *EpisodeContext)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, experiment names, datasets
type Comparator func(int, []string, []DataSet)

// MultiComparator calls every comparator on the same datasets, in order
func MultiComparator(comparators ...Comparator) Comparator {
	return func(run int, names []string, ds []DataSet) {
		for _, c := range comparators {
			c(run, names, ds)
		}
	}
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs        int // number of runs
	Epochs      int // number of training epochs
	EpochLength int // number of steps per training epoch
	Horizon     int // maximum steps per episode

	RecordPath string // path to store the results

	// record flags
	RecordTraces bool
	RecordPolicy bool

	// terminal progress, os.Stdout when nil
	Out    io.Writer
	Logger *slog.Logger
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig

	out := make(map[string]interface{})
	out["id"] = c.ID
	out["runs"] = cfg.Runs
	out["epochs"] = cfg.Epochs
	out["epoch_length"] = cfg.EpochLength
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces
	out["record_policy"] = cfg.RecordPolicy

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	out["analyzers"] = c.analyzerNames

	bs, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(cfg.RecordPath, "comparison_config.json"), bs, 0644)
}

// Comparison contains the different experiments to compare
// The traces obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	ID          string
	Experiments []*Experiment
	// analyzers and comparators are kept in insertion order
	analyzerNames []string
	analyzers     map[string]Analyzer
	comparators   map[string]Comparator
	cConfig       *ComparisonConfig
}

// NewComparison creates a comparison instance and prepares the record folder
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if config.Runs <= 0 {
		return nil, errors.New("comparison needs at least one run")
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if _, err := os.Stat(config.RecordPath); err == nil {
		if err := RemoveContents(config.RecordPath); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(config.RecordPath, 0777); err != nil {
		return nil, err
	}

	foldersToCreate := make([]string, 0)
	if config.RecordTraces {
		foldersToCreate = append(foldersToCreate, "traces")
	}
	if config.RecordPolicy {
		foldersToCreate = append(foldersToCreate, "policies")
	}
	for _, s := range foldersToCreate {
		if err := os.MkdirAll(path.Join(config.RecordPath, s), 0777); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		ID:            uuid.New().String(),
		Experiments:   make([]*Experiment, 0),
		analyzerNames: make([]string, 0),
		analyzers:     make(map[string]Analyzer),
		comparators:   make(map[string]Comparator),
		cConfig:       config,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	if _, ok := c.analyzers[name]; !ok {
		c.analyzerNames = append(c.analyzerNames, name)
	}
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// Run the comparison
// A failing experiment is logged and the comparison moves on to the next one
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil { // store configuration details to a file
		return fmt.Errorf("recording comparison config: %w", err)
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	for run := 0; run < c.cConfig.Runs; run++ { // number of runs
		fmt.Fprintf(c.cConfig.Out, "Run %d\n", run+1)
		datasets := make(map[string][]DataSet)
		for _, name := range c.analyzerNames {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			output := NewProgressOutput()
			printer := NewTerminalPrinter(ctx, c.cConfig.Out, output, 200*time.Millisecond)
			printer.Start()
			err := e.Run(c.prepareRunConfig(ctx, run, output, longestNameLen))
			printer.Stop()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.cConfig.Logger.Error("experiment failed", "experiment", e.Name, "run", run+1, "error", err)
			}
			for _, name := range c.analyzerNames {
				a := c.analyzers[name]
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
			e.Reset()
		}
		for _, name := range c.analyzerNames {
			c.comparators[name](run, names, datasets[name])
		}
	}
	return nil
}

// prepare the run configuration for the experiment
func (c *Comparison) prepareRunConfig(ctx context.Context, run int, output *ProgressOutput, longestExpNameLen int) *experimentRunConfig {
	rCfg := &experimentRunConfig{
		CurrentRun:     run,
		Epochs:         c.cConfig.Epochs,
		EpochLength:    c.cConfig.EpochLength,
		Horizon:        c.cConfig.Horizon,
		Analyzers:      make([]Analyzer, 0),
		RecordTraces:   c.cConfig.RecordTraces,
		RecordPolicy:   c.cConfig.RecordPolicy,
		ReportSavePath: c.cConfig.RecordPath,
		Context:        ctx,
		Output:         output,
		Logger:         c.cConfig.Logger,

		LongestExpNameLen: longestExpNameLen,
	}

	for _, name := range c.analyzerNames {
		rCfg.Analyzers = append(rCfg.Analyzers, c.analyzers[name])
	}
	return rCfg
}

// RemoveContents deletes everything inside dir
func RemoveContents(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	names, err := d.Readdirnames(-1)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.RemoveAll(path.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
