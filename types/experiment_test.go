package types

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/zeu5/chain-rl/util"
)

type recordingPolicy struct {
	countingPolicy
	resets int
}

func (p *recordingPolicy) Reset() {
	p.resets++
}

func (p *recordingPolicy) Record(filePath string) error {
	return util.WriteToFile(filePath, "{}")
}

func TestComparisonRun(t *testing.T) {
	dir := path.Join(t.TempDir(), "results")
	// stale files are wiped
	if err := util.WriteToFile(path.Join(dir, "stale.txt"), "old"); err != nil {
		t.Fatalf("writing stale file: %s", err)
	}
	out := new(bytes.Buffer)
	c, err := NewComparison(&ComparisonConfig{
		Runs:         2,
		Epochs:       2,
		EpochLength:  4,
		Horizon:      2,
		RecordPath:   dir,
		RecordTraces: true,
		RecordPolicy: true,
		Out:          out,
		Logger:       util.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("creating comparison: %s", err)
	}
	if c.ID == "" {
		t.Errorf("expected a comparison id")
	}
	if _, err := os.Stat(path.Join(dir, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("expected the record folder to be wiped")
	}

	policy := &recordingPolicy{}
	c.AddExperiment(NewExperiment("counter", policy, &counterEnv{}))

	comparisons := 0
	var order []string
	var seen []DataSet
	c.AddAnalysis("Rewards", NewRewardAnalyzer(), MultiComparator(
		func(run int, names []string, ds []DataSet) {
			comparisons++
			order = append(order, "first")
			seen = ds
		},
		func(run int, names []string, ds []DataSet) {
			order = append(order, "second")
		},
	))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("running comparison: %s", err)
	}
	if comparisons != 2 {
		t.Errorf("expected a comparison per run, got %d", comparisons)
	}
	if len(order) != 4 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected the comparators to run in order, got %v", order)
	}
	if policy.resets != 2 {
		t.Errorf("expected the policy to be reset after every run, got %d", policy.resets)
	}
	ds := seen[0].(*RewardDataSet)
	if len(ds.Train) != 2 || ds.Train[0].Episodes != 2 || ds.Train[0].MeanReward != 2 {
		t.Errorf("unexpected rewards of the last run %+v", ds)
	}

	for _, f := range []string{"comparison_config.json", "traces/counter_0.jsonl", "traces/counter_1.jsonl", "policies/counter_1.json"} {
		if _, err := os.Stat(path.Join(dir, f)); err != nil {
			t.Errorf("expected %s to be written: %s", f, err)
		}
	}
	// 2 epochs of 2 episodes
	file, err := os.Open(path.Join(dir, "traces", "counter_0.jsonl"))
	if err != nil {
		t.Fatalf("opening traces: %s", err)
	}
	defer file.Close()
	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
	}
	if lines != 4 {
		t.Errorf("expected 4 recorded traces, got %d", lines)
	}
	if !strings.Contains(out.String(), "Run 2") {
		t.Errorf("expected the progress output to mention run 2, got %q", out.String())
	}
}

func TestComparisonContinuesAfterFailure(t *testing.T) {
	c, err := NewComparison(&ComparisonConfig{
		Runs:        1,
		Epochs:      1,
		EpochLength: 3,
		RecordPath:  t.TempDir(),
		Out:         new(bytes.Buffer),
		Logger:      util.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("creating comparison: %s", err)
	}
	c.AddExperiment(NewExperiment("failing", &countingPolicy{}, &counterEnv{failAt: 1}))
	c.AddExperiment(NewExperiment("working", &countingPolicy{}, &counterEnv{}))

	var names []string
	c.AddAnalysis("Rewards", NewRewardAnalyzer(), func(_ int, n []string, _ []DataSet) {
		names = n
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("a failing experiment should not stop the comparison: %s", err)
	}
	if len(names) != 2 || names[1] != "working" {
		t.Errorf("expected both experiments to be compared, got %v", names)
	}
}

func TestNewComparisonNeedsRuns(t *testing.T) {
	if _, err := NewComparison(&ComparisonConfig{RecordPath: t.TempDir()}); err == nil {
		t.Errorf("expected an error without runs")
	}
}

func TestProgressOutput(t *testing.T) {
	p := NewProgressOutput()
	p.Set("a")
	if !p.TrySet("b") || p.Get() != "b" {
		t.Errorf("expected the output to be b, got %s", p.Get())
	}

	out := new(bytes.Buffer)
	printer := NewTerminalPrinter(context.Background(), out, p, 10)
	printer.Start()
	printer.Stop()
	if !strings.Contains(out.String(), "b") {
		t.Errorf("expected the last status to be printed, got %q", out.String())
	}
}

func TestRemoveContents(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"outtext.txt", "config.yaml", "traces/exp_0.jsonl"} {
		if err := util.WriteToFile(path.Join(dir, f), "old"); err != nil {
			t.Fatalf("writing %s: %s", f, err)
		}
	}
	if err := RemoveContents(dir); err != nil {
		t.Fatalf("removing contents: %s", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %s", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected an empty folder, found %d entries", len(entries))
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("the folder itself should be kept: %s", err)
	}
}
