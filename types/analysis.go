package types

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// EpochReward is the mean episode reward of one epoch
type EpochReward struct {
	Epoch      int     `json:"epoch"`
	Episodes   int     `json:"episodes"`
	MeanReward float64 `json:"mean_reward"`
	StdDev     float64 `json:"std_dev"`
}

// RewardDataSet holds the per-epoch rewards of training and test epochs
type RewardDataSet struct {
	Train []EpochReward `json:"train"`
	Test  []EpochReward `json:"test"`
}

// LastTest returns the last test epoch, false if no test epoch was run
func (r *RewardDataSet) LastTest() (EpochReward, bool) {
	if len(r.Test) == 0 {
		return EpochReward{}, false
	}
	return r.Test[len(r.Test)-1], true
}

type RewardAnalyzer struct {
	dataSet *RewardDataSet

	curEpoch int
	curMode  Mode
	rewards  []float64
}

var _ Analyzer = &RewardAnalyzer{}

func NewRewardAnalyzer() *RewardAnalyzer {
	r := &RewardAnalyzer{}
	r.Reset()
	return r
}

func (r *RewardAnalyzer) Analyze(_ int, _ string, eCtx *EpisodeContext) {
	if len(r.rewards) > 0 && (eCtx.Epoch != r.curEpoch || eCtx.Mode != r.curMode) {
		r.flush()
	}
	r.curEpoch = eCtx.Epoch
	r.curMode = eCtx.Mode
	r.rewards = append(r.rewards, eCtx.TotalReward())
}

func (r *RewardAnalyzer) flush() {
	if len(r.rewards) == 0 {
		return
	}
	mean, std := stat.MeanStdDev(r.rewards, nil)
	if len(r.rewards) == 1 {
		std = 0
	}
	entry := EpochReward{
		Epoch:      r.curEpoch,
		Episodes:   len(r.rewards),
		MeanReward: mean,
		StdDev:     std,
	}
	if r.curMode.Training() {
		r.dataSet.Train = append(r.dataSet.Train, entry)
	} else {
		r.dataSet.Test = append(r.dataSet.Test, entry)
	}
	r.rewards = make([]float64, 0)
}

func (r *RewardAnalyzer) DataSet() DataSet {
	r.flush()
	return r.dataSet
}

func (r *RewardAnalyzer) Reset() {
	r.dataSet = &RewardDataSet{
		Train: make([]EpochReward, 0),
		Test:  make([]EpochReward, 0),
	}
	r.rewards = make([]float64, 0)
	r.curEpoch = 0
	r.curMode = ModeTraining
}

// RewardPlotter plots the mean test reward per epoch of every experiment
func RewardPlotter(plotPath string, logger *slog.Logger) Comparator {
	if _, err := os.Stat(plotPath); err != nil {
		if err := os.MkdirAll(plotPath, os.ModePerm); err != nil {
			logger.Warn("could not create rewards folder", "path", plotPath, "error", err)
		}
	}
	return func(run int, names []string, ds []DataSet) {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Epoch"
		p.Y.Label.Text = "Mean episode reward"
		for i := 0; i < len(names); i++ {
			dataSet, ok := ds[i].(*RewardDataSet)
			if !ok {
				continue
			}
			series := dataSet.Test
			if len(series) == 0 {
				series = dataSet.Train
			}
			points := make(plotter.XYs, len(series))
			for j, e := range series {
				points[j] = plotter.XY{
					X: float64(e.Epoch + 1),
					Y: e.MeanReward,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		if err := p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_rewards.png")); err != nil {
			logger.Warn("could not save rewards plot", "error", err)
		}
	}
}

// RewardSummaryComparator logs the last test score of every experiment
func RewardSummaryComparator(logger *slog.Logger) Comparator {
	return func(run int, names []string, ds []DataSet) {
		for i := 0; i < len(names); i++ {
			dataSet, ok := ds[i].(*RewardDataSet)
			if !ok {
				continue
			}
			last, ok := dataSet.LastTest()
			if !ok {
				logger.Info("no test epoch", "run", run+1, "experiment", names[i])
				continue
			}
			logger.Info("final test score",
				"run", run+1,
				"experiment", names[i],
				"epoch", last.Epoch+1,
				"mean_reward", fmt.Sprintf("%.3f", last.MeanReward),
				"std_dev", fmt.Sprintf("%.3f", last.StdDev),
			)
		}
	}
}
