package chain

import (
	"log/slog"
	"os"
	"path"
	"strconv"

	"github.com/zeu5/chain-rl/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// VisitsDataSet counts the visits of every chain position during training
type VisitsDataSet struct {
	Graph   *types.VisitGraph
	NStates int
	Step    float64
}

// Visits per position, bottom to top
func (v *VisitsDataSet) Visits() []int {
	visits := make([]int, v.NStates)
	for i, s := range PositionStates(v.NStates, v.Step) {
		if n, ok := v.Graph.Nodes[s.Hash()]; ok {
			visits[i] = n.Visits
		}
	}
	return visits
}

type VisitsAnalyzer struct {
	nStates int
	step    float64
	graph   *types.VisitGraph
}

var _ types.Analyzer = &VisitsAnalyzer{}

func NewVisitsAnalyzer(nStates int, step float64) *VisitsAnalyzer {
	return &VisitsAnalyzer{
		nStates: nStates,
		step:    step,
		graph:   types.NewVisitGraph(),
	}
}

// Analyze counts the training transitions only
func (v *VisitsAnalyzer) Analyze(_ int, _ string, eCtx *types.EpisodeContext) {
	if !eCtx.Mode.Training() {
		return
	}
	trace := eCtx.Trace
	for i := 0; i < trace.Len(); i++ {
		state, action, _, nextState, _ := trace.Get(i)
		v.graph.Update(state, action.Hash(), nextState)
	}
}

func (v *VisitsAnalyzer) DataSet() types.DataSet {
	return &VisitsDataSet{
		Graph:   v.graph,
		NStates: v.nStates,
		Step:    v.step,
	}
}

func (v *VisitsAnalyzer) Reset() {
	v.graph = types.NewVisitGraph()
}

// MergeVisitsDatasets sums the visits of several datasets of the same chain
func MergeVisitsDatasets(dataSets []types.DataSet) types.DataSet {
	merged := &VisitsDataSet{Graph: types.NewVisitGraph()}
	for _, d := range dataSets {
		vd, ok := d.(*VisitsDataSet)
		if !ok {
			continue
		}
		if vd.NStates > merged.NStates {
			merged.NStates = vd.NStates
			merged.Step = vd.Step
		}
		merged.Graph.Merge(vd.Graph)
	}
	return merged
}

// VisitsComparator records the visit graph of every experiment as JSON
// and plots the visits per position as a bar chart.
// The visits summed over all the runs so far are kept in all_<experiment>_visits.json
func VisitsComparator(figPath string, logger *slog.Logger) types.Comparator {
	if _, err := os.Stat(figPath); err != nil {
		if err := os.MkdirAll(figPath, os.ModePerm); err != nil {
			logger.Warn("could not create visits folder", "path", figPath, "error", err)
		}
	}
	totals := make(map[string]types.DataSet)
	return func(run int, names []string, ds []types.DataSet) {
		p := plot.New()
		p.Title.Text = "Visits per position"
		p.X.Label.Text = "Position"
		p.Y.Label.Text = "Visits"

		barWidth := vg.Points(12)
		var labels []string
		for i := 0; i < len(names); i++ {
			dataSet, ok := ds[i].(*VisitsDataSet)
			if !ok {
				continue
			}
			prefix := strconv.Itoa(run) + "_" + names[i]
			if err := dataSet.Graph.Record(path.Join(figPath, prefix+"_visits.json")); err != nil {
				logger.Warn("could not record visits", "experiment", names[i], "error", err)
			}
			total := MergeVisitsDatasets([]types.DataSet{totals[names[i]], dataSet}).(*VisitsDataSet)
			totals[names[i]] = total
			if err := total.Graph.Record(path.Join(figPath, "all_"+names[i]+"_visits.json")); err != nil {
				logger.Warn("could not record total visits", "experiment", names[i], "error", err)
			}

			visits := dataSet.Visits()
			values := make(plotter.Values, len(visits))
			for j, v := range visits {
				values[j] = float64(v)
			}
			bars, err := plotter.NewBarChart(values, barWidth)
			if err != nil {
				continue
			}
			bars.Color = plotutil.Color(i)
			bars.LineStyle.Width = vg.Length(0)
			bars.Offset = barWidth * vg.Length(i)
			p.Add(bars)
			p.Legend.Add(names[i], bars)

			if labels == nil {
				labels = make([]string, 0, len(visits))
				for _, s := range PositionStates(dataSet.NStates, dataSet.Step) {
					labels = append(labels, s.Hash())
				}
			}
		}
		if labels != nil {
			p.NominalX(labels...)
		}
		if err := p.Save(8*vg.Inch, 6*vg.Inch, path.Join(figPath, strconv.Itoa(run)+"_visits.png")); err != nil {
			logger.Warn("could not save visits plot", "error", err)
		}
	}
}
