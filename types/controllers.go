package types

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Controller receives the agent events, in the order they are attached
type Controller interface {
	OnStart(*Agent)
	OnEpochStart(*Agent, int)
	OnActionTaken(*Agent, *StepContext)
	OnEpisodeEnd(*Agent, *EpisodeContext)
	OnEpochEnd(*Agent, *EpochResult)
	OnEnd(*Agent)
}

// BaseController ignores every event, embed it to override only some
type BaseController struct{}

var _ Controller = BaseController{}

func (BaseController) OnStart(*Agent)                       {}
func (BaseController) OnEpochStart(*Agent, int)             {}
func (BaseController) OnActionTaken(*Agent, *StepContext)   {}
func (BaseController) OnEpisodeEnd(*Agent, *EpisodeContext) {}
func (BaseController) OnEpochEnd(*Agent, *EpochResult)      {}
func (BaseController) OnEnd(*Agent)                         {}

// VerboseController logs the epoch number and the policy parameters
// before every training epoch
type VerboseController struct {
	BaseController
	logger *slog.Logger
}

func NewVerboseController(logger *slog.Logger) *VerboseController {
	return &VerboseController{logger: logger}
}

func (v *VerboseController) OnEpochStart(a *Agent, epoch int) {
	attrs := []any{"epoch", epoch + 1, "of", a.config.Epochs}
	if p, ok := a.policy.(ParamsProvider); ok {
		params := p.Params()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, k, params[k])
		}
	}
	v.logger.Info("starting training epoch", attrs...)
}

// TrainerController updates the policy after every training action and
// reports the mean TD error and mean value at the end of each training episode
type TrainerController struct {
	BaseController
	logger *slog.Logger

	tdErrors []float64
	values   []float64
}

func NewTrainerController(logger *slog.Logger) *TrainerController {
	return &TrainerController{
		logger:   logger,
		tdErrors: make([]float64, 0),
		values:   make([]float64, 0),
	}
}

func (t *TrainerController) OnActionTaken(a *Agent, sCtx *StepContext) {
	if !sCtx.Mode.Training() {
		return
	}
	td := a.policy.Update(sCtx)
	t.tdErrors = append(t.tdErrors, math.Abs(td))
	if q, ok := a.policy.(QValuer); ok {
		if v, ok := maxValue(q.QValues(sCtx.State)); ok {
			t.values = append(t.values, v)
		}
	}
}

func (t *TrainerController) OnEpisodeEnd(a *Agent, eCtx *EpisodeContext) {
	if !eCtx.Mode.Training() {
		return
	}
	a.policy.UpdateIteration(eCtx)
	if len(t.tdErrors) > 0 {
		t.logger.Debug("training episode done",
			"episode", eCtx.Episode,
			"steps", eCtx.Timesteps,
			"reward", eCtx.TotalReward(),
			"mean_td_error", mean(t.tdErrors),
			"mean_value", mean(t.values),
		)
	}
	t.tdErrors = t.tdErrors[:0]
	t.values = t.values[:0]
}

// InterleavedTestEpochController runs a greedy test epoch after every
// period training epochs
type InterleavedTestEpochController struct {
	BaseController
	logger      *slog.Logger
	epochLength int
	period      int

	// mean episode reward of every test epoch, in order
	Scores []float64
}

func NewInterleavedTestEpochController(epochLength, period int, logger *slog.Logger) *InterleavedTestEpochController {
	if period <= 0 {
		period = 1
	}
	return &InterleavedTestEpochController{
		logger:      logger,
		epochLength: epochLength,
		period:      period,
		Scores:      make([]float64, 0),
	}
}

func (i *InterleavedTestEpochController) OnStart(_ *Agent) {
	i.Scores = i.Scores[:0]
}

func (i *InterleavedTestEpochController) OnEpochEnd(a *Agent, result *EpochResult) {
	if !result.Mode.Training() || (result.Epoch+1)%i.period != 0 {
		return
	}
	testResult, err := a.RunEpoch(a.Context(), result.Epoch, ModeTest, i.epochLength)
	if err != nil {
		i.logger.Error("test epoch failed", "epoch", result.Epoch+1, "error", err)
		return
	}
	score := testResult.MeanEpisodeReward()
	i.Scores = append(i.Scores, score)
	i.logger.Info("test epoch done",
		"epoch", result.Epoch+1,
		"episodes", testResult.Episodes,
		"total_reward", testResult.Reward,
		"mean_episode_reward", score,
	)
	if s, ok := a.environment.(Summarizer); ok {
		s.SummarizePerformance(testResult)
	}
}

func maxValue(values map[string]float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m, true
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}
