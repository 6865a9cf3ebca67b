package predictor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/vietoracle/internal/models"
	"github.com/rewired-gh/vietoracle/internal/pattern"
)

func newPredictor(t *testing.T, mutate func(*Config)) *Predictor {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestComebackProbability(t *testing.T) {
	// both 7s are within ±2 of 7, 14 is not
	assert.InDelta(t, 66.67, ComebackProbability([]int{7, 7, 14}, 7, 2, 95), 0.01)
	assert.Equal(t, 0.0, ComebackProbability(nil, 7, 2, 95))
	assert.Equal(t, 95.0, ComebackProbability([]int{5, 6, 7}, 6, 2, 95))
	assert.Equal(t, 0.0, ComebackProbability([]int{1, 2}, 30, 2, 95))
}

func TestContinuousProbability(t *testing.T) {
	activity := []models.ActivityEntry{
		{ContinuousCount: 1}, {ContinuousCount: 2}, {ContinuousCount: 1},
		{ContinuousCount: 1}, {ContinuousCount: 2}, {ContinuousCount: 3},
	}
	tests := []struct {
		name    string
		current int
		strict  bool
		want    float64
	}{
		{"current 1 strict", 1, true, 50},
		{"current 2 strict", 2, true, 100.0 / 3},
		{"current 3 strict", 3, true, 0},
		{"nothing reaches", 4, true, 0},
		{"current 2 loose", 2, false, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ContinuousProbability(activity, tt.current, tt.strict), 1e-9)
		})
	}
}

func TestFrequencyProbability(t *testing.T) {
	p := newPredictor(t, nil)
	tests := []struct {
		name                              string
		appearances, totalDraws, sinceGap int
		want                              float64
	}{
		// expected gap 10
		{"just appeared", 10, 100, 0, 25},
		{"half way", 10, 100, 5, 15},
		{"at expected gap", 10, 100, 10, 5},
		{"overdue", 10, 100, 20, 50},
		{"far overdue", 10, 100, 60, 80},
		{"no appearances", 0, 100, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, p.FrequencyProbability(tt.appearances, tt.totalDraws, tt.sinceGap), 1e-9)
		})
	}
}

func TestRecentTrendAndProbability(t *testing.T) {
	p := newPredictor(t, nil)
	h := &models.TemplateHistory{
		ComebackIntervals: []int{4, 8},
		RecentActivity: []models.ActivityEntry{
			{ComebackInterval: 0}, {ComebackInterval: 4}, {ComebackInterval: 8},
		},
	}
	assert.Equal(t, 6.0, RecentTrend(h, 10))
	assert.Equal(t, 8.0, RecentTrend(h, 1))

	onlyFirst := &models.TemplateHistory{RecentActivity: []models.ActivityEntry{{ComebackInterval: 0}}}
	assert.Equal(t, 0.0, RecentTrend(onlyFirst, 10))

	assert.Equal(t, 50.0, p.TrendProbability(6, 6))
	assert.Equal(t, 40.0, p.TrendProbability(6, 8))
	assert.Equal(t, 0.0, p.TrendProbability(6, 30))
	assert.Equal(t, 0.0, p.TrendProbability(0, 0))
}

func TestConfidenceLevelTiers(t *testing.T) {
	p := newPredictor(t, nil)
	assert.Equal(t, 0, p.ConfidenceLevel(0, 0, 0, 25))
	assert.Equal(t, 20, p.ConfidenceLevel(0, 0, 0, 0), "empty intervals have zero spread")
	assert.Equal(t, 10+10+10+10, p.ConfidenceLevel(5, 2, 5, 15))
	assert.Equal(t, 100, p.ConfidenceLevel(50, 40, 50, 1))
}

func TestConfidenceLevelMonotonic(t *testing.T) {
	p := newPredictor(t, nil)
	within := func(v int) {
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 100)
	}
	for a := 0; a <= 25; a++ {
		for iv := 0; iv <= 12; iv++ {
			for act := 0; act <= 25; act += 5 {
				for _, sd := range []float64{0, 5, 9.9, 10, 15, 19.9, 20, 40} {
					base := p.ConfidenceLevel(a, iv, act, sd)
					within(base)
					assert.GreaterOrEqual(t, p.ConfidenceLevel(a+1, iv, act, sd), base)
					assert.GreaterOrEqual(t, p.ConfidenceLevel(a, iv+1, act, sd), base)
					assert.GreaterOrEqual(t, p.ConfidenceLevel(a, iv, act+1, sd), base)
					assert.GreaterOrEqual(t, p.ConfidenceLevel(a, iv, act, sd/2), base)
				}
			}
		}
	}
}

func TestCompositeIsConvex(t *testing.T) {
	p := newPredictor(t, nil)
	cases := []models.ProbabilityComponents{
		{ComebackPattern: 66.7, ContinuousPattern: 0, FrequencyPattern: 25, RecentTrend: 50},
		{ComebackPattern: 95, ContinuousPattern: 100, FrequencyPattern: 80, RecentTrend: 50},
		{ComebackPattern: 10, ContinuousPattern: 10, FrequencyPattern: 10, RecentTrend: 10},
		{},
	}
	for _, c := range cases {
		got := p.Composite(c)
		lo, hi := minMax(c)
		assert.GreaterOrEqual(t, got, lo-1e-9)
		assert.LessOrEqual(t, got, hi+1e-9)
	}
	assert.InDelta(t, 66.7*0.35+25*0.25+50*0.15, p.Composite(cases[0]), 1e-9)
}

func minMax(c models.ProbabilityComponents) (float64, float64) {
	vals := []float64{c.ComebackPattern, c.ContinuousPattern, c.FrequencyPattern, c.RecentTrend}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// replayed builds a history where template A (all G0) appears on days 0, 7, 14
// and 28, and every other draw is template B (all G1).
func replayed(t *testing.T) (Input, *pattern.Replay) {
	t.Helper()
	appearsA := map[int]bool{0: true, 7: true, 14: true, 28: true}
	var draws []models.Draw
	for day := 0; day <= 35; day += 7 {
		for _, offset := range []int{0, 3} {
			d := day + offset
			numbers := []int{10, 11, 12, 13, 14, 15}
			if offset == 0 && appearsA[d] {
				numbers = []int{1, 2, 3, 4, 5, 6}
			}
			draw, err := models.NewDraw(models.Vietlot45, day0.AddDate(0, 0, d), numbers, 0, 0)
			require.NoError(t, err)
			draws = append(draws, draw)
		}
	}
	res, err := pattern.Run(draws, pattern.NewRegistry(), 0)
	require.NoError(t, err)
	return Input{
		Game:       models.Vietlot45,
		Histories:  res.Histories,
		TotalDraws: len(draws),
		Latest:     draws[len(draws)-1].Date,
	}, res
}

func TestScoreUsesCalendarDays(t *testing.T) {
	in, res := replayed(t)
	p := newPredictor(t, nil)

	a := res.History("T1")
	require.NotNil(t, a)
	pred := p.Score(in, a)

	// newest draw is day 38, A last appeared on day 28
	assert.Equal(t, 10, pred.DaysSinceLast)
	assert.Equal(t, 3, pred.DrawsSinceLast)
	assert.Equal(t, []int{7, 7, 14}, a.ComebackIntervals)
	assert.Equal(t, 9.3, pred.AverageComebackInterval)
	assert.Equal(t, 4, pred.TotalAppearances)
	assert.Equal(t, 1, pred.CurrentContinuousCount)

	lo, hi := minMax(pred.Components)
	assert.GreaterOrEqual(t, pred.OverallProbability, lo)
	assert.LessOrEqual(t, pred.OverallProbability, hi)
}

func TestScoreCadenceDays(t *testing.T) {
	in, res := replayed(t)
	p := newPredictor(t, func(c *Config) { c.DayMeasure = DayMeasureCadence })
	pred := p.Score(in, res.History("T1"))
	assert.Equal(t, 3*2, pred.DaysSinceLast)
}

func TestReport(t *testing.T) {
	in, _ := replayed(t)
	p := newPredictor(t, func(c *Config) { c.TopCount = 1 })

	report, err := p.Report(in, day0)
	require.NoError(t, err)
	assert.Equal(t, models.Vietlot45, report.DataSource)
	assert.Equal(t, 2, report.TotalTemplatesAnalyzed)
	assert.Len(t, report.TopPredictions, 1)
	assert.Len(t, report.AllPredictions, 2)
	assert.Equal(t, report.AllPredictions[0], report.TopPredictions[0])
	s := report.Summary
	assert.Equal(t, 2, s.High+s.Medium+s.Low)
	assert.Equal(t, models.Methodology{
		ComebackPatternWeight: 35, ContinuousPatternWeight: 25, FrequencyPatternWeight: 25, RecentTrendWeight: 15,
	}, report.Methodology)

	for i := 1; i < len(report.AllPredictions); i++ {
		assert.GreaterOrEqual(t, report.AllPredictions[i-1].OverallProbability, report.AllPredictions[i].OverallProbability)
	}
}

func TestPredictTiesKeepRegistryOrder(t *testing.T) {
	p := newPredictor(t, nil)
	histories := []models.TemplateHistory{
		{TemplateID: "T2", Ordinal: 1, TotalAppearances: 1, LastAppearanceIndex: 0, LastAppearanceDate: day0,
			RecentActivity: []models.ActivityEntry{{Date: day0, ContinuousCount: 1}}},
		{TemplateID: "T1", Ordinal: 0, TotalAppearances: 1, LastAppearanceIndex: 0, LastAppearanceDate: day0,
			RecentActivity: []models.ActivityEntry{{Date: day0, ContinuousCount: 1}}},
	}
	preds, err := p.Predict(Input{Game: models.Vietlot45, Histories: histories, TotalDraws: 2, Latest: day0.AddDate(0, 0, 2)})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, preds[0].OverallProbability, preds[1].OverallProbability)
	assert.Equal(t, "T1", preds[0].TemplateID)
}

func TestPredictRejectsOutOfRangeHistory(t *testing.T) {
	p := newPredictor(t, nil)
	_, err := p.Predict(Input{
		Game:       models.Vietlot45,
		Histories:  []models.TemplateHistory{{TemplateID: "T1", TotalAppearances: 1, LastAppearanceIndex: 5}},
		TotalDraws: 3,
	})
	assert.Error(t, err)
}

func TestSummarizeBands(t *testing.T) {
	p := newPredictor(t, nil)
	s := p.Summarize([]models.TemplatePrediction{
		{OverallProbability: 50.1}, {OverallProbability: 50}, {OverallProbability: 25.1},
		{OverallProbability: 25}, {OverallProbability: 0},
	})
	assert.Equal(t, models.PredictionSummary{High: 1, Medium: 2, Low: 2}, s)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights do not sum", func(c *Config) { c.Weights.Trend = 0.5 }},
		{"negative weight", func(c *Config) { c.Weights.Trend = -0.15; c.Weights.Comeback = 0.65 }},
		{"unknown day measure", func(c *Config) { c.DayMeasure = "weeks" }},
		{"cadence without multiplier", func(c *Config) {
			c.DayMeasure = DayMeasureCadence
			c.DayMultipliers = map[string]int{"vietlot45": 2}
		}},
		{"tiers out of order", func(c *Config) { c.Confidence.Appearances = []Tier{{5, 10}, {20, 30}} }},
		{"bands inverted", func(c *Config) { c.HighThreshold = 10 }},
		{"no top count", func(c *Config) { c.TopCount = 0 }},
	}
	assert.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
