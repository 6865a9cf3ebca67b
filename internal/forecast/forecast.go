// Package forecast fits a least-squares trend to every number's frequency over
// time and projects it one period ahead.
//
// Draws are split oldest-first into consecutive windows of PeriodSize draws; the
// trailing remainder shorter than a full window is dropped. For each window the
// frequency of a number is the share of the window's draws that contained it:
//
//	forecast  = intercept + slope × (last period + 1), floored at 0
//	strength  = R² of the fit over the same periods
//	direction = sign(last period frequency − first period frequency)
//
// Numbers with fewer than MinPeriods periods get a neutral zero estimate.
package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/rewired-gh/vietoracle/internal/logger"
	"github.com/rewired-gh/vietoracle/internal/models"
	"github.com/rewired-gh/vietoracle/internal/stats"
)

// Method names the technique in published reports.
const Method = "Least-squares FORECAST & TREND analysis"

// Config holds the tunable parameters of the engine.
type Config struct {
	PeriodSize      int `mapstructure:"period_size"`
	MinPeriods      int `mapstructure:"min_periods"`
	PredictionCount int `mapstructure:"prediction_count"`
	HotColdSize     int `mapstructure:"hot_cold_size"`
}

// DefaultConfig returns the standard engine parameters.
func DefaultConfig() Config {
	return Config{
		PeriodSize:      10,
		MinPeriods:      3,
		PredictionCount: 6,
		HotColdSize:     10,
	}
}

// Validate checks that the configuration can drive the engine.
func (c Config) Validate() error {
	if c.PeriodSize < 1 {
		return fmt.Errorf("forecast.period_size must be at least 1")
	}
	if c.MinPeriods < 2 {
		return fmt.Errorf("forecast.min_periods must be at least 2")
	}
	if c.PredictionCount < 1 {
		return fmt.Errorf("forecast.prediction_count must be at least 1")
	}
	if c.HotColdSize < 1 {
		return fmt.Errorf("forecast.hot_cold_size must be at least 1")
	}
	return nil
}

// confidenceMultiplier scales ranking scores by fit quality.
var confidenceMultiplier = map[models.Confidence]float64{
	models.ConfidenceHigh:   1.2,
	models.ConfidenceMedium: 1.0,
	models.ConfidenceLow:    0.8,
}

// Engine computes trends for one game's draw history. It is immutable after
// construction; every method is a pure function of the history.
type Engine struct {
	game   models.Game
	cfg    Config
	draws  int
	series map[int][]models.PeriodFrequency
	trends map[int]models.TrendEstimate
}

// New builds the per-number time series from draws (oldest first) and fits them.
func New(game models.Game, draws []models.Draw, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !game.Valid() {
		return nil, fmt.Errorf("unknown game %q", game)
	}
	for i := range draws {
		if err := draws[i].Validate(); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		game:   game,
		cfg:    cfg,
		draws:  len(draws),
		series: Periodize(draws, game.TotalNumbers(), cfg.PeriodSize),
	}

	e.trends = make(map[int]models.TrendEstimate, game.TotalNumbers())
	for n := 1; n <= game.TotalNumbers(); n++ {
		e.trends[n] = Fit(e.series[n], cfg.MinPeriods)
	}

	periods := 0
	if len(e.series[1]) > 0 {
		periods = len(e.series[1])
	}
	logger.Debug("Forecast %s: %d draws, %d periods of %d (dropped %d trailing draws)",
		game, len(draws), periods, cfg.PeriodSize, len(draws)-periods*cfg.PeriodSize)

	return e, nil
}

// Periodize returns, for every number 1..totalNumbers, its frequency per full
// window of periodSize draws.
func Periodize(draws []models.Draw, totalNumbers, periodSize int) map[int][]models.PeriodFrequency {
	series := make(map[int][]models.PeriodFrequency, totalNumbers)
	periods := 0
	if periodSize > 0 {
		periods = len(draws) / periodSize
	}
	for n := 1; n <= totalNumbers; n++ {
		series[n] = make([]models.PeriodFrequency, 0, periods)
	}

	for p := 0; p < periods; p++ {
		window := draws[p*periodSize : (p+1)*periodSize]
		counts := make([]int, totalNumbers+1)
		for i := range window {
			for _, n := range window[i].WinningNumbers {
				if n >= 1 && n <= totalNumbers {
					counts[n]++
				}
			}
		}
		for n := 1; n <= totalNumbers; n++ {
			series[n] = append(series[n], models.PeriodFrequency{
				Period:           p,
				FrequencyPercent: stats.Percent(counts[n], len(window)),
				DrawCount:        len(window),
			})
		}
	}
	return series
}

// Fit derives the trend estimate of one series. Series shorter than minPeriods
// yield {neutral, 0, 0, low}.
func Fit(series []models.PeriodFrequency, minPeriods int) models.TrendEstimate {
	if len(series) < minPeriods || len(series) == 0 {
		return models.TrendEstimate{
			Direction:  models.TrendNeutral,
			Confidence: models.ConfidenceLow,
			Periods:    len(series),
		}
	}

	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	maxPeriod := series[0].Period
	for i, p := range series {
		xs[i] = float64(p.Period)
		ys[i] = p.FrequencyPercent
		if p.Period > maxPeriod {
			maxPeriod = p.Period
		}
	}

	line := stats.LinearRegression(xs, ys)
	forecast := line.At(float64(maxPeriod + 1))
	if forecast < 0 {
		forecast = 0
	}
	r2 := stats.RSquared(line, xs, ys)

	first, last := ys[0], ys[len(ys)-1]
	direction := models.TrendNeutral
	if last > first {
		direction = models.TrendUp
	} else if last < first {
		direction = models.TrendDown
	}

	return models.TrendEstimate{
		Direction:        direction,
		Strength:         r2,
		Forecast:         forecast,
		Confidence:       confidenceFor(r2),
		CurrentFrequency: last,
		Change:           last - first,
		Periods:          len(series),
	}
}

func confidenceFor(r2 float64) models.Confidence {
	switch {
	case r2 > 0.5:
		return models.ConfidenceHigh
	case r2 > 0.2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Score is the ranking score of a trend: the forecast boosted by upward trends,
// damped by downward ones, then scaled by confidence.
func Score(t models.TrendEstimate) float64 {
	score := t.Forecast
	switch t.Direction {
	case models.TrendUp:
		score *= 1 + t.Strength
	case models.TrendDown:
		score *= 1 - t.Strength*0.5
	}
	m, ok := confidenceMultiplier[t.Confidence]
	if !ok {
		m = confidenceMultiplier[models.ConfidenceLow]
	}
	return score * m
}

// Series returns the time series of number n.
func (e *Engine) Series(n int) []models.PeriodFrequency {
	return append([]models.PeriodFrequency(nil), e.series[n]...)
}

// Forecast returns the trend estimate of number n.
func (e *Engine) Forecast(n int) models.TrendEstimate {
	t, ok := e.trends[n]
	if !ok {
		return models.TrendEstimate{Direction: models.TrendNeutral, Confidence: models.ConfidenceLow}
	}
	return t
}

// Trends returns a copy of every number's trend estimate.
func (e *Engine) Trends() map[int]models.TrendEstimate {
	out := make(map[int]models.TrendEstimate, len(e.trends))
	for n, t := range e.trends {
		out[n] = t
	}
	return out
}

// RankPredictions returns the count best-scoring numbers, highest first. Equal
// scores keep ascending number order. A count <= 0 or beyond the domain returns
// every number.
func (e *Engine) RankPredictions(count int) []models.NumberPrediction {
	total := e.game.TotalNumbers()
	preds := make([]models.NumberPrediction, 0, total)
	for n := 1; n <= total; n++ {
		t := e.trends[n]
		preds = append(preds, models.NumberPrediction{
			Number:     n,
			Score:      Score(t),
			Trend:      t.Direction,
			Strength:   t.Strength,
			Confidence: t.Confidence,
			Forecast:   t.Forecast,
		})
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Score > preds[j].Score
	})

	if count <= 0 || count > len(preds) {
		count = len(preds)
	}
	return preds[:count]
}

// HotColdSplit returns the size highest-forecast numbers and the size lowest,
// the cold list ordered lowest forecast first.
func (e *Engine) HotColdSplit(size int) (hot, cold []models.NumberTrend) {
	total := e.game.TotalNumbers()
	all := make([]models.NumberTrend, 0, total)
	for n := 1; n <= total; n++ {
		all = append(all, models.NumberTrend{Number: n, TrendEstimate: e.trends[n]})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Forecast > all[j].Forecast
	})

	if size > len(all) {
		size = len(all)
	}
	hot = append(hot, all[:size]...)
	for i := len(all) - 1; i >= len(all)-size; i-- {
		cold = append(cold, all[i])
	}
	return hot, cold
}

// Report assembles the published forecast document.
func (e *Engine) Report(now time.Time) models.ForecastReport {
	hot, cold := e.HotColdSplit(e.cfg.HotColdSize)
	return models.ForecastReport{
		Game:               e.game,
		PredictedNumbers:   e.RankPredictions(e.cfg.PredictionCount),
		HotNumbers:         hot,
		ColdNumbers:        cold,
		Trends:             e.Trends(),
		AnalysisDate:       now,
		TotalDrawsAnalyzed: e.draws,
		TotalNumbers:       e.game.TotalNumbers(),
		PredictionMethod:   Method,
	}
}
