// Package predictor scores how likely each template is to appear in the next draw.
//
// Four heuristic components, each a percentage, are combined with configured weights:
//
//	overall = 0.35×comeback + 0.25×continuous + 0.25×frequency + 0.15×trend
//
// Comeback measures how often past comeback intervals sit near the current gap.
// Continuous measures how often a streak at the current length kept going.
// Frequency rewards templates that are overdue against their average gap.
// Trend compares the current gap with the recent average comeback interval.
//
// A separate confidence level (0..100) grades how much history backs the score.
package predictor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/vietoracle/internal/logger"
	"github.com/rewired-gh/vietoracle/internal/models"
	"github.com/rewired-gh/vietoracle/internal/stats"
)

// Input is the replayed state of one game's history.
type Input struct {
	Game       models.Game
	Histories  []models.TemplateHistory
	TotalDraws int
	Latest     time.Time // date of the newest draw
}

// Predictor scores template histories.
type Predictor struct {
	cfg Config
}

// New validates cfg and returns a Predictor.
func New(cfg Config) (*Predictor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Predictor{cfg: cfg}, nil
}

// ComebackProbability is the share of intervals within ±tolerance of daysSince,
// as a percentage capped at limit. No intervals gives 0.
func ComebackProbability(intervals []int, daysSince, tolerance int, limit float64) float64 {
	if len(intervals) == 0 {
		return 0
	}
	similar := 0
	for _, iv := range intervals {
		d := iv - daysSince
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			similar++
		}
	}
	return math.Min(stats.Percent(similar, len(intervals)), limit)
}

// ContinuousProbability is the share of activity entries whose continuous count
// exceeds current among those that reach it. Returns 0 when none reach it.
// With strict=false "exceeds" becomes "reaches".
func ContinuousProbability(activity []models.ActivityEntry, current int, strict bool) float64 {
	continues, reaches := 0, 0
	for _, a := range activity {
		if a.ContinuousCount >= current {
			reaches++
		}
		if a.ContinuousCount > current || !strict && a.ContinuousCount >= current {
			continues++
		}
	}
	return stats.Percent(continues, reaches)
}

// FrequencyProbability compares drawsSince with the expected gap
// totalDraws/appearances. Overdue templates score ratio×OverdueScale up to
// OverdueCap; others decay from FreshBase by ratio×FreshSlope down to FreshFloor.
func (p *Predictor) FrequencyProbability(appearances, totalDraws, drawsSince int) float64 {
	if appearances <= 0 || totalDraws <= 0 {
		return 0
	}
	expected := float64(totalDraws) / float64(appearances)
	ratio := float64(drawsSince) / expected
	if float64(drawsSince) > expected {
		return math.Min(ratio*p.cfg.OverdueScale, p.cfg.OverdueCap)
	}
	return math.Max(p.cfg.FreshFloor, p.cfg.FreshBase-ratio*p.cfg.FreshSlope)
}

// RecentTrend is the mean positive comeback interval over the last window
// activity entries, falling back to the mean of all intervals.
func RecentTrend(h *models.TemplateHistory, window int) float64 {
	recent := h.RecentActivity
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	var positive []int
	for _, a := range recent {
		if a.ComebackInterval > 0 {
			positive = append(positive, a.ComebackInterval)
		}
	}
	if len(positive) > 0 {
		return stats.MeanInts(positive)
	}
	return stats.MeanInts(h.ComebackIntervals)
}

// TrendProbability is TrendBase − TrendSlope×|daysSince − trend|, floored at 0.
// A zero trend yields 0.
func (p *Predictor) TrendProbability(trend float64, daysSince int) float64 {
	if trend == 0 {
		return 0
	}
	diff := math.Abs(float64(daysSince) - trend)
	return math.Max(0, p.cfg.TrendBase-diff*p.cfg.TrendSlope)
}

// ConfidenceLevel grades the amount and regularity of history. It never
// decreases as appearances, intervals or activity grow or as stdDev shrinks.
func (p *Predictor) ConfidenceLevel(appearances, intervals, activity int, stdDev float64) int {
	tiers := p.cfg.Confidence
	level := atLeast(tiers.Appearances, float64(appearances)) +
		atLeast(tiers.Intervals, float64(intervals)) +
		atLeast(tiers.Activity, float64(activity)) +
		below(tiers.StdDev, stdDev)
	if level > tiers.Cap {
		level = tiers.Cap
	}
	if level < 0 {
		level = 0
	}
	return level
}

func atLeast(tiers []Tier, v float64) int {
	for _, t := range tiers {
		if v >= t.Threshold {
			return t.Points
		}
	}
	return 0
}

func below(tiers []Tier, v float64) int {
	for _, t := range tiers {
		if v < t.Threshold {
			return t.Points
		}
	}
	return 0
}

// Composite is the weighted mean of the components.
func (p *Predictor) Composite(c models.ProbabilityComponents) float64 {
	w := p.cfg.Weights
	sum := w.sum()
	if sum == 0 {
		return 0
	}
	return (c.ComebackPattern*w.Comeback +
		c.ContinuousPattern*w.Continuous +
		c.FrequencyPattern*w.Frequency +
		c.RecentTrend*w.Trend) / sum
}

// daysSince measures the gap between a template's last appearance and the newest draw.
func (p *Predictor) daysSince(game models.Game, h *models.TemplateHistory, latest time.Time, drawsSince int) int {
	if p.cfg.DayMeasure == DayMeasureCadence {
		return drawsSince * p.cfg.DayMultipliers[string(game)]
	}
	return models.DaysBetween(h.LastAppearanceDate, latest)
}

// Score returns the prediction of a single template.
func (p *Predictor) Score(in Input, h *models.TemplateHistory) models.TemplatePrediction {
	drawsSince := in.TotalDraws - 1 - h.LastAppearanceIndex
	if drawsSince < 0 {
		drawsSince = 0
	}
	days := p.daysSince(in.Game, h, in.Latest, drawsSince)
	current := h.CurrentContinuousCount()

	raw := models.ProbabilityComponents{
		ComebackPattern:   ComebackProbability(h.ComebackIntervals, days, p.cfg.ComebackTolerance, p.cfg.ComebackCap),
		ContinuousPattern: ContinuousProbability(h.RecentActivity, current, p.cfg.ContinuousStrict),
		FrequencyPattern:  p.FrequencyProbability(h.TotalAppearances, in.TotalDraws, drawsSince),
		RecentTrend:       p.TrendProbability(RecentTrend(h, p.cfg.TrendWindow), days),
	}
	overall := p.Composite(raw)

	return models.TemplatePrediction{
		TemplateID:              h.TemplateID,
		Pattern:                 append([]string(nil), h.Pattern...),
		TotalAppearances:        h.TotalAppearances,
		DaysSinceLast:           days,
		DrawsSinceLast:          drawsSince,
		CurrentContinuousCount:  current,
		AverageComebackInterval: stats.Round1(stats.MeanInts(h.ComebackIntervals)),
		MaxContinuousCount:      h.MaxContinuousCount,
		Components: models.ProbabilityComponents{
			ComebackPattern:   stats.Round1(raw.ComebackPattern),
			ContinuousPattern: stats.Round1(raw.ContinuousPattern),
			FrequencyPattern:  stats.Round1(raw.FrequencyPattern),
			RecentTrend:       stats.Round1(raw.RecentTrend),
		},
		OverallProbability: stats.Round1(overall),
		ConfidenceLevel: p.ConfidenceLevel(h.TotalAppearances, len(h.ComebackIntervals),
			len(h.RecentActivity), stats.StdDevInts(h.ComebackIntervals)),
		LastAppearance: h.LastAppearanceDate,
	}
}

// Predict scores every template with at least one appearance, highest overall
// probability first. Ties keep registry order.
func (p *Predictor) Predict(in Input) ([]models.TemplatePrediction, error) {
	if in.TotalDraws < 0 {
		return nil, fmt.Errorf("total draws must not be negative")
	}
	preds := make([]models.TemplatePrediction, 0, len(in.Histories))
	ordinals := make(map[string]int, len(in.Histories))
	for i := range in.Histories {
		h := &in.Histories[i]
		if h.TotalAppearances == 0 {
			continue
		}
		if h.LastAppearanceIndex >= in.TotalDraws {
			return nil, fmt.Errorf("template %s last appears at draw %d of %d", h.TemplateID, h.LastAppearanceIndex, in.TotalDraws)
		}
		preds = append(preds, p.Score(in, h))
		ordinals[h.TemplateID] = h.Ordinal
	}

	sort.Slice(preds, func(i, j int) bool {
		if preds[i].OverallProbability != preds[j].OverallProbability {
			return preds[i].OverallProbability > preds[j].OverallProbability
		}
		return ordinals[preds[i].TemplateID] < ordinals[preds[j].TemplateID]
	})

	logger.Debug("Scored %d templates for %s (%d draws, newest %s)",
		len(preds), in.Game, in.TotalDraws, in.Latest.Format("2006-01-02"))
	return preds, nil
}

// Summarize counts predictions per probability band.
func (p *Predictor) Summarize(preds []models.TemplatePrediction) models.PredictionSummary {
	var s models.PredictionSummary
	for _, pr := range preds {
		switch {
		case pr.OverallProbability > p.cfg.HighThreshold:
			s.High++
		case pr.OverallProbability > p.cfg.MediumThreshold:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// Methodology publishes the weights as percentages.
func (p *Predictor) Methodology() models.Methodology {
	w := p.cfg.Weights
	return models.Methodology{
		ComebackPatternWeight:   stats.Round1(w.Comeback * 100),
		ContinuousPatternWeight: stats.Round1(w.Continuous * 100),
		FrequencyPatternWeight:  stats.Round1(w.Frequency * 100),
		RecentTrendWeight:       stats.Round1(w.Trend * 100),
	}
}

// Report runs Predict and assembles the published template document.
func (p *Predictor) Report(in Input, now time.Time) (models.TemplateReport, error) {
	preds, err := p.Predict(in)
	if err != nil {
		return models.TemplateReport{}, err
	}
	top := preds
	if len(top) > p.cfg.TopCount {
		top = top[:p.cfg.TopCount]
	}
	return models.TemplateReport{
		DataSource:             in.Game,
		TotalTemplatesAnalyzed: len(preds),
		Summary:                p.Summarize(preds),
		TopPredictions:         append([]models.TemplatePrediction(nil), top...),
		AllPredictions:         preds,
		GeneratedAt:            now,
		Methodology:            p.Methodology(),
	}, nil
}
