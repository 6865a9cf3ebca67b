// Package report merges the per-game forecast and template outputs into the
// cross-game prediction report.
package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/vietoracle/internal/frequency"
	"github.com/rewired-gh/vietoracle/internal/models"
	"github.com/rewired-gh/vietoracle/internal/stats"
)

// Recommendation types.
const (
	TypeTemplateFocus     = "template_focus"
	TypePatternAnalysis   = "pattern_analysis"
	TypeFrequencyAnalysis = "frequency_analysis"

	similarProbabilityType = "similar_probability_templates"
)

// Config holds the report thresholds and list sizes.
type Config struct {
	TopTemplates        int     `mapstructure:"top_templates"`
	TopNumbers          int     `mapstructure:"top_numbers"`
	RecentDraws         int     `mapstructure:"recent_draws"`
	FrequentTemplates   int     `mapstructure:"frequent_templates"`
	CompareTop          int     `mapstructure:"compare_top"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	FocusThreshold      float64 `mapstructure:"focus_threshold"`
	HighAppearance      int     `mapstructure:"high_appearance"`
	LowAppearance       int     `mapstructure:"low_appearance"`
	CorrelationTop      int     `mapstructure:"correlation_top"`
}

// DefaultConfig returns the standard report parameters.
func DefaultConfig() Config {
	return Config{
		TopTemplates:        10,
		TopNumbers:          15,
		RecentDraws:         20,
		FrequentTemplates:   5,
		CompareTop:          5,
		SimilarityThreshold: 5,
		FocusThreshold:      15,
		HighAppearance:      20,
		LowAppearance:       5,
		CorrelationTop:      3,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TopTemplates < 1 || c.TopNumbers < 1 {
		return fmt.Errorf("report.top_templates and report.top_numbers must be at least 1")
	}
	if c.RecentDraws < 1 {
		return fmt.Errorf("report.recent_draws must be at least 1")
	}
	if c.FrequentTemplates < 1 || c.CompareTop < 1 || c.CorrelationTop < 1 {
		return fmt.Errorf("report.frequent_templates, compare_top and correlation_top must be at least 1")
	}
	if c.SimilarityThreshold <= 0 {
		return fmt.Errorf("report.similarity_threshold must be positive")
	}
	if c.LowAppearance >= c.HighAppearance {
		return fmt.Errorf("report.low_appearance must be below report.high_appearance")
	}
	return nil
}

// GameResult is everything the pipeline produced for one game.
type GameResult struct {
	Game          models.Game
	Draws         []models.AssignedDraw // oldest first
	Forecast      models.ForecastReport
	RankedNumbers []models.NumberPrediction // full ranking, best first
	Templates     models.TemplateReport
}

// Composer builds cross-game reports.
type Composer struct {
	cfg Config
}

// NewComposer validates cfg and returns a Composer.
func NewComposer(cfg Config) (*Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Composer{cfg: cfg}, nil
}

// RecentPatterns describes the newest window draws.
func RecentPatterns(draws []models.AssignedDraw, window, topTemplates int) models.RecentPatterns {
	if len(draws) > window {
		draws = draws[len(draws)-window:]
	}
	rp := models.RecentPatterns{
		Draws:                 len(draws),
		MostFrequentTemplates: []models.TemplateFrequency{},
		DayOfWeekPatterns:     make(map[string]int),
		ContinuousAppearances: []models.ContinuousAppearance{},
	}
	if len(draws) == 0 {
		return rp
	}

	counts := make(map[string]int)
	var order []string
	sum, even, odd := 0, 0, 0
	rp.TotalRange.Min, rp.TotalRange.Max = draws[len(draws)-1].Total, draws[len(draws)-1].Total

	// newest first
	for i := len(draws) - 1; i >= 0; i-- {
		d := draws[i]
		if _, ok := counts[d.TemplateID]; !ok {
			order = append(order, d.TemplateID)
		}
		counts[d.TemplateID]++

		sum += d.Total
		rp.TotalRange.Min = min(rp.TotalRange.Min, d.Total)
		rp.TotalRange.Max = max(rp.TotalRange.Max, d.Total)
		if d.TotalParity == models.Even {
			even++
		} else {
			odd++
		}

		rp.DayOfWeekPatterns[frequency.Weekday.Key(d.Date)]++

		if d.ContinuousCount > 1 {
			rp.ContinuousAppearances = append(rp.ContinuousAppearances, models.ContinuousAppearance{
				TemplateID:      d.TemplateID,
				ContinuousCount: d.ContinuousCount,
				Date:            d.Date,
			})
		}
	}

	rp.TotalRange.Average = int(math.Round(float64(sum) / float64(len(draws))))
	rp.EvenOddDistribution = models.EvenOddDistribution{
		EvenPercentage: int(math.Round(stats.Percent(even, len(draws)))),
		OddPercentage:  int(math.Round(stats.Percent(odd, len(draws)))),
	}

	// ties keep the most recently seen template first
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topTemplates {
		order = order[:topTemplates]
	}
	for _, id := range order {
		rp.MostFrequentTemplates = append(rp.MostFrequentTemplates, models.TemplateFrequency{TemplateID: id, Frequency: counts[id]})
	}
	return rp
}

// TemplateNumberMapping pairs each predicted template with its latest draw.
// Templates that never appear in draws are left out.
func TemplateNumberMapping(preds []models.TemplatePrediction, draws []models.AssignedDraw) map[string]models.TemplateNumbers {
	latest := make(map[string]int, len(preds))
	for i := len(draws) - 1; i >= 0; i-- {
		if _, ok := latest[draws[i].TemplateID]; !ok {
			latest[draws[i].TemplateID] = i
		}
	}

	mapping := make(map[string]models.TemplateNumbers, len(preds))
	for _, p := range preds {
		i, ok := latest[p.TemplateID]
		if !ok {
			continue
		}
		d := draws[i]
		mapping[p.TemplateID] = models.TemplateNumbers{
			Numbers:        append([]int(nil), d.WinningNumbers...),
			Total:          d.Total,
			TotalParity:    d.TotalParity,
			LastAppearance: d.Date,
			Probability:    p.OverallProbability,
		}
	}
	return mapping
}

// PredictionConfidence is the rounded mean confidence level of preds.
func PredictionConfidence(preds []models.TemplatePrediction) int {
	levels := make([]int, len(preds))
	for i, p := range preds {
		levels[i] = p.ConfidenceLevel
	}
	return int(math.Round(stats.MeanInts(levels)))
}

func head[T any](xs []T, n int) []T {
	if len(xs) > n {
		xs = xs[:n]
	}
	return append([]T{}, xs...)
}

func trendNumbers(trends []models.NumberTrend) []int {
	out := make([]int, len(trends))
	for i, t := range trends {
		out[i] = t.Number
	}
	return out
}

// Source builds one game's section.
func (c *Composer) Source(res GameResult) *models.SourceReport {
	top := head(res.Templates.TopPredictions, c.cfg.TopTemplates)
	ranked := res.RankedNumbers
	if len(ranked) == 0 {
		ranked = res.Forecast.PredictedNumbers
	}
	src := &models.SourceReport{
		Source:     res.Game,
		TotalDraws: len(res.Draws),
		TemplateAnalysis: models.TemplateAnalysis{
			TotalTemplates:         res.Templates.TotalTemplatesAnalyzed,
			TopPredictions:         top,
			HighProbabilityCount:   res.Templates.Summary.High,
			MediumProbabilityCount: res.Templates.Summary.Medium,
		},
		NumberAnalysis: models.NumberAnalysis{
			TopPredictions:       head(ranked, c.cfg.TopNumbers),
			HotNumbers:           trendNumbers(res.Forecast.HotNumbers),
			ColdNumbers:          trendNumbers(res.Forecast.ColdNumbers),
			TotalNumbersAnalyzed: res.Forecast.TotalNumbers,
		},
		RecentPatterns:        RecentPatterns(res.Draws, c.cfg.RecentDraws, c.cfg.FrequentTemplates),
		TemplateNumberMapping: TemplateNumberMapping(top, res.Draws),
		PredictionConfidence:  PredictionConfidence(top),
	}
	if n := len(res.Draws); n > 0 {
		src.LatestDrawDate = res.Draws[n-1].Date
		src.LatestPrize = res.Draws[n-1].PrizeAmount
	}
	return src
}

// ordered returns results in models.Games order, unknown games last.
func ordered(results []GameResult) []GameResult {
	rank := make(map[models.Game]int, len(models.Games))
	for i, g := range models.Games {
		rank[g] = i
	}
	out := append([]GameResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, ok := rank[out[i].Game]
		if !ok {
			ri = len(rank)
		}
		rj, ok := rank[out[j].Game]
		if !ok {
			rj = len(rank)
		}
		return ri < rj
	})
	return out
}

// CommonPatterns finds, for every pair of games, the top templates of the first
// whose probability is within the similarity threshold of some top template of
// the second.
func (c *Composer) CommonPatterns(results []GameResult) []models.CommonPattern {
	results = ordered(results)
	patterns := []models.CommonPattern{}
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			a := head(results[i].Templates.TopPredictions, c.cfg.CompareTop)
			b := head(results[j].Templates.TopPredictions, c.cfg.CompareTop)
			var similar []models.TemplatePrediction
			for _, ta := range a {
				for _, tb := range b {
					if math.Abs(ta.OverallProbability-tb.OverallProbability) < c.cfg.SimilarityThreshold {
						similar = append(similar, ta)
						break
					}
				}
			}
			if len(similar) == 0 {
				continue
			}
			patterns = append(patterns, models.CommonPattern{
				Type: similarProbabilityType,
				Description: fmt.Sprintf("Templates with similar prediction probabilities across %s and %s",
					results[i].Game, results[j].Game),
				Templates: similar,
			})
		}
	}
	return patterns
}

// Correlation lists, per game, the first top templates above the high
// appearance threshold and below the low one.
func (c *Composer) Correlation(results []GameResult) models.TemplateCorrelation {
	corr := models.TemplateCorrelation{
		HighFrequencyTemplates: []models.TemplatePrediction{},
		LowFrequencyTemplates:  []models.TemplatePrediction{},
	}
	for _, res := range ordered(results) {
		var high, low []models.TemplatePrediction
		for _, p := range res.Templates.TopPredictions {
			if p.TotalAppearances > c.cfg.HighAppearance {
				high = append(high, p)
			}
			if p.TotalAppearances < c.cfg.LowAppearance {
				low = append(low, p)
			}
		}
		corr.HighFrequencyTemplates = append(corr.HighFrequencyTemplates, head(high, c.cfg.CorrelationTop)...)
		corr.LowFrequencyTemplates = append(corr.LowFrequencyTemplates, head(low, c.cfg.CorrelationTop)...)
	}
	return corr
}

// Recommendations flags each game's top template when it clears the focus
// threshold and appends the standing advisories.
func (c *Composer) Recommendations(results []GameResult) []models.Recommendation {
	var recs []models.Recommendation
	for _, res := range ordered(results) {
		if len(res.Templates.TopPredictions) == 0 {
			continue
		}
		top := res.Templates.TopPredictions[0]
		if top.OverallProbability <= c.cfg.FocusThreshold {
			continue
		}
		recs = append(recs, models.Recommendation{
			Type:           TypeTemplateFocus,
			Source:         res.Game,
			TemplateID:     top.TemplateID,
			Probability:    top.OverallProbability,
			Confidence:     top.ConfidenceLevel,
			Recommendation: fmt.Sprintf("Focus on Template %s with %.1f%% probability", top.TemplateID, top.OverallProbability),
		})
	}
	return append(recs,
		models.Recommendation{
			Type:           TypePatternAnalysis,
			Recommendation: "Monitor continuous appearance patterns for potential streaks",
			Priority:       "medium",
		},
		models.Recommendation{
			Type:           TypeFrequencyAnalysis,
			Recommendation: "Track overdue templates that haven't appeared recently",
			Priority:       "high",
		},
	)
}

// Compose builds the cross-game report.
func (c *Composer) Compose(runID string, now time.Time, results []GameResult) models.CrossGameReport {
	sources := make(map[models.Game]*models.SourceReport, len(results))
	for _, res := range results {
		sources[res.Game] = c.Source(res)
	}
	return models.CrossGameReport{
		RunID:       runID,
		GeneratedAt: now,
		Sources:     sources,
		CrossAnalysis: models.CrossAnalysis{
			CommonPatterns:      c.CommonPatterns(results),
			TemplateCorrelation: c.Correlation(results),
		},
		Recommendations: c.Recommendations(results),
	}
}
