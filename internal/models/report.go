package models

import "time"

// TemplateFrequency counts a template's appearances in a window of draws.
type TemplateFrequency struct {
	TemplateID string `json:"template_id"`
	Frequency  int    `json:"frequency"`
}

// TotalRange summarizes draw totals over a window.
type TotalRange struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Average int `json:"average"`
}

// EvenOddDistribution is the share of draws whose total was even or odd.
type EvenOddDistribution struct {
	EvenPercentage int `json:"even_percentage"`
	OddPercentage  int `json:"odd_percentage"`
}

// ContinuousAppearance is a draw that extended a template streak.
type ContinuousAppearance struct {
	TemplateID      string    `json:"template_id"`
	ContinuousCount int       `json:"continuous_count"`
	Date            time.Time `json:"date"`
}

// RecentPatterns describes the newest draws of a game.
type RecentPatterns struct {
	Draws                 int                    `json:"draws"`
	MostFrequentTemplates []TemplateFrequency    `json:"most_frequent_templates"`
	TotalRange            TotalRange             `json:"average_total_range"`
	EvenOddDistribution   EvenOddDistribution    `json:"even_odd_distribution"`
	DayOfWeekPatterns     map[string]int         `json:"day_of_week_patterns"`
	ContinuousAppearances []ContinuousAppearance `json:"continuous_appearances"`
}

// TemplateNumbers maps a template to the latest draw that produced it.
type TemplateNumbers struct {
	Numbers        []int     `json:"numbers"`
	Total          int       `json:"total"`
	TotalParity    Parity    `json:"total_even_or_odd"`
	LastAppearance time.Time `json:"last_appearance"`
	Probability    float64   `json:"probability"`
}

// TemplateAnalysis is the template part of a per-game source report.
type TemplateAnalysis struct {
	TotalTemplates         int                  `json:"total_templates"`
	TopPredictions         []TemplatePrediction `json:"top_predictions"`
	HighProbabilityCount   int                  `json:"high_probability_count"`
	MediumProbabilityCount int                  `json:"medium_probability_count"`
}

// NumberAnalysis is the number part of a per-game source report.
type NumberAnalysis struct {
	TopPredictions       []NumberPrediction `json:"top_predictions"`
	HotNumbers           []int              `json:"hot_numbers"`
	ColdNumbers          []int              `json:"cold_numbers"`
	TotalNumbersAnalyzed int                `json:"total_numbers_analyzed"`
}

// SourceReport is one game's section of the cross-game report.
type SourceReport struct {
	Source                Game                       `json:"source"`
	TotalDraws            int                        `json:"total_draws"`
	LatestDrawDate        time.Time                  `json:"latest_draw_date"`
	LatestPrize           int64                      `json:"latest_prize_amount"`
	TemplateAnalysis      TemplateAnalysis           `json:"template_analysis"`
	NumberAnalysis        NumberAnalysis             `json:"number_analysis"`
	RecentPatterns        RecentPatterns             `json:"recent_patterns"`
	TemplateNumberMapping map[string]TemplateNumbers `json:"template_number_mapping"`
	PredictionConfidence  int                        `json:"prediction_confidence"`
}

// CommonPattern groups templates whose probabilities agree across games.
type CommonPattern struct {
	Type        string               `json:"type"`
	Description string               `json:"description"`
	Templates   []TemplatePrediction `json:"templates"`
}

// TemplateCorrelation lists top templates at the appearance extremes.
type TemplateCorrelation struct {
	HighFrequencyTemplates []TemplatePrediction `json:"high_frequency_templates"`
	LowFrequencyTemplates  []TemplatePrediction `json:"low_frequency_templates"`
}

// CrossAnalysis compares the games against each other.
type CrossAnalysis struct {
	CommonPatterns      []CommonPattern     `json:"common_patterns"`
	TemplateCorrelation TemplateCorrelation `json:"template_correlation"`
}

// Recommendation is one advisory line of the report.
type Recommendation struct {
	Type           string  `json:"type"`
	Source         Game    `json:"source,omitempty"`
	TemplateID     string  `json:"template_id,omitempty"`
	Probability    float64 `json:"probability,omitempty"`
	Confidence     int     `json:"confidence,omitempty"`
	Recommendation string  `json:"recommendation"`
	Priority       string  `json:"priority,omitempty"`
}

// CrossGameReport merges the per-game outputs into one document.
type CrossGameReport struct {
	RunID           string                 `json:"run_id"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Sources         map[Game]*SourceReport `json:"sources"`
	CrossAnalysis   CrossAnalysis          `json:"cross_analysis"`
	Recommendations []Recommendation       `json:"recommendations"`
}
