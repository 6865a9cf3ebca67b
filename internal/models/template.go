package models

import (
	"errors"
	"fmt"
	"time"
)

// TemplateEntry is one row of the persisted template registry.
type TemplateEntry struct {
	ID    string   `json:"id"`
	Group []string `json:"group"`
}

// Validate checks that the entry has an id and a six-label group.
func (t *TemplateEntry) Validate() error {
	if t.ID == "" {
		return errors.New("template ID must not be empty")
	}
	if len(t.Group) != WinningCount {
		return fmt.Errorf("template %s: group must have %d labels, got %d", t.ID, WinningCount, len(t.Group))
	}
	return nil
}

// RegistrySnapshot is the on-disk form of a game's template registry. Version is
// incremented by every successful save and used to detect concurrent writers.
type RegistrySnapshot struct {
	Version   int             `json:"version"`
	SavedAt   time.Time       `json:"saved_at,omitempty"`
	Templates []TemplateEntry `json:"templates"`
}

// ActivityEntry records one appearance of a template.
type ActivityEntry struct {
	Date             time.Time `json:"date"`
	ComebackInterval int       `json:"comeback_interval"` // days since previous appearance, 0 on first
	ContinuousCount  int       `json:"continuous_count"`
}

// TemplateHistory aggregates every appearance of one template, replayed oldest-first.
type TemplateHistory struct {
	TemplateID          string          `json:"template_id"`
	Ordinal             int             `json:"-"` // registry position, for deterministic ties
	Pattern             []string        `json:"pattern"`
	TotalAppearances    int             `json:"total_appearances"`
	ComebackIntervals   []int           `json:"comeback_intervals"`
	MaxContinuousCount  int             `json:"max_continuous_count"`
	LastAppearanceDate  time.Time       `json:"last_appearance_date"`
	LastAppearanceIndex int             `json:"last_appearance_index"` // chronological draw index
	RecentActivity      []ActivityEntry `json:"recent_activity"`
}

// CurrentContinuousCount is the continuous count recorded at the latest appearance.
func (h *TemplateHistory) CurrentContinuousCount() int {
	if len(h.RecentActivity) == 0 {
		return 0
	}
	return h.RecentActivity[len(h.RecentActivity)-1].ContinuousCount
}

// AssignedDraw is a draw annotated with its template and recurrence counters.
type AssignedDraw struct {
	Draw
	TemplateID       string `json:"template_id"`
	ComebackInterval int    `json:"template_appear_comeback_from_prev_count"`
	ContinuousCount  int    `json:"template_continuous_count"`
}

// ProbabilityComponents is the per-factor breakdown of a template's probability.
type ProbabilityComponents struct {
	ComebackPattern   float64 `json:"comeback_pattern"`
	ContinuousPattern float64 `json:"continuous_pattern"`
	FrequencyPattern  float64 `json:"frequency_pattern"`
	RecentTrend       float64 `json:"recent_trend"`
}

// TemplatePrediction is the scored outlook of one template.
type TemplatePrediction struct {
	TemplateID              string                `json:"template_id"`
	Pattern                 []string              `json:"pattern"`
	TotalAppearances        int                   `json:"total_appearances"`
	DaysSinceLast           int                   `json:"days_since_last"`
	DrawsSinceLast          int                   `json:"draws_since_last"`
	CurrentContinuousCount  int                   `json:"current_continuous_count"`
	AverageComebackInterval float64               `json:"average_comeback_interval"`
	MaxContinuousCount      int                   `json:"max_continuous_count"`
	Components              ProbabilityComponents `json:"probability_components"`
	OverallProbability      float64               `json:"overall_probability"`
	ConfidenceLevel         int                   `json:"confidence_level"`
	LastAppearance          time.Time             `json:"last_appearance"`
}

// PredictionSummary counts templates per probability band.
type PredictionSummary struct {
	High   int `json:"high_probability"`
	Medium int `json:"medium_probability"`
	Low    int `json:"low_probability"`
}

// Methodology publishes the component weights as percentages.
type Methodology struct {
	ComebackPatternWeight   float64 `json:"comeback_pattern_weight"`
	ContinuousPatternWeight float64 `json:"continuous_pattern_weight"`
	FrequencyPatternWeight  float64 `json:"frequency_pattern_weight"`
	RecentTrendWeight       float64 `json:"recent_trend_weight"`
}

// TemplateReport is the published template prediction document for one game.
type TemplateReport struct {
	DataSource             Game                 `json:"data_source"`
	TotalTemplatesAnalyzed int                  `json:"total_templates_analyzed"`
	Summary                PredictionSummary    `json:"prediction_summary"`
	TopPredictions         []TemplatePrediction `json:"top_predictions"`
	AllPredictions         []TemplatePrediction `json:"all_predictions"`
	GeneratedAt            time.Time            `json:"generated_at"`
	Methodology            Methodology          `json:"methodology"`
	RunID                  string               `json:"run_id,omitempty"`
}
