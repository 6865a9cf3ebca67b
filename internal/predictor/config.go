package predictor

import (
	"fmt"
	"math"

	"github.com/rewired-gh/vietoracle/internal/models"
)

// Day measures for days-since-last-appearance.
const (
	DayMeasureCalendar = "calendar" // calendar days to the newest draw
	DayMeasureCadence  = "cadence"  // draws since × per-game day multiplier
)

// Weights are the component weights of the composite probability. They must sum to 1.
type Weights struct {
	Comeback   float64 `mapstructure:"comeback"`
	Continuous float64 `mapstructure:"continuous"`
	Frequency  float64 `mapstructure:"frequency"`
	Trend      float64 `mapstructure:"trend"`
}

func (w Weights) sum() float64 {
	return w.Comeback + w.Continuous + w.Frequency + w.Trend
}

// Tier awards Points when its threshold is met. Tier lists are checked in
// order and the first match wins.
type Tier struct {
	Threshold float64 `mapstructure:"threshold"`
	Points    int     `mapstructure:"points"`
}

// ConfidenceTiers scores data quality. Count tiers match at value >= threshold,
// ordered by descending threshold; StdDev tiers match at value < threshold,
// ordered by ascending threshold.
type ConfidenceTiers struct {
	Appearances []Tier `mapstructure:"appearances"`
	Intervals   []Tier `mapstructure:"intervals"`
	Activity    []Tier `mapstructure:"activity"`
	StdDev      []Tier `mapstructure:"std_dev"`
	Cap         int    `mapstructure:"cap"`
}

// Config collects every tunable of the template predictor.
type Config struct {
	Weights Weights `mapstructure:"weights"`

	ComebackTolerance int     `mapstructure:"comeback_tolerance"` // ± days
	ComebackCap       float64 `mapstructure:"comeback_cap"`

	ContinuousStrict bool `mapstructure:"continuous_strict"` // count > current, else >=

	OverdueScale float64 `mapstructure:"overdue_scale"`
	OverdueCap   float64 `mapstructure:"overdue_cap"`
	FreshBase    float64 `mapstructure:"fresh_base"`
	FreshSlope   float64 `mapstructure:"fresh_slope"`
	FreshFloor   float64 `mapstructure:"fresh_floor"`

	TrendWindow int     `mapstructure:"trend_window"`
	TrendBase   float64 `mapstructure:"trend_base"`
	TrendSlope  float64 `mapstructure:"trend_slope"`

	DayMeasure     string         `mapstructure:"day_measure"`
	DayMultipliers map[string]int `mapstructure:"day_multipliers"`

	Confidence ConfidenceTiers `mapstructure:"confidence"`

	HighThreshold   float64 `mapstructure:"high_threshold"`
	MediumThreshold float64 `mapstructure:"medium_threshold"`
	TopCount        int     `mapstructure:"top_count"`
}

// DefaultConfig returns the standard predictor parameters.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{Comeback: 0.35, Continuous: 0.25, Frequency: 0.25, Trend: 0.15},

		ComebackTolerance: 2,
		ComebackCap:       95,
		ContinuousStrict:  true,

		OverdueScale: 25,
		OverdueCap:   80,
		FreshBase:    25,
		FreshSlope:   20,
		FreshFloor:   5,

		TrendWindow: 10,
		TrendBase:   50,
		TrendSlope:  5,

		DayMeasure: DayMeasureCalendar,
		DayMultipliers: map[string]int{
			string(models.Vietlot45): 2,
			string(models.Vietlot55): 3,
		},

		Confidence: ConfidenceTiers{
			Appearances: []Tier{{20, 30}, {10, 20}, {5, 10}},
			Intervals:   []Tier{{10, 25}, {5, 15}, {2, 10}},
			Activity:    []Tier{{20, 25}, {10, 15}, {5, 10}},
			StdDev:      []Tier{{10, 20}, {20, 10}},
			Cap:         100,
		},

		HighThreshold:   50,
		MediumThreshold: 25,
		TopCount:        20,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	w := c.Weights
	if w.Comeback < 0 || w.Continuous < 0 || w.Frequency < 0 || w.Trend < 0 {
		return fmt.Errorf("predictor.weights must not be negative")
	}
	if math.Abs(w.sum()-1) > 1e-6 {
		return fmt.Errorf("predictor.weights must sum to 1, got %.4f", w.sum())
	}
	if c.ComebackTolerance < 0 {
		return fmt.Errorf("predictor.comeback_tolerance must not be negative")
	}
	if c.ComebackCap <= 0 || c.ComebackCap > 100 {
		return fmt.Errorf("predictor.comeback_cap must be in (0, 100]")
	}
	if c.OverdueCap <= 0 || c.OverdueCap > 100 {
		return fmt.Errorf("predictor.overdue_cap must be in (0, 100]")
	}
	if c.FreshFloor < 0 || c.FreshFloor > c.FreshBase {
		return fmt.Errorf("predictor.fresh_floor must be between 0 and fresh_base")
	}
	if c.TrendWindow < 1 {
		return fmt.Errorf("predictor.trend_window must be at least 1")
	}
	switch c.DayMeasure {
	case DayMeasureCalendar:
	case DayMeasureCadence:
		for _, g := range models.Games {
			if c.DayMultipliers[string(g)] < 1 {
				return fmt.Errorf("predictor.day_multipliers.%s must be at least 1 with cadence day measure", g)
			}
		}
	default:
		return fmt.Errorf("predictor.day_measure must be %q or %q", DayMeasureCalendar, DayMeasureCadence)
	}
	if err := validateTiers("appearances", c.Confidence.Appearances, false); err != nil {
		return err
	}
	if err := validateTiers("intervals", c.Confidence.Intervals, false); err != nil {
		return err
	}
	if err := validateTiers("activity", c.Confidence.Activity, false); err != nil {
		return err
	}
	if err := validateTiers("std_dev", c.Confidence.StdDev, true); err != nil {
		return err
	}
	if c.Confidence.Cap < 1 {
		return fmt.Errorf("predictor.confidence.cap must be at least 1")
	}
	if c.MediumThreshold < 0 || c.HighThreshold <= c.MediumThreshold {
		return fmt.Errorf("predictor.high_threshold must be greater than medium_threshold")
	}
	if c.TopCount < 1 {
		return fmt.Errorf("predictor.top_count must be at least 1")
	}
	return nil
}

// validateTiers requires points to shrink as thresholds get easier to meet so
// confidence stays monotonic.
func validateTiers(name string, tiers []Tier, ascending bool) error {
	for i, t := range tiers {
		if t.Points < 0 {
			return fmt.Errorf("predictor.confidence.%s[%d].points must not be negative", name, i)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if ascending && t.Threshold <= prev.Threshold || !ascending && t.Threshold >= prev.Threshold {
			return fmt.Errorf("predictor.confidence.%s thresholds out of order at %d", name, i)
		}
		if t.Points > prev.Points {
			return fmt.Errorf("predictor.confidence.%s[%d].points must not exceed the previous tier", name, i)
		}
	}
	return nil
}
