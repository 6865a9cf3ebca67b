package models

import "time"

// TrendDirection is the endpoint-to-endpoint movement of a number's frequency series.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// Confidence buckets the R² of a fitted trend.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// PeriodFrequency is one point of a number's time series: the share of the
// period's draws that contained the number.
type PeriodFrequency struct {
	Period           int     `json:"period"`
	FrequencyPercent float64 `json:"frequency"`
	DrawCount        int     `json:"draw_count"`
}

// TrendEstimate is the regression summary for one number.
type TrendEstimate struct {
	Direction        TrendDirection `json:"direction"`
	Strength         float64        `json:"strength"` // R², in [0,1]
	Forecast         float64        `json:"forecast"` // next-period frequency %, >= 0
	Confidence       Confidence     `json:"confidence"`
	CurrentFrequency float64        `json:"current_frequency"`
	Change           float64        `json:"change"`
	Periods          int            `json:"periods"`
}

// NumberTrend pairs a number with its trend, used by the hot/cold lists.
type NumberTrend struct {
	Number int `json:"number"`
	TrendEstimate
}

// NumberPrediction is one entry of the ranked number list.
type NumberPrediction struct {
	Number     int            `json:"number"`
	Score      float64        `json:"score"`
	Trend      TrendDirection `json:"trend"`
	Strength   float64        `json:"strength"`
	Confidence Confidence     `json:"confidence"`
	Forecast   float64        `json:"forecast"`
}

// ForecastReport is the published number prediction document for one game.
type ForecastReport struct {
	Game               Game                  `json:"game"`
	PredictedNumbers   []NumberPrediction    `json:"predicted_numbers"`
	HotNumbers         []NumberTrend         `json:"hot_numbers"`
	ColdNumbers        []NumberTrend         `json:"cold_numbers"`
	Trends             map[int]TrendEstimate `json:"trends"`
	AnalysisDate       time.Time             `json:"analysis_date"`
	TotalDrawsAnalyzed int                   `json:"total_draws_analyzed"`
	TotalNumbers       int                   `json:"total_numbers_analyzed"`
	PredictionMethod   string                `json:"prediction_method"`
	RunID              string                `json:"run_id,omitempty"`
}
