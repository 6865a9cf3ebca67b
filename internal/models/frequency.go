package models

import (
	"time"

	"github.com/rewired-gh/vietoracle/internal/stats"
)

// FrequencyEntry is the count and share of draws containing one number.
type FrequencyEntry struct {
	Number     int     `json:"number"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FrequencyTable holds one entry per number (index = number-1) for a slice of draws.
// Percentage is Count / Draws * 100, and 0 when the slice is empty.
type FrequencyTable struct {
	Slice   string           `json:"slice"`
	Draws   int              `json:"draws"`
	Entries []FrequencyEntry `json:"entries"`
}

// Entry returns the entry for number n, or a zero entry when n is out of range.
func (t FrequencyTable) Entry(n int) FrequencyEntry {
	if n < 1 || n > len(t.Entries) {
		return FrequencyEntry{Number: n}
	}
	return t.Entries[n-1]
}

// FrequencySummary is the frequency output for one game, sliced along every
// temporal dimension. Slice maps are keyed by the slice label ("mon", "12", "even").
type FrequencySummary struct {
	Game        Game                      `json:"game"`
	TotalDraws  int                       `json:"total_draws"`
	Overall     FrequencyTable            `json:"overall"`
	DayOfWeek   map[string]FrequencyTable `json:"day_of_week"`
	DayOfMonth  map[string]FrequencyTable `json:"day_of_month"`
	Month       map[string]FrequencyTable `json:"month"`
	DateEvenOdd map[string]FrequencyTable `json:"date_even_odd"`
	GeneratedAt time.Time                 `json:"generated_at"`
	RunID       string                    `json:"run_id,omitempty"`
}

// Rounded returns a copy with every percentage rounded to one decimal, the
// precision used by the published summary files.
func (s FrequencySummary) Rounded() FrequencySummary {
	out := s
	out.Overall = roundTable(s.Overall)
	out.DayOfWeek = roundTables(s.DayOfWeek)
	out.DayOfMonth = roundTables(s.DayOfMonth)
	out.Month = roundTables(s.Month)
	out.DateEvenOdd = roundTables(s.DateEvenOdd)
	return out
}

func roundTables(in map[string]FrequencyTable) map[string]FrequencyTable {
	if in == nil {
		return nil
	}
	out := make(map[string]FrequencyTable, len(in))
	for k, t := range in {
		out[k] = roundTable(t)
	}
	return out
}

func roundTable(t FrequencyTable) FrequencyTable {
	entries := make([]FrequencyEntry, len(t.Entries))
	for i, e := range t.Entries {
		e.Percentage = stats.Round1(e.Percentage)
		entries[i] = e
	}
	t.Entries = entries
	return t
}
