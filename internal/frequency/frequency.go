// Package frequency counts how often each number is drawn, overall and sliced
// by weekday, day of month, month and date parity.
//
// For every slice the percentage denominator is the number of draws that fall
// in that slice, not the total draw count. Slices with no draws report zero for
// every number.
package frequency

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rewired-gh/vietoracle/internal/models"
	"github.com/rewired-gh/vietoracle/internal/stats"
)

// Dimension selects how draws are grouped into slices.
type Dimension int

const (
	Overall Dimension = iota
	Weekday
	DayOfMonth
	Month
	DateParity
)

// weekdayKeys follows time.Weekday order (Sunday = 0).
var weekdayKeys = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func (d Dimension) String() string {
	switch d {
	case Overall:
		return "overall"
	case Weekday:
		return "day_of_week"
	case DayOfMonth:
		return "day_of_month"
	case Month:
		return "month"
	case DateParity:
		return "date_even_odd"
	default:
		return "unknown"
	}
}

// Keys returns every slice label of the dimension in presentation order.
func (d Dimension) Keys() []string {
	switch d {
	case Overall:
		return []string{"all"}
	case Weekday:
		return weekdayKeys
	case DayOfMonth:
		return numberedKeys(31)
	case Month:
		return numberedKeys(12)
	case DateParity:
		return []string{string(models.Even), string(models.Odd)}
	default:
		return nil
	}
}

// Key returns the slice label a draw date belongs to.
func (d Dimension) Key(date time.Time) string {
	switch d {
	case Weekday:
		return weekdayKeys[date.Weekday()]
	case DayOfMonth:
		return strconv.Itoa(date.Day())
	case Month:
		return strconv.Itoa(int(date.Month()))
	case DateParity:
		return string(models.ParityOf(date.Day()))
	default:
		return "all"
	}
}

func numberedKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i + 1)
	}
	return keys
}

// Aggregate builds one FrequencyTable per slice of dim. Every draw is validated
// against game first; a malformed draw aborts the aggregation.
func Aggregate(game models.Game, draws []models.Draw, dim Dimension) (map[string]models.FrequencyTable, error) {
	totalNumbers := game.TotalNumbers()
	if totalNumbers == 0 {
		return nil, fmt.Errorf("unknown game %q", game)
	}

	keys := dim.Keys()
	counts := make(map[string][]int, len(keys))
	sliceDraws := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = make([]int, totalNumbers)
	}

	for i := range draws {
		d := &draws[i]
		if d.Game != game {
			return nil, &models.MalformedDrawError{Date: d.Date, Reason: fmt.Sprintf("draw of %s in %s history", d.Game, game)}
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		k := dim.Key(d.Date)
		sliceDraws[k]++
		for _, n := range d.WinningNumbers {
			counts[k][n-1]++
		}
	}

	tables := make(map[string]models.FrequencyTable, len(keys))
	for _, k := range keys {
		tables[k] = buildTable(k, counts[k], sliceDraws[k])
	}
	return tables, nil
}

func buildTable(slice string, counts []int, draws int) models.FrequencyTable {
	entries := make([]models.FrequencyEntry, len(counts))
	for i, c := range counts {
		entries[i] = models.FrequencyEntry{
			Number:     i + 1,
			Count:      c,
			Percentage: stats.Percent(c, draws),
		}
	}
	return models.FrequencyTable{Slice: slice, Draws: draws, Entries: entries}
}

// Summarize runs Aggregate for every dimension and assembles the game summary.
// Percentages are exact; call Rounded on the result for the published precision.
func Summarize(game models.Game, draws []models.Draw, now time.Time) (models.FrequencySummary, error) {
	summary := models.FrequencySummary{
		Game:        game,
		TotalDraws:  len(draws),
		GeneratedAt: now,
	}

	for _, dim := range []Dimension{Overall, Weekday, DayOfMonth, Month, DateParity} {
		tables, err := Aggregate(game, draws, dim)
		if err != nil {
			return models.FrequencySummary{}, fmt.Errorf("aggregate %s: %w", dim, err)
		}
		switch dim {
		case Overall:
			summary.Overall = tables["all"]
		case Weekday:
			summary.DayOfWeek = tables
		case DayOfMonth:
			summary.DayOfMonth = tables
		case Month:
			summary.Month = tables
		case DateParity:
			summary.DateEvenOdd = tables
		}
	}
	return summary, nil
}
