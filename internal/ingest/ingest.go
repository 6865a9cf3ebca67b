// Package ingest turns scraped draw records into validated, chronologically
// ordered draws. It is the only place raw text formats are understood; every
// later stage works on models.Draw.
package ingest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/vietoracle/internal/logger"
	"github.com/rewired-gh/vietoracle/internal/models"
)

var prizePrefix = regexp.MustCompile(`^[0-9.]+`)

// NormalizeError reports a raw record rejected at ingestion.
type NormalizeError struct {
	Index int
	Date  string
	Err   error
}

func (e NormalizeError) Error() string {
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.Date, e.Err)
}

func (e NormalizeError) Unwrap() error {
	return e.Err
}

// Normalize parses every record for game, drops rejected and duplicate-date records,
// and returns the draws oldest-first. Records are expected in the scraper's order;
// for duplicate dates the first record seen wins. Rejections are returned alongside
// the draws and do not stop the run.
func Normalize(game models.Game, records []models.RawDraw) ([]models.Draw, []NormalizeError) {
	draws := make([]models.Draw, 0, len(records))
	var rejected []NormalizeError
	seen := make(map[time.Time]bool, len(records))
	duplicates := 0

	for i, rec := range records {
		draw, err := ParseRecord(game, rec)
		if err != nil {
			rejected = append(rejected, NormalizeError{Index: i, Date: rec.Date, Err: err})
			continue
		}
		if seen[draw.Date] {
			duplicates++
			continue
		}
		seen[draw.Date] = true
		draws = append(draws, draw)
	}

	sort.SliceStable(draws, func(i, j int) bool {
		return draws[i].Date.Before(draws[j].Date)
	})

	logger.Debug("Normalize %s: %d records, %d draws, %d rejected, %d duplicate dates",
		game, len(records), len(draws), len(rejected), duplicates)

	return draws, rejected
}

// ParseRecord parses a single raw record into a validated draw.
func ParseRecord(game models.Game, rec models.RawDraw) (models.Draw, error) {
	date, err := ParseDate(rec.Date)
	if err != nil {
		return models.Draw{}, &models.MalformedDrawError{Reason: err.Error()}
	}

	numbers, err := parseNumbers(rec.Numbers)
	if err != nil {
		return models.Draw{}, &models.MalformedDrawError{Date: date, Reason: err.Error()}
	}

	want := models.WinningCount
	if game.HasBonus() {
		want++
	}
	if len(numbers) != want {
		return models.Draw{}, &models.MalformedDrawError{
			Date:   date,
			Reason: fmt.Sprintf("expected %d number tokens for %s, got %d", want, game, len(numbers)),
		}
	}

	bonus := 0
	if game.HasBonus() {
		bonus = numbers[models.WinningCount]
		numbers = numbers[:models.WinningCount]
	}

	return models.NewDraw(game, date, numbers, bonus, ParsePrize(rec.Prize))
}

// ParseDate accepts "15/03/2025" optionally prefixed by a weekday abbreviation
// and a comma, as in "T7, 15/03/2025" or "CN, 16/03/2025".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ","); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	t, err := time.Parse("2/1/2006", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q", s)
	}
	return t, nil
}

func parseNumbers(s string) ([]int, error) {
	fields := strings.Fields(s)
	numbers := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid number token %q", f)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// ParsePrize extracts the leading "133.643.776.800" style amount from a prize
// string. Text without a numeric prefix yields 0.
func ParsePrize(s string) int64 {
	prefix := prizePrefix.FindString(strings.TrimSpace(s))
	digits := strings.ReplaceAll(prefix, ".", "")
	if digits == "" {
		return 0
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}
