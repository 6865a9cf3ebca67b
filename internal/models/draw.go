// Package models defines the core domain entities for the vietoracle application.
// These models represent lottery draws, per-number statistics, decade-group templates
// and the prediction documents derived from them.
//
// Terminology (matching the Vietlott result pages):
//   - Game: a lottery variant, either Mega 6/45 ("vietlot45") or Power 6/55 ("vietlot55").
//   - Draw: one published result with six winning numbers (plus a bonus number for 6/55).
//   - Template: the sorted decade-group pattern of a draw's winning numbers, e.g. [G0 G3 G3 G4 G4 G4].
package models

import (
	"fmt"
	"time"
)

// WinningCount is the number of winning numbers every draw carries.
const WinningCount = 6

// Game identifies a lottery variant.
type Game string

const (
	// Vietlot45 is Mega 6/45: six numbers from 1..45, no bonus number.
	Vietlot45 Game = "vietlot45"
	// Vietlot55 is Power 6/55: six numbers from 1..55 plus a bonus number.
	Vietlot55 Game = "vietlot55"
)

// Games lists every supported game in report order.
var Games = []Game{Vietlot45, Vietlot55}

// TotalNumbers returns the size of the game's number domain.
func (g Game) TotalNumbers() int {
	switch g {
	case Vietlot45:
		return 45
	case Vietlot55:
		return 55
	default:
		return 0
	}
}

// HasBonus reports whether draws of this game carry a 7th bonus number.
func (g Game) HasBonus() bool {
	return g == Vietlot55
}

// Valid reports whether g is a known game.
func (g Game) Valid() bool {
	return g.TotalNumbers() > 0
}

// ParseGame converts a configuration string into a Game.
func ParseGame(s string) (Game, error) {
	g := Game(s)
	if !g.Valid() {
		return "", fmt.Errorf("unknown game %q", s)
	}
	return g, nil
}

// Parity classifies an integer as even or odd.
type Parity string

const (
	Even Parity = "even"
	Odd  Parity = "odd"
)

// ParityOf returns the parity of n.
func ParityOf(n int) Parity {
	if n%2 == 0 {
		return Even
	}
	return Odd
}

// Draw is one normalized lottery result. Draws are created once by NewDraw and
// are never modified afterwards; the derived fields are computed at creation.
type Draw struct {
	Game           Game      `json:"game"`
	Date           time.Time `json:"date"`
	WinningNumbers []int     `json:"winning_numbers"`
	BonusNumber    int       `json:"bonus_number,omitempty"` // 0 when the game has no bonus
	PrizeAmount    int64     `json:"prize_amount"`

	Total       int    `json:"total"`
	TotalParity Parity `json:"total_even_or_odd"`
	OddCount    int    `json:"odd_count"`
	EvenCount   int    `json:"even_count"`
}

// NewDraw validates the inputs and returns a draw with its derived fields filled in.
// The date is truncated to a calendar day in UTC. bonus must be 0 for games without
// a bonus number and within the domain otherwise.
func NewDraw(game Game, date time.Time, numbers []int, bonus int, prize int64) (Draw, error) {
	d := Draw{
		Game:           game,
		Date:           CivilDate(date),
		WinningNumbers: append([]int(nil), numbers...),
		BonusNumber:    bonus,
		PrizeAmount:    prize,
	}
	if err := d.Validate(); err != nil {
		return Draw{}, err
	}

	for _, n := range d.WinningNumbers {
		d.Total += n
		if n%2 == 0 {
			d.EvenCount++
		} else {
			d.OddCount++
		}
	}
	d.TotalParity = ParityOf(d.Total)
	return d, nil
}

// Validate checks the structural invariants of a draw.
func (d *Draw) Validate() error {
	if !d.Game.Valid() {
		return &MalformedDrawError{Date: d.Date, Reason: fmt.Sprintf("unknown game %q", d.Game)}
	}
	if d.Date.IsZero() {
		return &MalformedDrawError{Reason: "missing draw date"}
	}
	if len(d.WinningNumbers) != WinningCount {
		return &MalformedDrawError{Date: d.Date, Reason: fmt.Sprintf("expected %d winning numbers, got %d", WinningCount, len(d.WinningNumbers))}
	}

	limit := d.Game.TotalNumbers()
	seen := make(map[int]bool, WinningCount)
	for _, n := range d.WinningNumbers {
		if n < 1 || n > limit {
			return &MalformedDrawError{Date: d.Date, Reason: fmt.Sprintf("number %d outside 1..%d", n, limit)}
		}
		if seen[n] {
			return &MalformedDrawError{Date: d.Date, Reason: fmt.Sprintf("duplicate number %d", n)}
		}
		seen[n] = true
	}

	if d.Game.HasBonus() {
		if d.BonusNumber < 1 || d.BonusNumber > limit {
			return &MalformedDrawError{Date: d.Date, Reason: fmt.Sprintf("bonus number %d outside 1..%d", d.BonusNumber, limit)}
		}
	} else if d.BonusNumber != 0 {
		return &MalformedDrawError{Date: d.Date, Reason: "bonus number not allowed for " + string(d.Game)}
	}

	if d.PrizeAmount < 0 {
		return &MalformedDrawError{Date: d.Date, Reason: "prize amount must not be negative"}
	}
	return nil
}

// Contains reports whether n is one of the winning numbers.
func (d *Draw) Contains(n int) bool {
	for _, w := range d.WinningNumbers {
		if w == n {
			return true
		}
	}
	return false
}

// DateParity is the parity of the draw's day of month.
func (d *Draw) DateParity() Parity {
	return ParityOf(d.Date.Day())
}

// CivilDate drops the clock and zone of t, keeping its calendar day.
func CivilDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}

// RawDraw is a draw record exactly as the results scraper stores it.
type RawDraw struct {
	Date    string `json:"date"`    // "T7, 15/03/2025" or "15/03/2025"
	Numbers string `json:"numbers"` // space-separated two-digit tokens
	Prize   string `json:"prize"`   // free text with an optional leading amount
}
