package models

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDrawValidate(t *testing.T) {
	tests := []struct {
		name    string
		game    Game
		numbers []int
		bonus   int
		prize   int64
		wantErr bool
	}{
		{
			name:    "valid 6/45 draw",
			game:    Vietlot45,
			numbers: []int{1, 34, 39, 40, 42, 45},
		},
		{
			name:    "valid 6/55 draw with bonus",
			game:    Vietlot55,
			numbers: []int{1, 34, 39, 40, 42, 50},
			bonus:   7,
		},
		{
			name:    "too few numbers",
			game:    Vietlot45,
			numbers: []int{1, 2, 3, 4, 5},
			wantErr: true,
		},
		{
			name:    "out of domain",
			game:    Vietlot45,
			numbers: []int{1, 2, 3, 4, 5, 46},
			wantErr: true,
		},
		{
			name:    "zero is out of domain",
			game:    Vietlot55,
			numbers: []int{0, 2, 3, 4, 5, 6},
			bonus:   7,
			wantErr: true,
		},
		{
			name:    "duplicate number",
			game:    Vietlot45,
			numbers: []int{1, 2, 3, 4, 5, 5},
			wantErr: true,
		},
		{
			name:    "missing bonus for 6/55",
			game:    Vietlot55,
			numbers: []int{1, 2, 3, 4, 5, 6},
			wantErr: true,
		},
		{
			name:    "bonus not allowed for 6/45",
			game:    Vietlot45,
			numbers: []int{1, 2, 3, 4, 5, 6},
			bonus:   9,
			wantErr: true,
		},
		{
			name:    "negative prize",
			game:    Vietlot45,
			numbers: []int{1, 2, 3, 4, 5, 6},
			prize:   -1,
			wantErr: true,
		},
		{
			name:    "unknown game",
			game:    Game("keno"),
			numbers: []int{1, 2, 3, 4, 5, 6},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDraw(tt.game, date(2025, 3, 15), tt.numbers, tt.bonus, tt.prize)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDraw() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var malformed *MalformedDrawError
				if !errors.As(err, &malformed) {
					t.Errorf("NewDraw() error type = %T, want *MalformedDrawError", err)
				}
			}
		})
	}
}

func TestNewDrawDerivedFields(t *testing.T) {
	d, err := NewDraw(Vietlot45, date(2025, 3, 15), []int{1, 34, 39, 40, 42, 45}, 0, 0)
	if err != nil {
		t.Fatalf("NewDraw failed: %v", err)
	}
	if d.Total != 201 {
		t.Errorf("Total = %d, want 201", d.Total)
	}
	if d.TotalParity != Odd {
		t.Errorf("TotalParity = %s, want odd", d.TotalParity)
	}
	if d.OddCount != 3 || d.EvenCount != 3 {
		t.Errorf("OddCount/EvenCount = %d/%d, want 3/3", d.OddCount, d.EvenCount)
	}
	if d.DateParity() != Odd {
		t.Errorf("DateParity = %s, want odd for the 15th", d.DateParity())
	}
}

func TestNewDrawCopiesNumbers(t *testing.T) {
	numbers := []int{1, 2, 3, 4, 5, 6}
	d, err := NewDraw(Vietlot45, date(2025, 1, 2), numbers, 0, 0)
	if err != nil {
		t.Fatalf("NewDraw failed: %v", err)
	}
	numbers[0] = 44
	if d.WinningNumbers[0] != 1 {
		t.Error("NewDraw must not alias the caller's slice")
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 13, 18, 30, 0, 0, time.UTC)
	b := time.Date(2025, 3, 15, 6, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 2 {
		t.Errorf("DaysBetween() = %d, want 2", got)
	}
}

func TestParseGame(t *testing.T) {
	if _, err := ParseGame("vietlot55"); err != nil {
		t.Errorf("ParseGame(vietlot55) error = %v", err)
	}
	if _, err := ParseGame("powerball"); err == nil {
		t.Error("ParseGame(powerball) expected error")
	}
}

func TestTemplateEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   TemplateEntry
		wantErr bool
	}{
		{name: "valid", entry: TemplateEntry{ID: "T1", Group: []string{"G0", "G1", "G1", "G3", "G4", "G4"}}},
		{name: "empty id", entry: TemplateEntry{Group: []string{"G0", "G1", "G1", "G3", "G4", "G4"}}, wantErr: true},
		{name: "short group", entry: TemplateEntry{ID: "T2", Group: []string{"G0"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("TemplateEntry.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrequencySummaryRounded(t *testing.T) {
	s := FrequencySummary{
		Overall: FrequencyTable{Draws: 3, Entries: []FrequencyEntry{{Number: 1, Count: 1, Percentage: 100.0 / 3}}},
		Month:   map[string]FrequencyTable{"1": {Draws: 3, Entries: []FrequencyEntry{{Number: 1, Count: 2, Percentage: 200.0 / 3}}}},
	}
	r := s.Rounded()
	if r.Overall.Entries[0].Percentage != 33.3 {
		t.Errorf("overall percentage = %v, want 33.3", r.Overall.Entries[0].Percentage)
	}
	if r.Month["1"].Entries[0].Percentage != 66.7 {
		t.Errorf("month percentage = %v, want 66.7", r.Month["1"].Entries[0].Percentage)
	}
	if s.Overall.Entries[0].Percentage == 33.3 {
		t.Error("Rounded must not modify the receiver")
	}
}
