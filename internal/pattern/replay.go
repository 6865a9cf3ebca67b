package pattern

import (
	"fmt"
	"sort"

	"github.com/rewired-gh/vietoracle/internal/logger"
	"github.com/rewired-gh/vietoracle/internal/models"
)

// DefaultActivityWindow is how many appearances a history keeps in RecentActivity.
const DefaultActivityWindow = 50

// Replay is the result of walking a draw history through a registry.
type Replay struct {
	Draws     []models.AssignedDraw
	Histories []models.TemplateHistory // registry order, templates with no appearance omitted
	Minted    int
}

// History returns the history of id, or nil.
func (r *Replay) History(id string) *models.TemplateHistory {
	for i := range r.Histories {
		if r.Histories[i].TemplateID == id {
			return &r.Histories[i]
		}
	}
	return nil
}

// Run assigns every draw (oldest first) a template from reg, minting ids for new
// patterns, and accumulates each template's history. window caps RecentActivity;
// values <= 0 use DefaultActivityWindow.
func Run(draws []models.Draw, reg *Registry, window int) (*Replay, error) {
	if window <= 0 {
		window = DefaultActivityWindow
	}
	for i := 1; i < len(draws); i++ {
		if draws[i].Date.Before(draws[i-1].Date) {
			return nil, fmt.Errorf("draw %d (%s) precedes draw %d: history must be oldest first",
				i, draws[i].Date.Format("2006-01-02"), i-1)
		}
	}

	before := reg.Minted()
	histories := make(map[string]*models.TemplateHistory)
	assigned := make([]models.AssignedDraw, len(draws))

	for i := range draws {
		d := draws[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		pattern := Canonicalize(d.WinningNumbers)
		id, minted := reg.Assign(pattern)
		if minted {
			logger.Debug("Minted template %s for %v on %s", id, pattern, d.Date.Format("2006-01-02"))
		}

		h, seen := histories[id]
		if !seen {
			h = &models.TemplateHistory{
				TemplateID: id,
				Ordinal:    reg.Ordinal(id),
				Pattern:    pattern,
			}
			histories[id] = h
		}

		comeback := 0
		if seen {
			comeback = models.DaysBetween(h.LastAppearanceDate, d.Date)
			if comeback > 0 {
				h.ComebackIntervals = append(h.ComebackIntervals, comeback)
			}
		}

		continuous := 1
		if i > 0 && assigned[i-1].TemplateID == id {
			continuous = assigned[i-1].ContinuousCount + 1
		}

		h.TotalAppearances++
		h.LastAppearanceDate = d.Date
		h.LastAppearanceIndex = i
		if continuous > h.MaxContinuousCount {
			h.MaxContinuousCount = continuous
		}
		h.RecentActivity = append(h.RecentActivity, models.ActivityEntry{
			Date:             d.Date,
			ComebackInterval: comeback,
			ContinuousCount:  continuous,
		})
		if len(h.RecentActivity) > window {
			h.RecentActivity = append(h.RecentActivity[:0:0], h.RecentActivity[len(h.RecentActivity)-window:]...)
		}

		assigned[i] = models.AssignedDraw{
			Draw:             d,
			TemplateID:       id,
			ComebackInterval: comeback,
			ContinuousCount:  continuous,
		}
	}

	out := &Replay{
		Draws:     assigned,
		Histories: make([]models.TemplateHistory, 0, len(histories)),
		Minted:    reg.Minted() - before,
	}
	for _, h := range histories {
		out.Histories = append(out.Histories, *h)
	}
	sort.Slice(out.Histories, func(i, j int) bool {
		return out.Histories[i].Ordinal < out.Histories[j].Ordinal
	})

	logger.Debug("Replayed %d draws: %d templates seen, %d minted, registry size %d",
		len(draws), len(out.Histories), out.Minted, reg.Len())
	return out, nil
}
