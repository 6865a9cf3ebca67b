// Package pattern maps draws to decade-group templates and replays a draw history
// to build the recurrence statistics of every template.
//
// A template is the sorted multiset of decade labels of a draw's six winning
// numbers: 1..9 is G0, 10..19 is G1 and so on. Template identity lives in an
// append-only Registry; replaying the same chronological history always yields
// the same ids.
package pattern

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rewired-gh/vietoracle/internal/models"
)

// Label returns the decade label of n.
func Label(n int) string {
	return "G" + strconv.Itoa(n/10)
}

// Canonicalize returns the sorted decade labels of numbers.
func Canonicalize(numbers []int) []string {
	labels := make([]string, len(numbers))
	for i, n := range numbers {
		labels[i] = Label(n)
	}
	sort.Strings(labels)
	return labels
}

// Key is the comparable form of a pattern. The pattern is sorted first so keys
// are independent of label order.
func Key(pattern []string) string {
	sorted := append([]string(nil), pattern...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Registry is the append-only mapping between patterns and template ids.
type Registry struct {
	mu      sync.RWMutex
	version int
	entries []models.TemplateEntry
	byKey   map[string]int
	byID    map[string]int
	nextSeq int
	minted  int
}

// NewRegistry returns an empty registry at version 0.
func NewRegistry() *Registry {
	return &Registry{
		byKey:   make(map[string]int),
		byID:    make(map[string]int),
		nextSeq: 1,
	}
}

// FromSnapshot rebuilds a registry from its persisted form. Duplicate ids or
// patterns are rejected since they would make assignment ambiguous.
func FromSnapshot(s models.RegistrySnapshot) (*Registry, error) {
	r := NewRegistry()
	r.version = s.Version
	for i := range s.Templates {
		e := s.Templates[i]
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("registry entry %d: %w", i, err)
		}
		key := Key(e.Group)
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("registry entry %d: duplicate template id %s", i, e.ID)
		}
		if prev, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("registry entry %d: template %s repeats pattern of %s", i, e.ID, r.entries[prev].ID)
		}
		e.Group = strings.Split(key, ",")
		r.add(e, key)
		if seq, ok := sequence(e.ID); ok && seq >= r.nextSeq {
			r.nextSeq = seq + 1
		}
	}
	return r, nil
}

// sequence extracts n from an id of the form T<n>.
func sequence(id string) (int, bool) {
	if !strings.HasPrefix(id, "T") {
		return 0, false
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (r *Registry) add(e models.TemplateEntry, key string) {
	r.byKey[key] = len(r.entries)
	r.byID[e.ID] = len(r.entries)
	r.entries = append(r.entries, e)
}

// Lookup returns the id of pattern if it has been assigned one.
func (r *Registry) Lookup(pattern []string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byKey[Key(pattern)]
	if !ok {
		return "", false
	}
	return r.entries[i].ID, true
}

// Assign returns the id of pattern, minting T<max+1> if the pattern is new.
func (r *Registry) Assign(pattern []string) (id string, minted bool) {
	key := Key(pattern)

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byKey[key]; ok {
		return r.entries[i].ID, false
	}
	id = "T" + strconv.Itoa(r.nextSeq)
	r.nextSeq++
	r.add(models.TemplateEntry{ID: id, Group: strings.Split(key, ",")}, key)
	r.minted++
	return id, true
}

// Ordinal returns the registry position of id, or -1 if unknown.
func (r *Registry) Ordinal(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return -1
	}
	return i
}

// Pattern returns the labels of template id.
func (r *Registry) Pattern(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	return append([]string(nil), r.entries[i].Group...)
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Minted returns how many templates were added since the registry was loaded.
func (r *Registry) Minted() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minted
}

// Version is the snapshot version the registry was loaded from.
func (r *Registry) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Snapshot returns the persistable form of the registry. Version stays the
// loaded version; the store bumps it on a successful save.
func (r *Registry) Snapshot(now time.Time) models.RegistrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	templates := make([]models.TemplateEntry, len(r.entries))
	for i, e := range r.entries {
		templates[i] = models.TemplateEntry{ID: e.ID, Group: append([]string(nil), e.Group...)}
	}
	return models.RegistrySnapshot{Version: r.version, SavedAt: now, Templates: templates}
}
