package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrRegistryConflict is returned when another writer holds the template registry
// or changed it after it was loaded. The run must abort without writing.
var ErrRegistryConflict = errors.New("template registry write conflict")

// MalformedDrawError reports a draw that fails structural validation.
type MalformedDrawError struct {
	Date   time.Time
	Reason string
}

func (e *MalformedDrawError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("malformed draw: %s", e.Reason)
	}
	return fmt.Sprintf("malformed draw %s: %s", e.Date.Format("2006-01-02"), e.Reason)
}
