package loader

import (
	"errors"
	"fmt"
	"time"
)

// Outcome records how one dataset load ended.
type Outcome struct {
	Name     string
	Err      error
	Duration time.Duration
}

// OK reports whether the load succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report summarises one LoadAll call. Outcomes follow the order of the
// requested names, not completion order.
type Report struct {
	Cycle    uint64
	Outcomes []Outcome
}

// Outcome returns the outcome recorded for name.
func (r Report) Outcome(name string) (Outcome, bool) {
	for _, outcome := range r.Outcomes {
		if outcome.Name == name {
			return outcome, true
		}
	}
	return Outcome{}, false
}

// Succeeded returns the names that loaded, in request order.
func (r Report) Succeeded() []string {
	var names []string
	for _, outcome := range r.Outcomes {
		if outcome.OK() {
			names = append(names, outcome.Name)
		}
	}
	return names
}

// Failed returns the names that did not load, in request order.
func (r Report) Failed() []string {
	var names []string
	for _, outcome := range r.Outcomes {
		if !outcome.OK() {
			names = append(names, outcome.Name)
		}
	}
	return names
}

// Err joins every failure. It is informational; a failed dataset does not
// make the batch fail.
func (r Report) Err() error {
	var errs []error
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			errs = append(errs, fmt.Errorf("dataset %q: %w", outcome.Name, outcome.Err))
		}
	}
	return errors.Join(errs...)
}
