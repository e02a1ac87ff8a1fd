package partials

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeNameRequired indicates a layer without a scope name.
	ErrScopeNameRequired = errors.New("partials: scope name must be provided")
	// ErrDuplicateScopeName indicates two layers share a scope name.
	ErrDuplicateScopeName = errors.New("partials: scope names must be unique")
	// ErrPriorityOrder indicates duplicate layer priorities.
	ErrPriorityOrder = errors.New("partials: scope priorities must be strictly ordered")

	// ErrDuplicateUnit indicates two fragments derive the same unit identifier.
	ErrDuplicateUnit = errors.New("partials: duplicate unit identifier")
	// ErrUnknownUnit indicates an instantiation for an unregistered identifier.
	ErrUnknownUnit = errors.New("partials: unknown unit")
	// ErrFragmentName indicates a fragment without a usable name.
	ErrFragmentName = errors.New("partials: fragment name must not be empty")
	// ErrAlreadyRegistered indicates RegisterAll ran more than once.
	ErrAlreadyRegistered = errors.New("partials: units already registered")
)

// RegistrationError reports a unit identifier collision and names both
// fragments that derived it.
type RegistrationError struct {
	ID       string
	Existing string
	Incoming string
	Err      error
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("partials: unit %q derived from both %s and %s: %v",
		e.ID, describeSource(e.Existing), describeSource(e.Incoming), e.Err)
}

func (e *RegistrationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeSource(path string) string {
	if path == "" {
		return "<unknown source>"
	}
	return fmt.Sprintf("%q", path)
}
