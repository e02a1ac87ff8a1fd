package activity

import (
	"strings"
	"time"
)

const (
	VerbUnitRegistered = "unit.registered"
	VerbUnitReplaced   = "unit.replaced"
	VerbDatasetLoaded  = "dataset.loaded"
	VerbDatasetFailed  = "dataset.failed"

	ObjectTypeUnit    = "unit"
	ObjectTypeDataset = "dataset"
)

// UnitEventInput describes a unit registration.
type UnitEventInput struct {
	UnitID     string
	SourcePath string
	Replaced   string
	Channel    string
	OccurredAt time.Time
}

// DatasetEventInput describes the outcome of one dataset load.
type DatasetEventInput struct {
	Name       string
	Cycle      uint64
	Duration   time.Duration
	Err        error
	Channel    string
	OccurredAt time.Time
}

// BuildUnitRegisteredEvent constructs the event emitted when a unit is
// registered. When Replaced is set the verb switches to unit.replaced.
func BuildUnitRegisteredEvent(input UnitEventInput) Event {
	verb := VerbUnitRegistered
	metadata := map[string]any{}
	if path := strings.TrimSpace(input.SourcePath); path != "" {
		metadata["source"] = path
	}
	if replaced := strings.TrimSpace(input.Replaced); replaced != "" {
		verb = VerbUnitReplaced
		metadata["replaced_source"] = replaced
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeUnit,
		ObjectID:   strings.TrimSpace(input.UnitID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildDatasetEvent constructs dataset.loaded or dataset.failed depending on
// input.Err.
func BuildDatasetEvent(input DatasetEventInput) Event {
	verb := VerbDatasetLoaded
	metadata := map[string]any{
		"cycle":       input.Cycle,
		"duration_ms": input.Duration.Milliseconds(),
	}
	if input.Err != nil {
		verb = VerbDatasetFailed
		metadata["error"] = input.Err.Error()
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeDataset,
		ObjectID:   strings.TrimSpace(input.Name),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
