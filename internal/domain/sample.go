package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a sample.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPartial    Status = "partial"
	StatusCompleted  Status = "completed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPartial, StatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool { return s == StatusCompleted }

// CanTransitionTo reports whether the lab may move a sample from s to next.
// The machine is forward-only: pending → processing → {partial, completed},
// partial → completed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusPartial || next == StatusCompleted
	case StatusPartial:
		return next == StatusCompleted
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Mode selects which catalog and sample-type set applies.
type Mode string

const (
	ModeFeeds Mode = "feeds"
	ModeSoil  Mode = "soil"
)

func (m Mode) String() string { return string(m) }

func (m Mode) IsValid() bool {
	return m == ModeFeeds || m == ModeSoil
}

func ParseModeFromString(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid mode %q", ErrValidation, s)
	}
	return m, nil
}

var sampleTypesByMode = map[Mode][]string{
	ModeFeeds: {"Corn Silage", "Hay/Haylage", "TMR", "Grains/Commodities"},
	ModeSoil:  {"Field/Pasture", "Garden/Lawn", "Commercial"},
}

// SampleTypes returns the closed set of sample types for a mode.
func SampleTypes(mode Mode) []string {
	types := sampleTypesByMode[mode]
	out := make([]string, len(types))
	copy(out, types)
	return out
}

// IsSampleType reports whether name is a known sample type for the mode.
func IsSampleType(mode Mode, name string) bool {
	for _, t := range sampleTypesByMode[mode] {
		if t == name {
			return true
		}
	}
	return false
}

const maxSampleNameLen = 120

// Sample is the core domain entity: a unit of material submitted for analysis.
//
// LabNumber is empty until the lab issues one; ContainerID identifies the
// physical container before that and is unique per farm. CompletedTests and
// PendingTests are disjoint analyte-name sets.
type Sample struct {
	ID             string
	LabNumber      string
	ContainerID    string
	SampleName     string
	FarmID         string
	Mode           Mode
	SampleType     string
	PackageID      string
	AddOnIDs       []string
	Status         Status
	CompletedTests []string
	PendingTests   []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Sample) Validate() error {
	if s.FarmID == "" {
		return fmt.Errorf("%w: farm id is required", ErrValidation)
	}
	if s.ContainerID == "" {
		return fmt.Errorf("%w: container id is required", ErrValidation)
	}
	if !s.Mode.IsValid() {
		return fmt.Errorf("%w: invalid mode %q", ErrValidation, s.Mode)
	}
	if !IsSampleType(s.Mode, s.SampleType) {
		return fmt.Errorf("%w: invalid %s sample type %q", ErrValidation, s.Mode, s.SampleType)
	}
	if s.PackageID == "" {
		return fmt.Errorf("%w: test package is required", ErrValidation)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, s.Status)
	}
	if nameLen := len([]rune(s.SampleName)); nameLen > maxSampleNameLen {
		return fmt.Errorf("%w: sample name exceeds %d characters (got %d)", ErrValidation, maxSampleNameLen, nameLen)
	}

	seen := make(map[string]struct{}, len(s.CompletedTests))
	for _, analyte := range s.CompletedTests {
		seen[analyte] = struct{}{}
	}
	for _, analyte := range s.PendingTests {
		if _, ok := seen[analyte]; ok {
			return fmt.Errorf("%w: analyte %q is both completed and pending", ErrValidation, analyte)
		}
	}

	if s.Status == StatusCompleted && len(s.PendingTests) > 0 {
		return fmt.Errorf("%w: completed sample has %d pending tests", ErrValidation, len(s.PendingTests))
	}

	return nil
}
