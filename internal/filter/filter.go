// Package filter implements the predicate applied to sample collections for
// search, the dashboard category views, and bulk-action selection. A sample
// matches when it satisfies every provided axis (AND across axes); within one
// axis, any selected value matches (OR). Absent or empty axes do not
// constrain.
package filter

import (
	"time"

	"github.com/agrolab/sample-engine/internal/domain"
	"go.uber.org/zap"
)

// DateRange selects how the created-date axis constrains.
type DateRange string

const (
	DateRangeAll    DateRange = "all"
	DateRange7Days  DateRange = "7days"
	DateRange30Days DateRange = "30days"
	DateRange90Days DateRange = "90days"
	DateRangeCustom DateRange = "custom"
)

func (r DateRange) IsValid() bool {
	switch r {
	case "", DateRangeAll, DateRange7Days, DateRange30Days, DateRange90Days, DateRangeCustom:
		return true
	}
	return false
}

// Spec is a fully typed filter specification. Zero values are permissive.
// Package references must be catalog ids; the service normalizes display
// names before filtering.
type Spec struct {
	DateRange   DateRange
	CustomStart time.Time
	CustomEnd   time.Time

	SampleTypes []string
	Packages    []string
	Statuses    []domain.Status

	LabNumberFrom string
	LabNumberTo   string
}

// Preset specs backing the dashboard category views.
func PendingArrival() Spec    { return Spec{Statuses: []domain.Status{domain.StatusPending}} }
func Processing() Spec        { return Spec{Statuses: []domain.Status{domain.StatusProcessing}} }
func PartiallyComplete() Spec { return Spec{Statuses: []domain.Status{domain.StatusPartial}} }

func CompletedLast30Days() Spec {
	return Spec{Statuses: []domain.Status{domain.StatusCompleted}, DateRange: DateRange30Days}
}

// Engine applies filter specs. It holds only a logger, used to flag caller
// misuse (inverted ranges) without failing the request.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Apply returns the samples matching spec, preserving input order. The input
// slice is never mutated. Inverted date or lab-number ranges match nothing,
// logged at WARN.
func (e *Engine) Apply(now time.Time, samples []domain.Sample, spec Spec) []domain.Sample {
	matcher, ok := e.compile(now, spec)
	if !ok {
		return []domain.Sample{}
	}

	out := make([]domain.Sample, 0, len(samples))
	for _, sample := range samples {
		if matcher(sample) {
			out = append(out, sample)
		}
	}
	return out
}

func (e *Engine) compile(now time.Time, spec Spec) (func(domain.Sample) bool, bool) {
	var after, before time.Time
	var dateBounded bool

	switch spec.DateRange {
	case "", DateRangeAll:
	case DateRange7Days, DateRange30Days, DateRange90Days:
		days := map[DateRange]int{DateRange7Days: 7, DateRange30Days: 30, DateRange90Days: 90}[spec.DateRange]
		after = now.AddDate(0, 0, -days)
		before = now
		dateBounded = true
	case DateRangeCustom:
		if spec.CustomStart.After(spec.CustomEnd) {
			e.logger.Warn("custom date range start is after end, matching nothing",
				zap.Time("start", spec.CustomStart),
				zap.Time("end", spec.CustomEnd),
			)
			return nil, false
		}
		after = spec.CustomStart
		before = spec.CustomEnd
		dateBounded = true
	default:
		e.logger.Warn("unknown date range, matching nothing", zap.String("dateRange", string(spec.DateRange)))
		return nil, false
	}

	var labFrom, labTo domain.LabNumber
	labFromSet := spec.LabNumberFrom != ""
	labToSet := spec.LabNumberTo != ""
	if labFromSet {
		parsed, err := domain.ParseLabNumber(spec.LabNumberFrom)
		if err != nil {
			e.logger.Warn("unparsable lab number bound, matching nothing", zap.String("from", spec.LabNumberFrom))
			return nil, false
		}
		labFrom = parsed
	}
	if labToSet {
		parsed, err := domain.ParseLabNumber(spec.LabNumberTo)
		if err != nil {
			e.logger.Warn("unparsable lab number bound, matching nothing", zap.String("to", spec.LabNumberTo))
			return nil, false
		}
		labTo = parsed
	}
	if labFromSet && labToSet && labFrom.Compare(labTo) > 0 {
		e.logger.Warn("lab number range is inverted, matching nothing",
			zap.String("from", spec.LabNumberFrom),
			zap.String("to", spec.LabNumberTo),
		)
		return nil, false
	}

	return func(s domain.Sample) bool {
		if dateBounded {
			if s.CreatedAt.Before(after) || s.CreatedAt.After(before) {
				return false
			}
		}
		if len(spec.SampleTypes) > 0 && !containsString(spec.SampleTypes, s.SampleType) {
			return false
		}
		if len(spec.Packages) > 0 && !containsString(spec.Packages, s.PackageID) {
			return false
		}
		if len(spec.Statuses) > 0 && !containsStatus(spec.Statuses, s.Status) {
			return false
		}
		if labFromSet || labToSet {
			n, err := domain.ParseLabNumber(s.LabNumber)
			if err != nil {
				// No lab number issued yet, so the sample cannot sit inside
				// a lab-number window.
				return false
			}
			if labFromSet && n.Compare(labFrom) < 0 {
				return false
			}
			if labToSet && n.Compare(labTo) > 0 {
				return false
			}
		}
		return true
	}, true
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsStatus(values []domain.Status, v domain.Status) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
