// Package escalation holds the change tracking and decision rules that turn
// a responsibility update into an escalation.
package escalation

import "github.com/straye-as/status-api/internal/domain"

// Field names a watched responsibility field
type Field string

const (
	FieldStatus          Field = "status"
	FieldNeedsEscalation Field = "needs_escalation"
)

// Change is the before/after pair of one watched field
type Change struct {
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// FieldChanges is the before/after record of the watched fields for a single
// update call. It is created per call and never shared between requests.
type FieldChanges struct {
	prevStatus HealthStatusPair
	prevFlag   BoolPair
}

// HealthStatusPair holds the previous and new status
type HealthStatusPair struct {
	Before domain.HealthStatus
	After  domain.HealthStatus
}

// BoolPair holds the previous and new escalation flag
type BoolPair struct {
	Before bool
	After  bool
}

// Track captures the persisted values of the watched fields and pairs them
// with the values about to be written.
func Track(persisted *domain.Responsibility, newStatus domain.HealthStatus, newFlag bool) FieldChanges {
	return FieldChanges{
		prevStatus: HealthStatusPair{Before: persisted.Status, After: newStatus},
		prevFlag:   BoolPair{Before: persisted.NeedsEscalation, After: newFlag},
	}
}

// HasChanged reports whether the field's value differs before and after
func (c FieldChanges) HasChanged(field Field) bool {
	switch field {
	case FieldStatus:
		return c.prevStatus.Before != c.prevStatus.After
	case FieldNeedsEscalation:
		return c.prevFlag.Before != c.prevFlag.After
	}
	return false
}

// Previous returns the pre-update value of the field
func (c FieldChanges) Previous(field Field) interface{} {
	switch field {
	case FieldStatus:
		return c.prevStatus.Before
	case FieldNeedsEscalation:
		return c.prevFlag.Before
	}
	return nil
}

// Status returns the status transition
func (c FieldChanges) Status() HealthStatusPair {
	return c.prevStatus
}

// NeedsEscalation returns the flag transition
func (c FieldChanges) NeedsEscalation() BoolPair {
	return c.prevFlag
}

// Any reports whether at least one watched field changed
func (c FieldChanges) Any() bool {
	return c.HasChanged(FieldStatus) || c.HasChanged(FieldNeedsEscalation)
}

// Map returns only the changed fields, keyed by field name
func (c FieldChanges) Map() map[Field]Change {
	out := make(map[Field]Change, 2)
	if c.HasChanged(FieldStatus) {
		out[FieldStatus] = Change{Before: c.prevStatus.Before, After: c.prevStatus.After}
	}
	if c.HasChanged(FieldNeedsEscalation) {
		out[FieldNeedsEscalation] = Change{Before: c.prevFlag.Before, After: c.prevFlag.After}
	}
	return out
}
