package domain

import (
	"strings"
	"time"
)

// Reference is a listed customer domain name shown on the public page.
// ID is opaque: the backend assigns it and callers only compare it.
type Reference struct {
	ID        string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReference is the insert payload. Timestamps are supplied by the
// caller's clock, not by the backend.
type NewReference struct {
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReferencePatch is the update payload: only the value and updated_at change.
type ReferencePatch struct {
	Value     string
	UpdatedAt time.Time
}

// ReferenceColumn names a sortable reference column.
type ReferenceColumn string

const (
	ReferenceColumnID        ReferenceColumn = "id"
	ReferenceColumnValue     ReferenceColumn = "value"
	ReferenceColumnCreatedAt ReferenceColumn = "created_at"
	ReferenceColumnUpdatedAt ReferenceColumn = "updated_at"
)

func (c ReferenceColumn) String() string { return string(c) }

// IsValid returns true if the column is a known value.
func (c ReferenceColumn) IsValid() bool {
	switch c {
	case ReferenceColumnID, ReferenceColumnValue, ReferenceColumnCreatedAt, ReferenceColumnUpdatedAt:
		return true
	}
	return false
}

// NormalizeReferenceValue trims surrounding whitespace. No other
// transformation is applied.
func NormalizeReferenceValue(raw string) string {
	return strings.TrimSpace(raw)
}

// ValidateReferenceValue returns the trimmed value, or a ValidationError on
// field "value" when nothing is left after trimming.
func ValidateReferenceValue(raw string) (string, error) {
	v := NormalizeReferenceValue(raw)
	if v == "" {
		return "", NewValidationError("value", "required")
	}
	return v, nil
}

// URL returns the public link for the reference.
func (r Reference) URL() string {
	return "https://" + r.Value
}
