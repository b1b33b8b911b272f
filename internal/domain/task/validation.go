package task

import (
	"strings"
	"time"
)

// ParseStatus normalises a status string.
func ParseStatus(s string) (Status, error) {
	norm := strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	}), "_")
	switch Status(norm) {
	case StatusOpen:
		return StatusOpen, nil
	case StatusInProgress, "inprogress":
		return StatusInProgress, nil
	case StatusDone, "closed", "complete", "completed":
		return StatusDone, nil
	case StatusSnoozed:
		return StatusSnoozed, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusSnoozed:
		return true
	}
	return false
}

// ParseSource normalises a provenance tag. Unknown values map to other.
func ParseSource(s string) Source {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceEmail:
		return SourceEmail
	case SourceManual:
		return SourceManual
	default:
		return SourceOther
	}
}

// ValidatePriority checks the 1..10 range.
func ValidatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return ErrInvalidPriority
	}
	return nil
}

// ValidateDueDate checks a calendar date. Empty clears the date and is valid.
func ValidateDueDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDueDate
	}
	return nil
}

// ValidatePatch checks the fields a patch supplies.
func ValidatePatch(p Patch) error {
	if p.Priority != nil {
		if err := ValidatePriority(*p.Priority); err != nil {
			return err
		}
	}
	if p.DueDate != nil {
		if err := ValidateDueDate(*p.DueDate); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ValidateCreate checks a patch used to create a task.
func ValidateCreate(p Patch) error {
	if p.Description == nil || strings.TrimSpace(*p.Description) == "" {
		return ErrMissingDescription
	}
	return ValidatePatch(p)
}
