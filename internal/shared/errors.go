package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCharged indicates a monthly charge already exists for the
	// building and period. Callers count it as a skip, not a failure.
	ErrAlreadyCharged = errors.New("monthly charge already created for period")
	// ErrBillingLocked indicates another billing run holds the building lock.
	ErrBillingLocked = errors.New("billing run already in progress")
)

// ConfigurationError marks a building setup problem that makes a calculation
// impossible. It is fatal for the current call and never retried.
type ConfigurationError struct {
	BuildingID int64
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("building %d misconfigured: %s", e.BuildingID, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for a building.
func NewConfigurationError(buildingID int64, reason string) *ConfigurationError {
	return &ConfigurationError{BuildingID: buildingID, Reason: reason}
}

// IntegrityWarning reports a data inconsistency that is logged and surfaced by
// the reconcile tooling but does not block normal operation.
type IntegrityWarning struct {
	BuildingID int64
	Subject    string
	Detail     string
}

func (w IntegrityWarning) String() string {
	return fmt.Sprintf("building %d: %s: %s", w.BuildingID, w.Subject, w.Detail)
}
