package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrModelNotFound is returned when no baseline exists for an entity/source.
	ErrModelNotFound = errors.New("domain: baseline model not found")
	// ErrInvalidModel is returned when a model breaks its structural invariants.
	ErrInvalidModel = errors.New("domain: invalid baseline model")
	// ErrInvalidPeriod is returned for empty or inverted periods.
	ErrInvalidPeriod = errors.New("domain: invalid period")
	// ErrNoCoverage is returned when an evaluation period has no observed hours.
	ErrNoCoverage = errors.New("domain: period has no coverage")
	// ErrNonPositivePrediction is returned when a model predicts <= 0 consumption.
	ErrNonPositivePrediction = errors.New("domain: non-positive prediction")
	// ErrInvalidTransition guards the forward-only plan status machine.
	ErrInvalidTransition = errors.New("domain: invalid plan status transition")
)

// InsufficientDataError is returned when a training window holds fewer usable
// samples than the configured floor.
type InsufficientDataError struct {
	Samples int
	Floor   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d samples, need at least %d", e.Samples, e.Floor)
}

// DegenerateFeatureError names a driver that cannot be regressed on.
type DegenerateFeatureError struct {
	Driver string
	Reason string
}

func (e *DegenerateFeatureError) Error() string {
	return fmt.Sprintf("degenerate driver %q: %s", e.Driver, e.Reason)
}

// DriverMismatchError is returned when evaluation data lacks a model driver.
type DriverMismatchError struct {
	Driver string
}

func (e *DriverMismatchError) Error() string {
	return fmt.Sprintf("driver mismatch: evaluation data has no %q", e.Driver)
}

// OutOfOrderDataError reports the first reading earlier than its predecessor.
type OutOfOrderDataError struct {
	Index    int
	Previous time.Time
	Current  time.Time
}

func (e *OutOfOrderDataError) Error() string {
	return fmt.Sprintf("out of order reading at index %d: %s before %s",
		e.Index, e.Current.Format(time.RFC3339), e.Previous.Format(time.RFC3339))
}

type UnknownIssueTypeError struct {
	IssueType string
}

func (e *UnknownIssueTypeError) Error() string {
	return fmt.Sprintf("unknown issue type %q", e.IssueType)
}

// IsClientError reports whether err is caused by caller input rather than a
// backend failure.
func IsClientError(err error) bool {
	var (
		insufficient *InsufficientDataError
		degenerate   *DegenerateFeatureError
		mismatch     *DriverMismatchError
		outOfOrder   *OutOfOrderDataError
		unknown      *UnknownIssueTypeError
	)
	switch {
	case errors.As(err, &insufficient), errors.As(err, &degenerate), errors.As(err, &mismatch),
		errors.As(err, &outOfOrder), errors.As(err, &unknown):
		return true
	case errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrNoCoverage),
		errors.Is(err, ErrNonPositivePrediction), errors.Is(err, ErrInvalidTransition):
		return true
	}
	return false
}
