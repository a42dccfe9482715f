package calendar

import "errors"

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrRangeRequired is returned when a bulk operation gets neither
	// (or both) of startDate/endDate and year/month.
	ErrRangeRequired = errors.New("provide startDate/endDate or year/month")
	// ErrNotFound is returned when a referenced house does not exist.
	ErrNotFound = errors.New("not found")
)
