package runconfig

import "errors"

var (
	// ErrNegativeResource is returned when a resource budget is negative.
	ErrNegativeResource = errors.New("resource budgets must be non-negative")

	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	ErrInvalidPollInterval = errors.New("poll interval must be greater than 0")

	// ErrMissingDBRoot is returned when no database root is configured.
	ErrMissingDBRoot = errors.New("database root is required")
)
