package domain

import "errors"

// ErrInvalidInput is returned when a request or series fails validation.
// Validation happens before any data fetch or statistical computation.
var ErrInvalidInput = errors.New("invalid input")

// ErrNumerical is returned when estimation or factorization cannot
// produce usable parameters from otherwise valid data.
var ErrNumerical = errors.New("numerical failure")
