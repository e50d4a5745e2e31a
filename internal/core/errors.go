package core

import "errors"

var (
	// ErrMalformedOutput is returned when model output holds no recoverable classification
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrInvalidDate is returned when a day is not a YYYY-MM-DD calendar date
	ErrInvalidDate = errors.New("invalid date")
	// ErrToolValidation is returned when structured tool input is missing or malformed
	ErrToolValidation = errors.New("invalid tool input")
	// ErrTransport is returned when the mail or calendar collaborator fails
	ErrTransport = errors.New("transport failure")
	// ErrCompletion is returned when the text-generation collaborator fails
	ErrCompletion = errors.New("completion failed")
	// ErrNoCredential is returned when no usable calendar credential is available
	ErrNoCredential = errors.New("no calendar credential available")
	// ErrNotFound is returned when a stored classification does not exist or has expired
	ErrNotFound = errors.New("classification not found")
)
