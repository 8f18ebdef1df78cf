package model

import (
	"errors"
	"strings"
)

// ErrMalformedEvent is matched (via errors.Is) by every event validation failure.
var ErrMalformedEvent = errors.New("malformed event")

// ValidationError names the event field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "malformed event: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrMalformedEvent }

// ValidateEvent rejects events the log cannot render: a URL is required and
// must fit on one line.
func ValidateEvent(ev ClassificationEvent) error {
	switch {
	case strings.TrimSpace(ev.URL) == "":
		return &ValidationError{Field: "url", Reason: "is required"}
	case strings.ContainsAny(ev.URL, "\r\n"):
		return &ValidationError{Field: "url", Reason: "must be a single line"}
	}
	return nil
}
