package models

import "errors"

var (
	// ErrUnparsable means no prefix of the command tail parsed as a time
	// expression.
	ErrUnparsable = errors.New("could not parse a date/time from the text")
	// ErrTooSoon means the parsed instant violates the minimum lead time.
	ErrTooSoon = errors.New("reminder time is in the past or too soon")
	// ErrNotFound means no reminder with the requested ID exists.
	ErrNotFound = errors.New("reminder not found")
)

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
