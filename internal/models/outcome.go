package models

import "time"

// DeliveryStatus is the closed set of terminal classifications for a single
// delivery attempt. The scheduler switches over this set; there is no
// persisted in-flight state.
type DeliveryStatus int

const (
	// DeliveryOK means the notification was accepted by the destination.
	DeliveryOK DeliveryStatus = iota
	// DeliveryPermanentFailure means retrying can never succeed
	// (destination gone, sender blocked, payload rejected).
	DeliveryPermanentFailure
	// DeliveryTransientFailure means the attempt should be repeated on a
	// later tick (rate limit, temporary network fault).
	DeliveryTransientFailure
)

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryOK:
		return "ok"
	case DeliveryPermanentFailure:
		return "permanent_failure"
	case DeliveryTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// DeliveryResult is the tagged outcome returned by a Notifier. RetryAfter is
// only meaningful for transient failures and applies to the shared send
// budget, not just the reminder that triggered it.
type DeliveryResult struct {
	Status     DeliveryStatus
	RetryAfter time.Duration
	Reason     string
}

// Delivered returns a success result.
func Delivered() DeliveryResult {
	return DeliveryResult{Status: DeliveryOK}
}

// PermanentFailure returns a terminal failure result.
func PermanentFailure(reason string) DeliveryResult {
	return DeliveryResult{Status: DeliveryPermanentFailure, Reason: reason}
}

// TransientFailure returns a retryable failure result with an optional
// backoff demanded by the destination.
func TransientFailure(reason string, retryAfter time.Duration) DeliveryResult {
	return DeliveryResult{Status: DeliveryTransientFailure, Reason: reason, RetryAfter: retryAfter}
}
