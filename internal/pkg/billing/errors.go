package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature means the payload was not signed by the processor.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means required envelope or object fields are absent.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrMissingMetadata is terminal: the event will never gain the metadata it lacks.
	ErrMissingMetadata = errors.New("event metadata incomplete")
	// ErrStoreUnavailable wraps transient persistence failures; the processor should redeliver.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEventInFlight means another worker currently holds the lease for the event.
	ErrEventInFlight = errors.New("event is being processed")
	ErrNotFound      = errors.New("record not found")

	ErrSessionMismatch = errors.New("checkout session does not belong to subscriber")
	ErrSessionNotPaid  = errors.New("checkout session is not paid")
)

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, passthrough := range []error{ErrStoreUnavailable, ErrNotFound, ErrMissingMetadata, ErrMalformedEvent} {
		if errors.Is(err, passthrough) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func missingMetadata(eventType string, fields ...string) error {
	return fmt.Errorf("%w: %s lacks %v", ErrMissingMetadata, eventType, fields)
}
