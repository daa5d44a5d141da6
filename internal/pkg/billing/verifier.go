package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

// SignatureHeader carries the processor signature of a webhook request.
const SignatureHeader = "Stripe-Signature"

// Verifier authenticates webhook payloads. It performs no I/O.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a verifier for secret. A tolerance <= 0 disables the
// timestamp age check.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret), tolerance: tolerance}
}

// Verify checks the signature header against payload and parses the event.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (*Event, error) {
	header := strings.TrimSpace(signatureHeader)
	if v.secret == "" || header == "" {
		return nil, ErrInvalidSignature
	}

	var err error
	if v.tolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, header, v.secret)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return ParseEvent(payload)
}

// SignPayload builds a signature header for payload, as the processor would.
func SignPayload(payload []byte, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Header
}
