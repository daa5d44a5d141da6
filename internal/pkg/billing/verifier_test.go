package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePayload = []byte(`{"id":"evt_1","object":"event","type":"invoice.paid","created":1773489600,"data":{"object":{"id":"in_1","object":"invoice"}}}`)

func TestVerifierAcceptsValidSignature(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	header := SignPayload(samplePayload, testSecret, time.Now())

	ev, err := v.Verify(samplePayload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventInvoicePaid, ev.Type)
	assert.Equal(t, samplePayload, ev.Raw)
}

func TestVerifierRejectsBadSignatures(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		v       *Verifier
		payload []byte
		header  string
	}{
		{"tampered payload", NewVerifier(testSecret, 0), []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"amount_paid":1}}}`), SignPayload(samplePayload, testSecret, now)},
		{"wrong secret", NewVerifier(testSecret, 0), samplePayload, SignPayload(samplePayload, "whsec_other", now)},
		{"missing header", NewVerifier(testSecret, 0), samplePayload, ""},
		{"garbage header", NewVerifier(testSecret, 0), samplePayload, "t=abc,v1=zz"},
		{"expired timestamp", NewVerifier(testSecret, time.Minute), samplePayload, SignPayload(samplePayload, testSecret, now.Add(-time.Hour))},
		{"empty secret", NewVerifier("", 0), samplePayload, SignPayload(samplePayload, "", now)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := tt.v.Verify(tt.payload, tt.header)
			assert.Nil(t, ev)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("expected ErrInvalidSignature, got %v", err)
			}
		})
	}
}

func TestVerifierWithoutToleranceAcceptsOldTimestamp(t *testing.T) {
	v := NewVerifier(testSecret, 0)
	header := SignPayload(samplePayload, testSecret, time.Now().Add(-48*time.Hour))
	_, err := v.Verify(samplePayload, header)
	assert.NoError(t, err)
}

func TestVerifierRejectsMalformedEnvelope(t *testing.T) {
	v := NewVerifier(testSecret, 0)
	payloads := [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"invoice.paid","data":{"object":{}}}`),
		[]byte(`{"id":"evt_1","data":{"object":{}}}`),
		[]byte(`{"id":"evt_1","type":"invoice.paid"}`),
		[]byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":null}}`),
	}
	for _, p := range payloads {
		_, err := v.Verify(p, SignPayload(p, testSecret, time.Now()))
		assert.ErrorIs(t, err, ErrMalformedEvent, string(p))
	}
}

func TestTamperedSignatureCausesNoWrites(t *testing.T) {
	f := newFixture(t)
	wp := NewWebhookProcessor(NewVerifier(testSecret, 0), f.rec)

	header := SignPayload(samplePayload, testSecret, time.Now())
	tampered := []byte(`{"id":"evt_1","object":"event","type":"invoice.paid","created":1773489600,"data":{"object":{"id":"in_1","object":"invoice","amount_paid":999999}}}`)

	_, outcome, err := wp.Handle(context.Background(), tampered, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Equal(t, 0, f.repo.Writes())
}
