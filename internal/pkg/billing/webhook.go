package billing

import "context"

// WebhookProcessor verifies inbound webhook payloads and hands them to the
// reconciler. Nothing touches the store unless verification succeeds.
type WebhookProcessor struct {
	verifier   *Verifier
	reconciler *Reconciler
}

func NewWebhookProcessor(v *Verifier, r *Reconciler) *WebhookProcessor {
	return &WebhookProcessor{verifier: v, reconciler: r}
}

func (p *WebhookProcessor) Handle(ctx context.Context, payload []byte, signatureHeader string) (*Event, Outcome, error) {
	ev, err := p.verifier.Verify(payload, signatureHeader)
	if err != nil {
		return nil, OutcomeRejected, err
	}
	outcome, err := p.reconciler.ProcessEvent(ctx, ev)
	return ev, outcome, err
}
