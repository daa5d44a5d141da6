package models

// All returns every model managed by the reconciliation service, in
// migration order.
func All() []interface{} {
	return []interface{}{
		&Entitlement{},
		&Transaction{},
		&CreatorSummary{},
		&ReferralEdge{},
		&ProcessedEvent{},
		&Notification{},
	}
}
