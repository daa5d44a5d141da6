package models

import "time"

// ProcessedEvent stores provider event ids with processing state for
// idempotent reconciliation. ProcessedAt is set once the event reached a
// terminal outcome; transient failures only record the error.
type ProcessedEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_processed_events_provider_event,unique,priority:1" json:"provider"`
	EventID         string     `gorm:"type:varchar(191);not null;index:ux_processed_events_provider_event,unique,priority:2" json:"event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	Attempts        int        `gorm:"not null;default:0" json:"attempts"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the event needs no further processing.
func (e *ProcessedEvent) IsTerminal() bool {
	return e != nil && e.ProcessedAt != nil
}
