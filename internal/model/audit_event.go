package model

import "time"

// AuditEvent is a generic event row fed by the ingestion audit queue.
type AuditEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventType string    `gorm:"size:100;not null;index" json:"event_type"`
	Source    string    `gorm:"size:100;index" json:"source,omitempty"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
