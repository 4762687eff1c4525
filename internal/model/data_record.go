package model

import "time"

// DataRecord is one ingested JSON document. DataHash carries the storage
// level uniqueness constraint that makes ingestion content-addressed: two
// inserts of the same canonical content cannot both land.
type DataRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255" json:"name,omitempty"`
	Filename  string    `gorm:"size:255" json:"filename,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	DataHash  string    `gorm:"size:64;not null;uniqueIndex" json:"data_hash"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
