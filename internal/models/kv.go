package models

import "time"

// KVEntry is one snapshot row of the SQL key/value store.
type KVEntry struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }
