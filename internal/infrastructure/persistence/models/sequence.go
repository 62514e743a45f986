package models

import (
	"time"

	"github.com/google/uuid"
)

// SequenceCounterModel is the persistence model for a document number
// counter. One row per (tenant, prefix, period); the value is bumped with an
// atomic upsert.
type SequenceCounterModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sequence_counter_scope,priority:1"`
	Prefix    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_sequence_counter_scope,priority:2"`
	Period    string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_sequence_counter_scope,priority:3"`
	Value     int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceCounterModel) TableName() string {
	return "sequence_counters"
}
