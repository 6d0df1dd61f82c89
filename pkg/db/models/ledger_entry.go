package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/pkg/enums"
)

// LedgerEntry records an immutable earned amount for one recipient in one
// billing period. Entries are append-only; corrections are offsetting
// entries, never mutations.
type LedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GalleryID   uuid.UUID             `gorm:"column:gallery_id;type:uuid;not null;index"`
	RecipientID uuid.UUID             `gorm:"column:recipient_id;type:uuid;not null;index"`
	Kind        enums.LedgerEntryKind `gorm:"column:kind;type:ledger_entry_kind_enum;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	PeriodLabel string                `gorm:"column:period_label;not null;index"`
	RecordedAt  time.Time             `gorm:"column:recorded_at;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
