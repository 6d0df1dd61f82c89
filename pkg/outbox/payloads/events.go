package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/pkg/enums"
)

// AccountStatusChangedEvent is emitted when the lifecycle engine moves a
// billing account between statuses.
type AccountStatusChangedEvent struct {
	AccountID         uuid.UUID           `json:"account_id"`
	GalleryID         uuid.UUID           `json:"gallery_id"`
	PlanID            string              `json:"plan_id"`
	PreviousStatus    enums.AccountStatus `json:"previous_status"`
	Status            enums.AccountStatus `json:"status"`
	PartnerOfRecordID *uuid.UUID          `json:"partner_of_record_id,omitempty"`
	OccurredAt        time.Time           `json:"occurred_at"`
}

// CommissionRecordedEvent reports the ledger entries written by one payment.
type CommissionRecordedEvent struct {
	GalleryID    uuid.UUID             `json:"gallery_id"`
	PlanID       string                `json:"plan_id"`
	Kind         enums.LedgerEntryKind `json:"kind"`
	GrossCents   int64                 `json:"gross_cents"`
	PartnerCents int64                 `json:"partner_cents"`
	PartnerID    *uuid.UUID            `json:"partner_id,omitempty"`
	PeriodLabel  string                `json:"period_label"`
	RecordedAt   time.Time             `json:"recorded_at"`
}

// PartnerReassignedEvent signals a new-session reset on a lapsed gallery.
type PartnerReassignedEvent struct {
	AccountID    uuid.UUID  `json:"account_id"`
	GalleryID    uuid.UUID  `json:"gallery_id"`
	NewPartnerID uuid.UUID  `json:"new_partner_id"`
	OldPartnerID *uuid.UUID `json:"old_partner_id,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}
