package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/pkg/enums"
)

// BillingAccount tracks plan, payment status and commission ownership for a
// single gallery lifecycle. Status and PartnerOfRecordID are mutated only by
// the lifecycle engine; a nil partner means the platform retains 100%.
type BillingAccount struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GalleryID         uuid.UUID           `gorm:"column:gallery_id;type:uuid;not null;index"`
	ClientID          uuid.UUID           `gorm:"column:client_id;type:uuid;not null"`
	PlanID            string              `gorm:"column:plan_id;not null"`
	PartnerOfRecordID *uuid.UUID          `gorm:"column:partner_of_record_id;type:uuid"`
	Status            enums.AccountStatus `gorm:"column:status;type:account_status;not null;default:'pending'"`
	LastPaymentAt     *time.Time          `gorm:"column:last_payment_at"`
	PeriodStart       *time.Time          `gorm:"column:period_start"`
	PeriodEnd         *time.Time          `gorm:"column:period_end"`
	SupersededBy      *uuid.UUID          `gorm:"column:superseded_by;type:uuid"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOpen reports whether this account is the gallery's current lifecycle.
func (a *BillingAccount) IsOpen() bool {
	return a != nil && a.SupersededBy == nil
}
