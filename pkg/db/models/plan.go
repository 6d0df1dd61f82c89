package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/photovault/photovault-backend/pkg/enums"
)

// Plan is an immutable payment plan definition a gallery can subscribe to.
// Prices are integer minor units; nil means the plan has no charge of that
// kind. Split percentages are the partner's share of the gross amount.
type Plan struct {
	ID                     string           `gorm:"column:id;primaryKey"`
	Name                   string           `gorm:"column:name;not null"`
	Status                 enums.PlanStatus `gorm:"column:status;type:plan_status;not null"`
	UpfrontPriceCents      *int64           `gorm:"column:upfront_price_cents"`
	UpfrontSplitPct        int              `gorm:"column:upfront_split_pct;not null;default:0"`
	RecurringPriceCents    *int64           `gorm:"column:recurring_price_cents"`
	RecurringSplitPct      int              `gorm:"column:recurring_split_pct;not null;default:0"`
	AccessDurationMonths   *int             `gorm:"column:access_duration_months"`
	RequiresOngoingPayment bool             `gorm:"column:requires_ongoing_payment;not null;default:false"`
	Features               pq.StringArray   `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt              time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasUpfront reports whether the plan charges an upfront price.
func (p *Plan) HasUpfront() bool {
	return p != nil && p.UpfrontPriceCents != nil
}

// HasRecurring reports whether the plan charges a recurring price.
func (p *Plan) HasRecurring() bool {
	return p != nil && p.RecurringPriceCents != nil
}

// IsFixedTerm reports whether access expires after a set number of months.
func (p *Plan) IsFixedTerm() bool {
	return p != nil && p.AccessDurationMonths != nil
}
