package revenue

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/pkg/enums"
)

// PeriodTotal is one aggregated ledger row for a recipient: the summed amount
// of one entry kind in one billing period.
type PeriodTotal struct {
	PeriodLabel string               `gorm:"column:period_label"`
	Kind        enums.LedgerEntryKind `gorm:"column:kind"`
	TotalCents  int64                `gorm:"column:total_cents"`
}

// Repository reads aggregated views over the commission ledger.
type Repository interface {
	// TotalsByPeriod returns per-period, per-kind sums for a recipient,
	// ordered by period ascending.
	TotalsByPeriod(ctx context.Context, recipientID uuid.UUID) ([]PeriodTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a revenue repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) TotalsByPeriod(ctx context.Context, recipientID uuid.UUID) ([]PeriodTotal, error) {
	var totals []PeriodTotal
	err := r.db.WithContext(ctx).
		Table("ledger_entries").
		Select("period_label, kind, SUM(amount_cents) AS total_cents").
		Where("recipient_id = ?", recipientID).
		Group("period_label").
		Group("kind").
		Order("period_label ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
