package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
)

// Repository manages persistence for billing accounts.
type Repository interface {
	CreateWithTx(tx *gorm.DB, account *models.BillingAccount) error
	FindOpenByGalleryID(ctx context.Context, galleryID uuid.UUID) (*models.BillingAccount, error)
	// LockOpenByGalleryID loads the gallery's open account under FOR UPDATE so
	// concurrent transitions for the same gallery serialize on the row.
	LockOpenByGalleryID(tx *gorm.DB, galleryID uuid.UUID) (*models.BillingAccount, error)
	UpdateWithTx(tx *gorm.DB, account *models.BillingAccount) error
	// ListSweepCandidates returns open accounts whose status may be advanced by
	// a clock sweep: active or inactive accounts with a payment older than
	// staleBefore, plus fixed-term accounts whose period ended before now.
	ListSweepCandidates(ctx context.Context, staleBefore, now time.Time, limit int) ([]models.BillingAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateWithTx(tx *gorm.DB, account *models.BillingAccount) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(account).Error
}

func (r *repository) FindOpenByGalleryID(ctx context.Context, galleryID uuid.UUID) (*models.BillingAccount, error) {
	var account models.BillingAccount
	err := r.db.WithContext(ctx).
		Where("gallery_id = ? AND superseded_by IS NULL", galleryID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) LockOpenByGalleryID(tx *gorm.DB, galleryID uuid.UUID) (*models.BillingAccount, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var account models.BillingAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gallery_id = ? AND superseded_by IS NULL", galleryID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateWithTx(tx *gorm.DB, account *models.BillingAccount) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.BillingAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"status":               account.Status,
			"partner_of_record_id": account.PartnerOfRecordID,
			"last_payment_at":      account.LastPaymentAt,
			"period_start":         account.PeriodStart,
			"period_end":           account.PeriodEnd,
			"superseded_by":        account.SupersededBy,
		}).Error
}

func (r *repository) ListSweepCandidates(ctx context.Context, staleBefore, now time.Time, limit int) ([]models.BillingAccount, error) {
	if limit <= 0 {
		limit = 500
	}
	var accounts []models.BillingAccount
	err := r.db.WithContext(ctx).
		Where("superseded_by IS NULL").
		Where("status IN ?", []enums.AccountStatus{enums.AccountStatusActive, enums.AccountStatusInactive}).
		Where("(last_payment_at IS NOT NULL AND last_payment_at < ?) OR (period_end IS NOT NULL AND period_end < ?)", staleBefore, now).
		Order("last_payment_at ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
