package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/pagination"
)

// Repository manages persistence for ledger entries. The ledger is
// append-only: there is no update or delete.
type Repository interface {
	CreateBatchWithTx(tx *gorm.DB, entries []models.LedgerEntry) error
	ListByGalleryAndPeriod(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBatchWithTx(tx *gorm.DB, entries []models.LedgerEntry) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if len(entries) == 0 {
		return nil
	}
	return tx.Create(&entries).Error
}

func (r *repository) ListByGalleryAndPeriod(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("gallery_id = ? AND period_label = ?", galleryID, periodLabel).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).
		Where("gallery_id = ?", galleryID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
