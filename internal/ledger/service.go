package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/pkg/db/models"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/pagination"
)

// Service defines operations over the commission ledger.
type Service interface {
	// AppendBatch writes all entries of one transition atomically. The batch
	// must conserve grossCents exactly: the entry amounts sum to the gross
	// collected amount or nothing is written.
	AppendBatch(ctx context.Context, tx *gorm.DB, grossCents int64, entries []models.LedgerEntry) error
	EntriesFor(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AppendBatch(ctx context.Context, tx *gorm.DB, grossCents int64, entries []models.LedgerEntry) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if len(entries) == 0 {
		return fmt.Errorf("empty ledger batch")
	}

	var total int64
	for _, entry := range entries {
		if entry.GalleryID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
		}
		if entry.RecipientID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
		}
		if !entry.Kind.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger entry kind %q", entry.Kind))
		}
		if entry.AmountCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative")
		}
		if entry.PeriodLabel == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "period label is required")
		}
		total += entry.AmountCents
	}

	if total != grossCents {
		return pkgerrors.New(pkgerrors.CodeConservation,
			fmt.Sprintf("ledger batch sums to %d cents, gross collected is %d cents", total, grossCents))
	}

	return s.repo.CreateBatchWithTx(tx, entries)
}

func (s *service) EntriesFor(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error) {
	if galleryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	if periodLabel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period label is required")
	}
	return s.repo.ListByGalleryAndPeriod(ctx, galleryID, periodLabel)
}

func (s *service) ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error) {
	if galleryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	return s.repo.ListByGallery(ctx, galleryID, params)
}
