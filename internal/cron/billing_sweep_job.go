package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/internal/lifecycle"
	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/logger"
)

const defaultSweepBatchLimit = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BillingSweepJobParams configure the lifecycle clock sweep.
type BillingSweepJobParams struct {
	Logger     *logger.Logger
	Accounts   sweepCandidateReader
	Engine     clockAdvancer
	BatchLimit int
}

type sweepCandidateReader interface {
	ListSweepCandidates(ctx context.Context, staleBefore, now time.Time, limit int) ([]models.BillingAccount, error)
}

type clockAdvancer interface {
	AdvanceClock(ctx context.Context, galleryID uuid.UUID, now time.Time) (*lifecycle.TransitionResult, error)
}

// NewBillingSweepJob builds the cron job that advances stale billing
// accounts through their time-based transitions.
func NewBillingSweepJob(params BillingSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts reader required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("lifecycle engine required")
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultSweepBatchLimit
	}
	return &billingSweepJob{
		logg:     params.Logger,
		accounts: params.Accounts,
		engine:   params.Engine,
		limit:    limit,
		now:      time.Now,
	}, nil
}

type billingSweepJob struct {
	logg     *logger.Logger
	accounts sweepCandidateReader
	engine   clockAdvancer
	limit    int
	now      func() time.Time
}

func (j *billingSweepJob) Name() string { return "billing-sweep" }

func (j *billingSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	staleBefore := now.AddDate(0, -1, 0)

	candidates, err := j.accounts.ListSweepCandidates(ctx, staleBefore, now, j.limit)
	if err != nil {
		return fmt.Errorf("query sweep candidates: %w", err)
	}

	var errs []error
	advanced := 0
	for _, account := range candidates {
		if _, err := j.engine.AdvanceClock(ctx, account.GalleryID, now); err != nil {
			// One stuck account must not stall the rest of the sweep.
			logCtx := j.logg.WithGalleryID(ctx, account.GalleryID.String())
			j.logg.Error(logCtx, "clock sweep failed for account", err)
			errs = append(errs, fmt.Errorf("gallery %s: %w", account.GalleryID, err))
			continue
		}
		advanced++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"advanced":   advanced,
		"failed":     len(errs),
	})
	j.logg.Info(logCtx, "billing sweep complete")
	return multierr.Combine(errs...)
}
