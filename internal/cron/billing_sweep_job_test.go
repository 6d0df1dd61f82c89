package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/internal/lifecycle"
	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/logger"
)

type fakeSweepReader struct {
	candidates  []models.BillingAccount
	err         error
	staleBefore time.Time
	now         time.Time
	limit       int
}

func (f *fakeSweepReader) ListSweepCandidates(ctx context.Context, staleBefore, now time.Time, limit int) ([]models.BillingAccount, error) {
	f.staleBefore = staleBefore
	f.now = now
	f.limit = limit
	return f.candidates, f.err
}

type fakeClockAdvancer struct {
	advanced []uuid.UUID
	failOn   uuid.UUID
}

func (f *fakeClockAdvancer) AdvanceClock(ctx context.Context, galleryID uuid.UUID, now time.Time) (*lifecycle.TransitionResult, error) {
	if galleryID == f.failOn {
		return nil, errors.New("boom")
	}
	f.advanced = append(f.advanced, galleryID)
	return &lifecycle.TransitionResult{}, nil
}

func newSweepJob(t *testing.T, reader *fakeSweepReader, engine *fakeClockAdvancer) *billingSweepJob {
	t.Helper()
	jobIface, err := NewBillingSweepJob(BillingSweepJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Accounts: reader,
		Engine:   engine,
	})
	if err != nil {
		t.Fatalf("NewBillingSweepJob: %v", err)
	}
	job, ok := jobIface.(*billingSweepJob)
	if !ok {
		t.Fatalf("expected billingSweepJob, got %T", jobIface)
	}
	return job
}

func TestBillingSweepJobAdvancesCandidates(t *testing.T) {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	reader := &fakeSweepReader{candidates: []models.BillingAccount{
		{ID: uuid.New(), GalleryID: uuid.New()},
		{ID: uuid.New(), GalleryID: uuid.New()},
	}}
	engine := &fakeClockAdvancer{}
	job := newSweepJob(t, reader, engine)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(engine.advanced) != 2 {
		t.Fatalf("expected 2 accounts advanced, got %d", len(engine.advanced))
	}
	if !reader.staleBefore.Equal(now.AddDate(0, -1, 0)) {
		t.Fatalf("stale cutoff = %s, want one month before now", reader.staleBefore)
	}
	if reader.limit != defaultSweepBatchLimit {
		t.Fatalf("limit = %d, want default %d", reader.limit, defaultSweepBatchLimit)
	}
}

func TestBillingSweepJobContinuesPastFailures(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	reader := &fakeSweepReader{candidates: []models.BillingAccount{
		{ID: uuid.New(), GalleryID: bad},
		{ID: uuid.New(), GalleryID: good},
	}}
	engine := &fakeClockAdvancer{failOn: bad}
	job := newSweepJob(t, reader, engine)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(engine.advanced) != 1 || engine.advanced[0] != good {
		t.Fatalf("expected the healthy account to still advance, got %v", engine.advanced)
	}
}

func TestBillingSweepJobReaderError(t *testing.T) {
	reader := &fakeSweepReader{err: errors.New("db down")}
	job := newSweepJob(t, reader, &fakeClockAdvancer{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when the candidate query fails")
	}
}
