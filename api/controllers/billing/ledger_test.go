package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
	"github.com/photovault/photovault-backend/pkg/pagination"
)

type stubLedger struct {
	entries      []models.LedgerEntry
	listedParams pagination.Params
	listedPeriod string
}

func (s *stubLedger) EntriesFor(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error) {
	s.listedPeriod = periodLabel
	return s.entries, nil
}

func (s *stubLedger) ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error) {
	s.listedParams = params
	return s.entries, nil
}

func ledgerEntries(galleryID uuid.UUID, n int) []models.LedgerEntry {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]models.LedgerEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, models.LedgerEntry{
			ID:          uuid.New(),
			GalleryID:   galleryID,
			RecipientID: uuid.New(),
			Kind:        enums.LedgerEntryKindRecurringCommission,
			AmountCents: int64(100 + i),
			PeriodLabel: "2026-08",
			RecordedAt:  base,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		})
	}
	return entries
}

func TestLedgerListByPeriod(t *testing.T) {
	galleryID := uuid.New()
	svc := &stubLedger{entries: ledgerEntries(galleryID, 2)}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/galleries/"+galleryID.String()+"/ledger?period=2026-08", nil)
	req = withURLParam(req, "galleryId", galleryID.String())
	resp := httptest.NewRecorder()
	LedgerList(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.listedPeriod != "2026-08" {
		t.Fatalf("expected period filter, got %q", svc.listedPeriod)
	}

	var envelope struct {
		Data ledgerListResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(envelope.Data.Entries))
	}
	if envelope.Data.NextCursor != "" {
		t.Fatalf("expected no cursor on period listing, got %q", envelope.Data.NextCursor)
	}
}

func TestLedgerListPaginatesWithCursor(t *testing.T) {
	galleryID := uuid.New()
	// One more row than the limit signals another page.
	svc := &stubLedger{entries: ledgerEntries(galleryID, 3)}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/galleries/"+galleryID.String()+"/ledger?limit=2", nil)
	req = withURLParam(req, "galleryId", galleryID.String())
	resp := httptest.NewRecorder()
	LedgerList(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.listedParams.Limit != 2 {
		t.Fatalf("expected limit 2 passed through, got %d", svc.listedParams.Limit)
	}

	var envelope struct {
		Data ledgerListResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Entries) != 2 {
		t.Fatalf("expected trimmed page of 2, got %d", len(envelope.Data.Entries))
	}
	if envelope.Data.NextCursor == "" {
		t.Fatal("expected next cursor for further pages")
	}
	cursor, err := pagination.ParseCursor(envelope.Data.NextCursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if cursor.ID.String() != envelope.Data.Entries[1].ID {
		t.Fatalf("expected cursor pinned to last returned entry")
	}
}

func TestLedgerListRejectsBadLimit(t *testing.T) {
	galleryID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/galleries/"+galleryID.String()+"/ledger?limit=abc", nil)
	req = withURLParam(req, "galleryId", galleryID.String())
	resp := httptest.NewRecorder()
	LedgerList(&stubLedger{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}
}
