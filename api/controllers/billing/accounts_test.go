package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/internal/lifecycle"
	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
)

type stubLifecycle struct {
	account       *models.BillingAccount
	result        *lifecycle.TransitionResult
	err           error
	createInput   *lifecycle.CreateAccountInput
	paidAt        time.Time
	paidAmount    int64
	sessionEvent  *lifecycle.SessionEvent
	advancedAt    time.Time
	advancedCalls int
}

func (s *stubLifecycle) CreateAccount(ctx context.Context, input lifecycle.CreateAccountInput) (*models.BillingAccount, error) {
	s.createInput = &input
	return s.account, s.err
}

func (s *stubLifecycle) GetAccount(ctx context.Context, galleryID uuid.UUID) (*models.BillingAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.account, nil
}

func (s *stubLifecycle) RecordUpfrontPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error) {
	s.paidAmount = amountCents
	s.paidAt = paidAt
	return s.result, s.err
}

func (s *stubLifecycle) RecordRecurringPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error) {
	s.paidAmount = amountCents
	s.paidAt = paidAt
	return s.result, s.err
}

func (s *stubLifecycle) AdvanceClock(ctx context.Context, galleryID uuid.UUID, now time.Time) (*lifecycle.TransitionResult, error) {
	s.advancedCalls++
	s.advancedAt = now
	return s.result, s.err
}

func (s *stubLifecycle) ApplySessionEvent(ctx context.Context, event lifecycle.SessionEvent) (*lifecycle.TransitionResult, error) {
	s.sessionEvent = &event
	return s.result, s.err
}

func testAccount() *models.BillingAccount {
	return &models.BillingAccount{
		ID:        uuid.New(),
		GalleryID: uuid.New(),
		ClientID:  uuid.New(),
		PlanID:    "standard_v1",
		Status:    enums.AccountStatusPending,
	}
}

func TestAccountCreateReturnsCreated(t *testing.T) {
	account := testAccount()
	svc := &stubLifecycle{account: account}

	body := `{"gallery_id":"` + account.GalleryID.String() + `","client_id":"` + account.ClientID.String() + `","plan_id":"standard_v1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/accounts", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AccountCreate(svc, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.createInput == nil || svc.createInput.PlanID != "standard_v1" {
		t.Fatalf("expected create input with plan, got %+v", svc.createInput)
	}
	if svc.createInput.PartnerOfRecordID != nil {
		t.Fatal("expected no partner of record")
	}

	var envelope struct {
		Data accountResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != "pending" {
		t.Fatalf("expected pending status, got %q", envelope.Data.Status)
	}
}

func TestAccountCreateRejectsMalformedGalleryID(t *testing.T) {
	body := `{"gallery_id":"not-a-uuid","client_id":"` + uuid.New().String() + `","plan_id":"standard_v1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/accounts", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AccountCreate(&stubLifecycle{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed gallery id, got %d", resp.Code)
	}
}

func TestAccountCreateSurfacesStateConflict(t *testing.T) {
	svc := &stubLifecycle{err: pkgerrors.New(pkgerrors.CodeStateConflict, "gallery already has an open billing account")}

	body := `{"gallery_id":"` + uuid.New().String() + `","client_id":"` + uuid.New().String() + `","plan_id":"standard_v1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/accounts", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AccountCreate(svc, nil)(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestAccountDetailReturnsOpenAccount(t *testing.T) {
	account := testAccount()
	svc := &stubLifecycle{account: account}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/galleries/"+account.GalleryID.String()+"/account", nil)
	req = withURLParam(req, "galleryId", account.GalleryID.String())
	resp := httptest.NewRecorder()
	AccountDetail(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAccountDetailRejectsMalformedGalleryID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/galleries/nope/account", nil)
	req = withURLParam(req, "galleryId", "nope")
	resp := httptest.NewRecorder()
	AccountDetail(&stubLifecycle{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
