package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/internal/lifecycle"
	"github.com/photovault/photovault-backend/internal/revenue"
	"github.com/photovault/photovault-backend/pkg/config"
	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
	"github.com/photovault/photovault-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPlanService struct {
	plans []models.Plan
}

func (s stubPlanService) FindPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	for i := range s.plans {
		if s.plans[i].ID == id {
			return &s.plans[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
}

func (s stubPlanService) ListPlans(ctx context.Context, status *enums.PlanStatus) ([]models.Plan, error) {
	return s.plans, nil
}

type stubLifecycleService struct {
	account *models.BillingAccount
}

func (s stubLifecycleService) CreateAccount(ctx context.Context, input lifecycle.CreateAccountInput) (*models.BillingAccount, error) {
	return s.account, nil
}

func (s stubLifecycleService) GetAccount(ctx context.Context, galleryID uuid.UUID) (*models.BillingAccount, error) {
	if s.account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no billing account for gallery")
	}
	return s.account, nil
}

func (s stubLifecycleService) RecordUpfrontPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error) {
	return &lifecycle.TransitionResult{Account: s.account}, nil
}

func (s stubLifecycleService) RecordRecurringPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error) {
	return &lifecycle.TransitionResult{Account: s.account}, nil
}

func (s stubLifecycleService) AdvanceClock(ctx context.Context, galleryID uuid.UUID, now time.Time) (*lifecycle.TransitionResult, error) {
	return &lifecycle.TransitionResult{Account: s.account}, nil
}

func (s stubLifecycleService) ApplySessionEvent(ctx context.Context, event lifecycle.SessionEvent) (*lifecycle.TransitionResult, error) {
	return &lifecycle.TransitionResult{Account: s.account}, nil
}

type stubLedgerService struct{}

func (stubLedgerService) AppendBatch(ctx context.Context, tx *gorm.DB, grossCents int64, entries []models.LedgerEntry) error {
	return nil
}

func (stubLedgerService) EntriesFor(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (stubLedgerService) ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error) {
	return nil, nil
}

type stubRevenueService struct{}

func (stubRevenueService) MonthlyBreakdown(ctx context.Context, recipientID uuid.UUID, fromPeriod, toPeriod string) ([]revenue.PeriodBreakdown, error) {
	return []revenue.PeriodBreakdown{}, nil
}

func (stubRevenueService) ProjectNext(ctx context.Context, recipientID uuid.UUID, horizonMonths int) (*revenue.Projection, error) {
	return &revenue.Projection{HorizonMonths: horizonMonths}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	account := &models.BillingAccount{
		ID:        uuid.New(),
		GalleryID: uuid.New(),
		ClientID:  uuid.New(),
		PlanID:    "standard_v1",
		Status:    enums.AccountStatusPending,
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // redis
		nil, // pubsub
		stubPlanService{plans: []models.Plan{{ID: "standard_v1", Name: "Standard", Status: enums.PlanStatusActive}}},
		stubLifecycleService{account: account},
		stubLedgerService{},
		stubRevenueService{},
	)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if env := resp.Header().Get("X-PhotoVault-Env"); env != "test" {
			t.Fatalf("%s: expected env header, got %q", path, env)
		}
	}
}

func TestPublicPingRoute(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPlanRoutesWired(t *testing.T) {
	router := newTestRouter(testConfig())

	list := httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, list)
	if resp.Code != http.StatusOK {
		t.Fatalf("plan list: expected 200 got %d", resp.Code)
	}

	detail := httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans/standard_v1", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, detail)
	if resp.Code != http.StatusOK {
		t.Fatalf("plan detail: expected 200 got %d", resp.Code)
	}

	missing := httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans/unknown", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("plan detail missing: expected 404 got %d", resp.Code)
	}
}

func TestGalleryRoutesWired(t *testing.T) {
	router := newTestRouter(testConfig())
	galleryID := uuid.New().String()

	account := httptest.NewRequest(http.MethodGet, "/api/v1/billing/galleries/"+galleryID+"/account", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, account)
	if resp.Code != http.StatusOK {
		t.Fatalf("account detail: expected 200 got %d", resp.Code)
	}

	ledgerReq := httptest.NewRequest(http.MethodGet, "/api/v1/billing/galleries/"+galleryID+"/ledger", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, ledgerReq)
	if resp.Code != http.StatusOK {
		t.Fatalf("ledger list: expected 200 got %d", resp.Code)
	}

	// Payments are registered as idempotent routes, so without a key the
	// middleware rejects before the controller runs.
	payment := httptest.NewRequest(http.MethodPost, "/api/v1/billing/galleries/"+galleryID+"/payments/upfront", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, payment)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("payment without idempotency key: expected 400 got %d", resp.Code)
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Message != "Idempotency-Key header required" {
		t.Fatalf("unexpected error message %q", payload.Error.Message)
	}
}

func TestRevenueRoutesWired(t *testing.T) {
	router := newTestRouter(testConfig())
	recipientID := uuid.New().String()

	breakdown := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID+"/revenue", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, breakdown)
	if resp.Code != http.StatusOK {
		t.Fatalf("revenue breakdown: expected 200 got %d", resp.Code)
	}

	projection := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID+"/revenue/projection?horizon_months=3", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, projection)
	if resp.Code != http.StatusOK {
		t.Fatalf("revenue projection: expected 200 got %d", resp.Code)
	}
}
