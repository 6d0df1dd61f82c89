package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/internal/revenue"
)

type stubRevenue struct {
	periods    []revenue.PeriodBreakdown
	projection *revenue.Projection
	horizon    int
	from, to   string
}

func (s *stubRevenue) MonthlyBreakdown(ctx context.Context, recipientID uuid.UUID, fromPeriod, toPeriod string) ([]revenue.PeriodBreakdown, error) {
	s.from, s.to = fromPeriod, toPeriod
	return s.periods, nil
}

func (s *stubRevenue) ProjectNext(ctx context.Context, recipientID uuid.UUID, horizonMonths int) (*revenue.Projection, error) {
	s.horizon = horizonMonths
	return s.projection, nil
}

func TestRevenueBreakdownReturnsPeriods(t *testing.T) {
	svc := &stubRevenue{
		periods: []revenue.PeriodBreakdown{
			{PeriodLabel: "2026-07", RecurringCents: 1500, TotalCents: 1500},
			{PeriodLabel: "2026-08", UpfrontCents: 5000, RecurringCents: 1500, TotalCents: 6500},
		},
	}

	recipientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID.String()+"/revenue", nil)
	req = withURLParam(req, "recipientId", recipientID.String())
	resp := httptest.NewRecorder()
	RevenueBreakdown(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var envelope struct {
		Data revenueBreakdownResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(envelope.Data.Periods))
	}
	if envelope.Data.Periods[1].TotalCents != 6500 {
		t.Fatalf("expected total 6500, got %d", envelope.Data.Periods[1].TotalCents)
	}
}

func TestRevenueBreakdownEmptyLedgerYieldsEmptyArray(t *testing.T) {
	recipientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID.String()+"/revenue", nil)
	req = withURLParam(req, "recipientId", recipientID.String())
	resp := httptest.NewRecorder()
	RevenueBreakdown(&stubRevenue{}, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !json.Valid(resp.Body.Bytes()) {
		t.Fatal("expected valid JSON body")
	}
	var envelope struct {
		Data struct {
			Periods []revenue.PeriodBreakdown `json:"periods"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Periods == nil || len(envelope.Data.Periods) != 0 {
		t.Fatalf("expected empty periods array, got %v", envelope.Data.Periods)
	}
}

func TestRevenueBreakdownParsesPeriodRange(t *testing.T) {
	svc := &stubRevenue{}

	recipientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID.String()+"/revenue?from=2026-01&to=2026-06", nil)
	req = withURLParam(req, "recipientId", recipientID.String())
	resp := httptest.NewRecorder()
	RevenueBreakdown(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.from != "2026-01" || svc.to != "2026-06" {
		t.Fatalf("expected range to pass through, got from=%q to=%q", svc.from, svc.to)
	}
}

func TestRevenueBreakdownRejectsMalformedPeriod(t *testing.T) {
	recipientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID.String()+"/revenue?from=January", nil)
	req = withURLParam(req, "recipientId", recipientID.String())
	resp := httptest.NewRecorder()
	RevenueBreakdown(&stubRevenue{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestRevenueProjectionParsesHorizon(t *testing.T) {
	svc := &stubRevenue{
		projection: &revenue.Projection{MonthlyAverageCents: 600, HorizonMonths: 6, ProjectedCents: 3600},
	}

	recipientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID.String()+"/revenue/projection?horizon_months=6", nil)
	req = withURLParam(req, "recipientId", recipientID.String())
	resp := httptest.NewRecorder()
	RevenueProjection(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if svc.horizon != 6 {
		t.Fatalf("expected horizon 6, got %d", svc.horizon)
	}
}

func TestRevenueProjectionRejectsNonPositiveHorizon(t *testing.T) {
	recipientID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/"+recipientID.String()+"/revenue/projection?horizon_months=0", nil)
	req = withURLParam(req, "recipientId", recipientID.String())
	resp := httptest.NewRecorder()
	RevenueProjection(&stubRevenue{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestRevenueProjectionRejectsMalformedRecipient(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/recipients/nope/revenue/projection", nil)
	req = withURLParam(req, "recipientId", "nope")
	resp := httptest.NewRecorder()
	RevenueProjection(&stubRevenue{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
