package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/photovault/photovault-backend/api/responses"
	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
)

// PlanCatalogService describes the plan catalog methods used by the HTTP controllers.
type PlanCatalogService interface {
	FindPlanByID(ctx context.Context, id string) (*models.Plan, error)
	ListPlans(ctx context.Context, status *enums.PlanStatus) ([]models.Plan, error)
}

type planResponse struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Status                 string   `json:"status"`
	UpfrontPriceCents      *int64   `json:"upfront_price_cents,omitempty"`
	UpfrontSplitPct        int      `json:"upfront_split_pct"`
	RecurringPriceCents    *int64   `json:"recurring_price_cents,omitempty"`
	RecurringSplitPct      int      `json:"recurring_split_pct"`
	AccessDurationMonths   *int     `json:"access_duration_months,omitempty"`
	RequiresOngoingPayment bool     `json:"requires_ongoing_payment"`
	Features               []string `json:"features"`
	CreatedAt              string   `json:"created_at"`
	UpdatedAt              string   `json:"updated_at"`
}

type planListResponse struct {
	Plans []planResponse `json:"plans"`
}

// PlansList returns catalog plans. Without a status filter only active plans
// are listed; deprecated and hidden plans must be requested explicitly.
func PlansList(svc PlanCatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog service unavailable"))
			return
		}

		status := enums.PlanStatusActive
		if statusParam := strings.TrimSpace(r.URL.Query().Get("status")); statusParam != "" {
			parsed, err := enums.ParsePlanStatus(statusParam)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = parsed
		}

		plans, err := svc.ListPlans(ctx, &status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		response := planListResponse{Plans: make([]planResponse, 0, len(plans))}
		for i := range plans {
			response.Plans = append(response.Plans, planToResponse(&plans[i]))
		}
		responses.WriteSuccess(w, response)
	}
}

// PlanDetail returns a single plan. Hidden plans are not exposed.
func PlanDetail(svc PlanCatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog service unavailable"))
			return
		}

		planID := strings.TrimSpace(chi.URLParam(r, "planId"))
		if planID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required"))
			return
		}

		plan, err := svc.FindPlanByID(ctx, planID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if plan.Status == enums.PlanStatusHidden {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found"))
			return
		}

		responses.WriteSuccess(w, planToResponse(plan))
	}
}

func planToResponse(plan *models.Plan) planResponse {
	features := []string(plan.Features)
	if features == nil {
		features = []string{}
	}
	return planResponse{
		ID:                     plan.ID,
		Name:                   plan.Name,
		Status:                 plan.Status.String(),
		UpfrontPriceCents:      plan.UpfrontPriceCents,
		UpfrontSplitPct:        plan.UpfrontSplitPct,
		RecurringPriceCents:    plan.RecurringPriceCents,
		RecurringSplitPct:      plan.RecurringSplitPct,
		AccessDurationMonths:   plan.AccessDurationMonths,
		RequiresOngoingPayment: plan.RequiresOngoingPayment,
		Features:               features,
		CreatedAt:              plan.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:              plan.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
