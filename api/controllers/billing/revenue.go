package billing

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/api/responses"
	"github.com/photovault/photovault-backend/internal/revenue"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
)

// RevenueService describes the revenue aggregation methods used by the HTTP controllers.
type RevenueService interface {
	MonthlyBreakdown(ctx context.Context, recipientID uuid.UUID, fromPeriod, toPeriod string) ([]revenue.PeriodBreakdown, error)
	ProjectNext(ctx context.Context, recipientID uuid.UUID, horizonMonths int) (*revenue.Projection, error)
}

type revenueBreakdownResponse struct {
	Periods []revenue.PeriodBreakdown `json:"periods"`
}

// RevenueBreakdown returns per-month earned totals for a recipient,
// optionally bounded by ?from and ?to period labels (YYYY-MM, inclusive).
func RevenueBreakdown(svc RevenueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		recipientID, err := recipientIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		fromPeriod, err := periodParam(r, "from")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		toPeriod, err := periodParam(r, "to")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		periods, err := svc.MonthlyBreakdown(ctx, recipientID, fromPeriod, toPeriod)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if periods == nil {
			periods = []revenue.PeriodBreakdown{}
		}

		responses.WriteSuccess(w, revenueBreakdownResponse{Periods: periods})
	}
}

// RevenueProjection estimates a recipient's recurring revenue over the next
// ?horizon_months months (default 1).
func RevenueProjection(svc RevenueService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "revenue service unavailable"))
			return
		}

		recipientID, err := recipientIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		horizon := 1
		if rawHorizon := strings.TrimSpace(r.URL.Query().Get("horizon_months")); rawHorizon != "" {
			parsed, err := strconv.Atoi(rawHorizon)
			if err != nil || parsed < 1 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "horizon_months must be a positive integer"))
				return
			}
			horizon = parsed
		}

		projection, err := svc.ProjectNext(ctx, recipientID, horizon)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, projection)
	}
}

var periodLabelPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

func periodParam(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return "", nil
	}
	if !periodLabelPattern.MatchString(raw) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" must be a YYYY-MM period label")
	}
	return raw, nil
}

func recipientIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "recipientId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	recipientID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient id")
	}
	return recipientID, nil
}
