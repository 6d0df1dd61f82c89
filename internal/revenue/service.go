package revenue

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/photovault/photovault-backend/pkg/enums"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
)

// trailingPeriods is how many of the most recent recurring periods feed the
// projection average.
const trailingPeriods = 3

// PeriodBreakdown is one month of a recipient's ledger activity.
type PeriodBreakdown struct {
	PeriodLabel    string `json:"period_label"`
	UpfrontCents   int64  `json:"upfront_cents"`
	RecurringCents int64  `json:"recurring_cents"`
	RetainedCents  int64  `json:"retained_cents"`
	TotalCents     int64  `json:"total_cents"`
}

// Projection is an estimate of upcoming recurring revenue for a recipient.
type Projection struct {
	MonthlyAverageCents int64 `json:"monthly_average_cents"`
	HorizonMonths       int   `json:"horizon_months"`
	ProjectedCents      int64 `json:"projected_cents"`
}

// Service aggregates the commission ledger into reporting views.
type Service interface {
	// MonthlyBreakdown returns per-period totals for a recipient, oldest
	// period first. Empty fromPeriod/toPeriod bounds are open-ended. An
	// empty ledger yields an empty slice, not an error.
	MonthlyBreakdown(ctx context.Context, recipientID uuid.UUID, fromPeriod, toPeriod string) ([]PeriodBreakdown, error)
	// ProjectNext estimates recurring revenue over the next horizonMonths as
	// the trailing average of the most recent recurring periods. A recipient
	// with no recurring history projects zero.
	ProjectNext(ctx context.Context, recipientID uuid.UUID, horizonMonths int) (*Projection, error)
}

type service struct {
	repo Repository
}

// NewService wires a revenue service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("revenue repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) MonthlyBreakdown(ctx context.Context, recipientID uuid.UUID, fromPeriod, toPeriod string) ([]PeriodBreakdown, error) {
	if recipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	totals, err := s.repo.TotalsByPeriod(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	byPeriod := map[string]*PeriodBreakdown{}
	for _, row := range totals {
		// Labels are zero-padded year-month strings, so range bounds
		// compare lexically.
		if fromPeriod != "" && row.PeriodLabel < fromPeriod {
			continue
		}
		if toPeriod != "" && row.PeriodLabel > toPeriod {
			continue
		}
		breakdown, ok := byPeriod[row.PeriodLabel]
		if !ok {
			breakdown = &PeriodBreakdown{PeriodLabel: row.PeriodLabel}
			byPeriod[row.PeriodLabel] = breakdown
		}
		switch row.Kind {
		case enums.LedgerEntryKindUpfrontCommission:
			breakdown.UpfrontCents += row.TotalCents
		case enums.LedgerEntryKindRecurringCommission:
			breakdown.RecurringCents += row.TotalCents
		case enums.LedgerEntryKindPlatformRetained:
			breakdown.RetainedCents += row.TotalCents
		}
		breakdown.TotalCents += row.TotalCents
	}

	out := make([]PeriodBreakdown, 0, len(byPeriod))
	for _, breakdown := range byPeriod {
		out = append(out, *breakdown)
	}
	// Period labels are zero-padded year-month strings, so lexical order is
	// chronological order.
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodLabel < out[j].PeriodLabel })
	return out, nil
}

func (s *service) ProjectNext(ctx context.Context, recipientID uuid.UUID, horizonMonths int) (*Projection, error) {
	if recipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	if horizonMonths <= 0 {
		horizonMonths = 1
	}

	totals, err := s.repo.TotalsByPeriod(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	var recurring []int64
	for _, row := range totals {
		if row.Kind == enums.LedgerEntryKindRecurringCommission {
			recurring = append(recurring, row.TotalCents)
		}
	}
	if len(recurring) == 0 {
		return &Projection{HorizonMonths: horizonMonths}, nil
	}
	if len(recurring) > trailingPeriods {
		recurring = recurring[len(recurring)-trailingPeriods:]
	}

	sum := decimal.Zero
	for _, cents := range recurring {
		sum = sum.Add(decimal.NewFromInt(cents))
	}
	average := sum.Div(decimal.NewFromInt(int64(len(recurring))))
	projected := average.Mul(decimal.NewFromInt(int64(horizonMonths)))

	return &Projection{
		MonthlyAverageCents: average.Round(0).IntPart(),
		HorizonMonths:       horizonMonths,
		ProjectedCents:      projected.Round(0).IntPart(),
	}, nil
}
