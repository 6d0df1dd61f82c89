package plans

import (
	"context"
	"fmt"

	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
)

// Service exposes read-only access to the plan catalog.
type Service interface {
	FindPlanByID(ctx context.Context, id string) (*models.Plan, error)
	ListPlans(ctx context.Context, status *enums.PlanStatus) ([]models.Plan, error)
}

type service struct {
	repo Repository
}

// NewService wires a plan catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("plan repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) FindPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("plan %q not found", id))
	}
	if err := ValidateSplits(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *service) ListPlans(ctx context.Context, status *enums.PlanStatus) ([]models.Plan, error) {
	return s.repo.List(ctx, status)
}

// ValidateSplits checks that the partner and platform shares of every priced
// component sum to exactly 100 percent.
func ValidateSplits(plan *models.Plan) error {
	if plan == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "plan is nil")
	}
	if plan.HasUpfront() && (plan.UpfrontSplitPct < 0 || plan.UpfrontSplitPct > 100) {
		return pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("plan %q upfront split %d%% out of range", plan.ID, plan.UpfrontSplitPct))
	}
	if plan.HasRecurring() && (plan.RecurringSplitPct < 0 || plan.RecurringSplitPct > 100) {
		return pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("plan %q recurring split %d%% out of range", plan.ID, plan.RecurringSplitPct))
	}
	return nil
}
