package plans

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/photovault/photovault-backend/pkg/db/models"
	"github.com/photovault/photovault-backend/pkg/enums"
)

// Repository manages persistence for billing plans.
type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Plan, error)
	List(ctx context.Context, status *enums.PlanStatus) ([]models.Plan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) List(ctx context.Context, status *enums.PlanStatus) ([]models.Plan, error) {
	query := r.db.WithContext(ctx).Model(&models.Plan{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var plans []models.Plan
	if err := query.Order("id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
