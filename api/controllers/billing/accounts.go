package billing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/api/responses"
	"github.com/photovault/photovault-backend/api/validators"
	"github.com/photovault/photovault-backend/internal/lifecycle"
	"github.com/photovault/photovault-backend/pkg/db/models"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
)

// LifecycleService describes the billing lifecycle methods used by the HTTP controllers.
type LifecycleService interface {
	CreateAccount(ctx context.Context, input lifecycle.CreateAccountInput) (*models.BillingAccount, error)
	GetAccount(ctx context.Context, galleryID uuid.UUID) (*models.BillingAccount, error)
	RecordUpfrontPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error)
	RecordRecurringPayment(ctx context.Context, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error)
	AdvanceClock(ctx context.Context, galleryID uuid.UUID, now time.Time) (*lifecycle.TransitionResult, error)
	ApplySessionEvent(ctx context.Context, event lifecycle.SessionEvent) (*lifecycle.TransitionResult, error)
}

type accountResponse struct {
	ID                string  `json:"id"`
	GalleryID         string  `json:"gallery_id"`
	ClientID          string  `json:"client_id"`
	PlanID            string  `json:"plan_id"`
	PartnerOfRecordID *string `json:"partner_of_record_id,omitempty"`
	Status            string  `json:"status"`
	LastPaymentAt     *string `json:"last_payment_at,omitempty"`
	PeriodStart       *string `json:"period_start,omitempty"`
	PeriodEnd         *string `json:"period_end,omitempty"`
	SupersededBy      *string `json:"superseded_by,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

type accountCreateRequest struct {
	GalleryID         string  `json:"gallery_id" validate:"required,uuid"`
	ClientID          string  `json:"client_id" validate:"required,uuid"`
	PlanID            string  `json:"plan_id" validate:"required"`
	PartnerOfRecordID *string `json:"partner_of_record_id" validate:"omitempty,uuid"`
}

// AccountCreate opens a new billing lifecycle for a gallery.
func AccountCreate(svc LifecycleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		var payload accountCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		galleryID, err := uuid.Parse(payload.GalleryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gallery id"))
			return
		}
		clientID, err := uuid.Parse(payload.ClientID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client id"))
			return
		}

		input := lifecycle.CreateAccountInput{
			GalleryID: galleryID,
			ClientID:  clientID,
			PlanID:    strings.TrimSpace(payload.PlanID),
		}
		if payload.PartnerOfRecordID != nil {
			partnerID, err := uuid.Parse(*payload.PartnerOfRecordID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid partner id"))
				return
			}
			input.PartnerOfRecordID = &partnerID
		}

		account, err := svc.CreateAccount(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, accountToResponse(account))
	}
}

// AccountDetail returns the open billing account for a gallery.
func AccountDetail(svc LifecycleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		galleryID, err := galleryIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := svc.GetAccount(ctx, galleryID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, accountToResponse(account))
	}
}

func galleryIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "galleryId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "gallery id is required")
	}
	galleryID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gallery id")
	}
	return galleryID, nil
}

func accountToResponse(account *models.BillingAccount) accountResponse {
	resp := accountResponse{
		ID:        account.ID.String(),
		GalleryID: account.GalleryID.String(),
		ClientID:  account.ClientID.String(),
		PlanID:    account.PlanID,
		Status:    account.Status.String(),
		CreatedAt: account.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: account.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if account.PartnerOfRecordID != nil {
		value := account.PartnerOfRecordID.String()
		resp.PartnerOfRecordID = &value
	}
	if account.SupersededBy != nil {
		value := account.SupersededBy.String()
		resp.SupersededBy = &value
	}
	resp.LastPaymentAt = formatTimePtr(account.LastPaymentAt)
	resp.PeriodStart = formatTimePtr(account.PeriodStart)
	resp.PeriodEnd = formatTimePtr(account.PeriodEnd)
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}
