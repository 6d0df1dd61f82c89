package billing

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/api/responses"
	"github.com/photovault/photovault-backend/api/validators"
	"github.com/photovault/photovault-backend/internal/lifecycle"
	"github.com/photovault/photovault-backend/pkg/db/models"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
)

type paymentRequest struct {
	AmountCents int64      `json:"amount_cents" validate:"required,min=1"`
	PaidAt      *time.Time `json:"paid_at"`
}

type ledgerEntryResponse struct {
	ID          string `json:"id"`
	GalleryID   string `json:"gallery_id"`
	RecipientID string `json:"recipient_id"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	PeriodLabel string `json:"period_label"`
	RecordedAt  string `json:"recorded_at"`
}

type transitionResponse struct {
	Account accountResponse       `json:"account"`
	Entries []ledgerEntryResponse `json:"entries"`
}

// UpfrontPaymentCreate applies a captured upfront payment to a gallery's
// billing account.
func UpfrontPaymentCreate(svc LifecycleService, logg *logger.Logger) http.HandlerFunc {
	return paymentHandler(svc, logg, func(svc LifecycleService, r *http.Request, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error) {
		return svc.RecordUpfrontPayment(r.Context(), galleryID, amountCents, paidAt)
	})
}

// RecurringPaymentCreate applies a captured recurring payment to a gallery's
// billing account.
func RecurringPaymentCreate(svc LifecycleService, logg *logger.Logger) http.HandlerFunc {
	return paymentHandler(svc, logg, func(svc LifecycleService, r *http.Request, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error) {
		return svc.RecordRecurringPayment(r.Context(), galleryID, amountCents, paidAt)
	})
}

func paymentHandler(
	svc LifecycleService,
	logg *logger.Logger,
	record func(svc LifecycleService, r *http.Request, galleryID uuid.UUID, amountCents int64, paidAt time.Time) (*lifecycle.TransitionResult, error),
) http.HandlerFunc {
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

		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		paidAt := time.Now().UTC()
		if payload.PaidAt != nil {
			paidAt = payload.PaidAt.UTC()
		}

		result, err := record(svc, r, galleryID, payload.AmountCents, paidAt)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, transitionToResponse(result))
	}
}

func transitionToResponse(result *lifecycle.TransitionResult) transitionResponse {
	resp := transitionResponse{
		Account: accountToResponse(result.Account),
		Entries: make([]ledgerEntryResponse, 0, len(result.Entries)),
	}
	for i := range result.Entries {
		resp.Entries = append(resp.Entries, entryToResponse(&result.Entries[i]))
	}
	return resp
}

func entryToResponse(entry *models.LedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:          entry.ID.String(),
		GalleryID:   entry.GalleryID.String(),
		RecipientID: entry.RecipientID.String(),
		Kind:        string(entry.Kind),
		AmountCents: entry.AmountCents,
		PeriodLabel: entry.PeriodLabel,
		RecordedAt:  entry.RecordedAt.UTC().Format(time.RFC3339),
	}
}
