package billing

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/api/responses"
	"github.com/photovault/photovault-backend/api/validators"
	"github.com/photovault/photovault-backend/internal/lifecycle"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
)

type sessionEventRequest struct {
	NewPartnerID string     `json:"new_partner_id" validate:"required,uuid"`
	OccurredAt   *time.Time `json:"occurred_at"`
}

type clockAdvanceRequest struct {
	Now *time.Time `json:"now"`
}

// SessionEventApply reassigns the partner of record on a lapsed account after
// a new photo session.
func SessionEventApply(svc LifecycleService, logg *logger.Logger) http.HandlerFunc {
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

		var payload sessionEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		newPartnerID, err := uuid.Parse(payload.NewPartnerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid partner id"))
			return
		}

		event := lifecycle.SessionEvent{
			GalleryID:    galleryID,
			NewPartnerID: newPartnerID,
		}
		if payload.OccurredAt != nil {
			event.OccurredAt = payload.OccurredAt.UTC()
		}

		result, err := svc.ApplySessionEvent(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, transitionToResponse(result))
	}
}

// ClockAdvance applies any due time-based transitions to a gallery's billing
// account. Idempotent; intended for operational tooling, the sweep job covers
// the fleet.
func ClockAdvance(svc LifecycleService, logg *logger.Logger) http.HandlerFunc {
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

		now := time.Now().UTC()
		if r.ContentLength > 0 {
			var payload clockAdvanceRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if payload.Now != nil {
				now = payload.Now.UTC()
			}
		}

		result, err := svc.AdvanceClock(ctx, galleryID, now)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, transitionToResponse(result))
	}
}
