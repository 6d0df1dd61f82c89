package billing

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/photovault/photovault-backend/api/responses"
	"github.com/photovault/photovault-backend/pkg/db/models"
	pkgerrors "github.com/photovault/photovault-backend/pkg/errors"
	"github.com/photovault/photovault-backend/pkg/logger"
	"github.com/photovault/photovault-backend/pkg/pagination"
)

// LedgerService describes the ledger read methods used by the HTTP controllers.
type LedgerService interface {
	EntriesFor(ctx context.Context, galleryID uuid.UUID, periodLabel string) ([]models.LedgerEntry, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, error)
}

type ledgerListResponse struct {
	Entries    []ledgerEntryResponse `json:"entries"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// LedgerList returns a gallery's ledger entries, either the complete set for
// one period (?period=2026-04) or a cursor-paginated history.
func LedgerList(svc LedgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		galleryID, err := galleryIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if period := strings.TrimSpace(r.URL.Query().Get("period")); period != "" {
			entries, err := svc.EntriesFor(ctx, galleryID, period)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, ledgerListResponse{Entries: entriesToResponse(entries)})
			return
		}

		limit := 0
		if rawLimit := strings.TrimSpace(r.URL.Query().Get("limit")); rawLimit != "" {
			parsed, err := strconv.Atoi(rawLimit)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid limit"))
				return
			}
			limit = parsed
		}
		limit = pagination.NormalizeLimit(limit)

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		rows, err := svc.ListByGallery(ctx, galleryID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		nextCursor := ""
		if len(rows) > limit {
			rows = rows[:limit]
			last := rows[len(rows)-1]
			nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}

		responses.WriteSuccess(w, ledgerListResponse{
			Entries:    entriesToResponse(rows),
			NextCursor: nextCursor,
		})
	}
}

func entriesToResponse(entries []models.LedgerEntry) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, entryToResponse(&entries[i]))
	}
	return out
}
