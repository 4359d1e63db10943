package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	mw "github.com/gatekit-dev/gatekit/internal/api/middleware"
	"github.com/gatekit-dev/gatekit/internal/api/response"
	"github.com/gatekit-dev/gatekit/internal/keys"
	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// KeyLister defines the interface the handler depends on.
type KeyLister interface {
	ListKeys(ctx context.Context, params keys.ListParams) (*keys.ListResult, error)
}

type listKeysResponse struct {
	Keys  []*models.Key `json:"keys"`
	Total int           `json:"total"`
}

// NewListKeysHandler returns an http.HandlerFunc for GET /v1/apis/{apiID}/keys.
func NewListKeysHandler(svc KeyLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID, ok := mw.GetWorkspaceID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing workspace", nil)
			return
		}

		apiID, err := uuid.Parse(chi.URLParam(r, "apiID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "apiID must be a valid id", nil)
			return
		}

		q := r.URL.Query()

		limit := defaultListLimit
		if v := q.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit <= 0 {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer", nil)
				return
			}
			if limit > maxListLimit {
				limit = maxListLimit
			}
		}

		offset := 0
		if v := q.Get("offset"); v != "" {
			offset, err = strconv.Atoi(v)
			if err != nil || offset < 0 {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "offset must be a non-negative integer", nil)
				return
			}
		}

		result, err := svc.ListKeys(r.Context(), keys.ListParams{
			APIID:       apiID,
			WorkspaceID: workspaceID,
			OwnerID:     q.Get("ownerId"),
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "API not found", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		if result.Keys == nil {
			result.Keys = []*models.Key{}
		}
		response.JSON(w, listKeysResponse{Keys: result.Keys, Total: result.Total})
	}
}
