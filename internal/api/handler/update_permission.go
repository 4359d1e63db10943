package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	mw "github.com/gatekit-dev/gatekit/internal/api/middleware"
	"github.com/gatekit-dev/gatekit/internal/api/response"
	"github.com/gatekit-dev/gatekit/internal/rbac"
	"github.com/google/uuid"
)

// Permission names: alphanumerics, underscores, colons, periods, dashes and
// wildcards, at least 3 characters.
var permissionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_:\-\.\*]+$`)

const minPermissionNameLen = 3

// Static support-pointer messages. Internal detail never reaches the caller.
const (
	msgWorkspaceNotFound  = "We are unable to find the correct workspace. Please contact support using support@gatekit.dev."
	msgPermissionNotFound = "We are unable to find the correct permission. Please contact support using support@gatekit.dev."
	msgUpdateFailed       = "We are unable to update the permission. Please contact support using support@gatekit.dev."
)

// PermissionUpdater defines the interface the handler depends on.
type PermissionUpdater interface {
	UpdatePermission(ctx context.Context, params rbac.UpdatePermissionParams) error
}

// NewUpdatePermissionHandler returns an http.HandlerFunc for
// POST /v1/rpc/rbac.updatePermission.
func NewUpdatePermissionHandler(svc PermissionUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := mw.GetSession(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing session", nil)
			return
		}

		var req struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			Description *string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
			return
		}

		permissionID, err := uuid.Parse(req.ID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a valid id", nil)
			return
		}

		if len(req.Name) < minPermissionNameLen || !permissionNameRe.MatchString(req.Name) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"Must be at least 3 characters long and only contain alphanumeric, colons, periods, dashes and underscores", nil)
			return
		}

		err = svc.UpdatePermission(r.Context(), rbac.UpdatePermissionParams{
			TenantID:     session.TenantID,
			UserID:       session.UserID,
			PermissionID: permissionID,
			Name:         req.Name,
			Description:  req.Description,
			Location:     session.Location,
			UserAgent:    session.UserAgent,
		})
		if err != nil {
			switch {
			case errors.Is(err, rbac.ErrWorkspaceNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", msgWorkspaceNotFound, nil)
			case errors.Is(err, rbac.ErrPermissionNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", msgPermissionNotFound, nil)
			case errors.Is(err, rbac.ErrUpdateFailed):
				response.Error(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", msgUpdateFailed, nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", msgUpdateFailed, nil)
			}
			return
		}

		response.NoContent(w)
	}
}
