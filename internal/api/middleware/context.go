package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	workspaceIDKey contextKey = "workspace_id"
	keyPrefixKey   contextKey = "key_prefix"
	sessionKey     contextKey = "session"
)

// Session carries the authenticated caller identity and audit metadata for
// session-authenticated (dashboard) requests. It is built by the session
// middleware and passed explicitly, never read from ambient globals.
type Session struct {
	TenantID  string
	UserID    string
	Location  string
	UserAgent string
}

func SetWorkspaceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, workspaceIDKey, id)
}

func GetWorkspaceID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(workspaceIDKey).(uuid.UUID)
	return id, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func SetSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func GetSession(r *http.Request) (Session, bool) {
	s, ok := r.Context().Value(sessionKey).(Session)
	return s, ok
}
