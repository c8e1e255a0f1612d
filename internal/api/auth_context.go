package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// callerKey is the context key for the authenticated caller.
const callerKey ctxKey = "caller"

// bearerSecurity marks an operation as requiring a session token in the OpenAPI document.
var bearerSecurity = []map[string][]string{{"bearer": {}}}

// GetCaller returns the authenticated caller from context.
// Returns a 401 error if the request was not authenticated.
func GetCaller(ctx context.Context) (service.Caller, error) {
	caller, ok := ctx.Value(callerKey).(service.Caller)
	if !ok || caller.UserID == "" {
		return service.Caller{}, domainerrors.Unauthorized("Authentication required. Please login.")
	}
	return caller, nil
}

// bearerToken returns the credential following the scheme in an
// Authorization header value, or "" when there is none.
func bearerToken(header string) string {
	_, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAuth validates the session token and stores the caller in context.
// The user is reloaded from the store on every request, so a token outliving
// its account is rejected.
func (s *Server) requireAuth(ctx huma.Context, next func(huma.Context)) {
	user, err := s.services.Auth.Authenticate(ctx.Context(), bearerToken(ctx.Header("Authorization")))
	if err != nil {
		s.logger.Debug("request not authenticated", "path", ctx.URL().Path, "error", err)
		s.writeErr(ctx, err)
		return
	}
	next(huma.WithValue(ctx, callerKey, service.CallerFor(user)))
}
