package middleware

import (
	"context"
	"log/slog"
	"net/http"

	id "sessiongate/pkg/domain"
	dErrors "sessiongate/pkg/domain-errors"
	"sessiongate/pkg/platform/httputil"
	"sessiongate/pkg/requestcontext"
)

// HeaderToken carries the opaque session token.
const HeaderToken = "X-Token"

// Authenticator resolves the raw auth headers of a request to an identity.
// Either header may be empty; the implementation picks the variant.
type Authenticator interface {
	AuthenticateHeaders(ctx context.Context, authorization, token string) (id.IdentityID, error)
}

// GetIdentityID retrieves the authenticated identity from the context.
func GetIdentityID(ctx context.Context) id.IdentityID {
	return requestcontext.IdentityID(ctx)
}

// RequireAuth rejects requests that carry neither a live session token nor
// valid Basic credentials. On success the identity id (and the token, when one
// was used) are placed in the request context.
func RequireAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(HeaderToken)

			identityID, err := authenticator.AuthenticateHeaders(ctx, r.Header.Get("Authorization"), token)
			if err != nil {
				attrs := []any{"request_id", GetRequestID(ctx), "error", err}
				if dErrors.HasCode(err, dErrors.CodeUnavailable) {
					logger.ErrorContext(ctx, "authentication failed - store unavailable", attrs...)
				} else {
					logger.WarnContext(ctx, "unauthorized access", attrs...)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithIdentityID(ctx, identityID)
			if token != "" {
				ctx = requestcontext.WithSessionToken(ctx, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
