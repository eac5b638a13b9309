package testutil

import (
	"net/http"

	id "sessiongate/pkg/domain"
	"sessiongate/pkg/requestcontext"
)

// WithIdentityID adds an identity to the request context, simulating what the
// auth middleware does for authenticated requests. Ids that fail to parse are
// ignored.
func WithIdentityID(req *http.Request, identityID string) *http.Request {
	parsed, err := id.ParseIdentityID(identityID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithIdentityID(req.Context(), parsed))
}

// WithSession adds both the identity and the session token that authenticated
// it, the typical state of a token-authenticated request.
func WithSession(req *http.Request, identityID, token string) *http.Request {
	req = WithIdentityID(req, identityID)
	if token != "" {
		req = req.WithContext(requestcontext.WithSessionToken(req.Context(), token))
	}
	return req
}
