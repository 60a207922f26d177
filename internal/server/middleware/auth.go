package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lunchpaillola/docusign-voice/internal/security"
)

const bearerPrefix = "bearer "

// IssuedTokenChecker confirms that an access token was issued by this service and is
// still on record.
type IssuedTokenChecker interface {
	IsIssued(ctx context.Context, tokenID, rawToken string) (bool, error)
}

// BearerAuth validates the Bearer access token and sets the subject and token id in
// context. Requests without a valid token are answered by deny. When issued is non-nil
// the token must also be on record.
func BearerAuth(tokens *security.TokenProvider, issued IssuedTokenChecker, deny http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ExtractBearer(r)
			if raw == "" {
				AddLogField(r.Context(), "auth", "missing bearer token")
				deny.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.ValidateAccess(raw)
			if err != nil {
				AddLogField(r.Context(), "auth", "invalid bearer token")
				deny.ServeHTTP(w, r)
				return
			}
			if issued != nil {
				ok, err := issued.IsIssued(r.Context(), claims.ID, raw)
				if err != nil {
					AddError(r.Context(), err)
				}
				if err != nil || !ok {
					AddLogField(r.Context(), "auth", "unknown bearer token")
					deny.ServeHTTP(w, r)
					return
				}
			}
			ctx := WithIdentity(r.Context(), claims.Subject, claims.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func ExtractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
