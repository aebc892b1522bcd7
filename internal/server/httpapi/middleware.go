package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"authkeeper/internal/common"
	"authkeeper/internal/server/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// requireAccessToken verifies the bearer access token and injects the decoded
// identity into the request context. Verification is purely stateless.
func (s *Server) requireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerSchemePrefix) {
			writeError(w, http.StatusUnauthorized, "no auth token found")
			return
		}
		token := strings.TrimPrefix(header, common.BearerSchemePrefix)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "no auth token found")
			return
		}

		identity, err := s.tokens.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}
