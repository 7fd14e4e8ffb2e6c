package api

import (
	"context"
	"net/http"

	"github.com/okian/tally/internal/domain/identity"
	"github.com/okian/tally/pkg/logger"
)

// HeaderDegradedIdentity is set on responses served to a degraded identity.
const HeaderDegradedIdentity = "X-Identity-Degraded"

type identityKey struct{}

// authenticate resolves the bearer token and stores the identity in the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.deps.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if id.Degraded {
			w.Header().Set(HeaderDegradedIdentity, "true")
			s.logger.Warn(r.Context(), "serving degraded identity", logger.String("user", id.UserID), logger.String("path", r.URL.Path))
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func identityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(identity.Identity)
	return id, ok
}
