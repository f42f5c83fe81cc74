package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/yamdb/apiserver/internal/auth"
	"github.com/yamdb/apiserver/internal/logging"
	"github.com/yamdb/apiserver/internal/metrics"
	"github.com/yamdb/apiserver/internal/policy"
)

// IdentityResolver turns an Authorization header into the caller.
type IdentityResolver interface {
	Resolve(ctx context.Context, header string) (auth.Identity, error)
}

// Authenticate resolves the caller once per request and stores it in the
// request context. A presented credential that does not resolve ends the
// request with 401 even on read-only routes.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				outcome := "error"
				if reason, ok := auth.ReasonOf(err); ok {
					outcome = string(reason)
				}
				metrics.RecordAuthResolution(outcome)
				logging.Debug().
					Err(err).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("outcome", outcome).
					Msg("authentication failed")
				writeError(w, r, err)
				return
			}

			outcome := "anonymous"
			if identity.IsAuthenticated() {
				outcome = "authenticated"
			}
			metrics.RecordAuthResolution(outcome)

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// authorize evaluates p for the caller and writes the denial when there is
// one. owner is nil for the collection-level check.
func authorize(w http.ResponseWriter, r *http.Request, p policy.Policy, action policy.Action, owner *int64) bool {
	identity := auth.IdentityFrom(r.Context())
	decision := p(identity, action, owner)
	metrics.RecordAuthzDecision(action.String(), decision.String())

	if err := policy.Err(decision); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}
