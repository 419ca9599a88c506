package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

type contextKey string

const modelKey contextKey = "simplefields.model"

// withModel resolves the {type} route parameter to its registered model and
// stashes it in the request context. Unknown types 404.
func (h *Handler) withModel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		typeID := chi.URLParam(r, "type")
		m, ok := h.registry.Get(typeID)
		if !ok {
			renderError(w, r, http.StatusNotFound, "unknown content type: "+typeID)
			return
		}
		if !m.Running() {
			renderError(w, r, http.StatusServiceUnavailable, "content type is not active")
			return
		}
		ctx := context.WithValue(r.Context(), modelKey, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func modelFrom(r *http.Request) *simplefields.Model {
	return r.Context().Value(modelKey).(*simplefields.Model)
}

// authGate enforces the per-request authentication gate for content types
// that declare RequiresAuth. The JWT verifier middleware (jwtauth.Verifier)
// must run earlier in the chain; this gate only interprets its outcome.
// Unauthenticated requests are redirected to the login URL, authenticated
// requests lacking the type's edit capability are denied outright. The check
// runs once per request, not per item.
func (h *Handler) authGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := modelFrom(r)
		if !m.Descriptor().RequiresAuth {
			next.ServeHTTP(w, r)
			return
		}

		token, _, err := jwtauth.FromContext(r.Context())
		authenticated := err == nil && token != nil

		switch m.Authorize(r.Context(), authenticated) {
		case simplefields.AuthRedirect:
			http.Redirect(w, r, "/login", http.StatusFound)
		case simplefields.AuthDeny:
			renderError(w, r, http.StatusForbidden, "access denied")
		default:
			next.ServeHTTP(w, r)
		}
	})
}
