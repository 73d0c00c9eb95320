package middleware

import (
	"net/http"

	"dome-backend/pkg/common"
	pkgerrors "dome-backend/pkg/errors"
)

// ReadOnly rejects mutating requests while the readOnly override is set.
// The flag is consulted per request so a hot reload takes effect without
// a restart.
func ReadOnly(enabled func() bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if enabled() {
				common.RespondError(w, http.StatusServiceUnavailable,
					string(pkgerrors.ErrorTypeInternal), "Service is in read-only maintenance mode")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
