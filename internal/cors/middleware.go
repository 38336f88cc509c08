package cors

import (
	"net/http"

	"go.uber.org/zap"
)

type Middleware struct {
	logger       *zap.Logger
	allowOrigins map[string]struct{}
	allowAll     bool
}

// NewMiddleware builds a CORS gate for the given origins. An empty list
// allows every origin, which is only sensible in development.
func NewMiddleware(logger *zap.Logger, allowOrigins []string) *Middleware {
	origins := make(map[string]struct{}, len(allowOrigins))
	for _, origin := range allowOrigins {
		origins[origin] = struct{}{}
	}
	return &Middleware{
		logger:       logger,
		allowOrigins: origins,
		allowAll:     len(allowOrigins) == 0,
	}
}

func (m *Middleware) HandlerFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if _, ok := m.allowOrigins[origin]; ok || m.allowAll {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}
