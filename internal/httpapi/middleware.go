package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware tags every request with an id (the caller's, if it sent
// one) and writes one access log line when the handler returns.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"dur", time.Since(start),
			"from", r.RemoteAddr,
			"request_id", id,
		)
	})
}

// adminOnly rejects requests without the admin password header.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.admin == nil {
			s.fail(w, r, service.ErrAdminDisabled)
			return
		}
		if err := s.admin.Check(r.Header.Get(adminPasswordHeader)); err != nil {
			s.logger.WarnContext(r.Context(), "admin request rejected",
				"path", r.URL.Path, "from", r.RemoteAddr, "err", err)
			s.fail(w, r, err)
			return
		}
		next(w, r)
	}
}
