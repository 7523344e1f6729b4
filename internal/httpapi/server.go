package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
	"github.com/ethanesterson-creator/SignOut/internal/signout/types"
)

const adminPasswordHeader = "X-Admin-Password"

type Dependencies struct {
	Logger *slog.Logger
	Addr   string

	Boards service.Boards
	Roster *credential.Directory
	// Admin nil disables the admin routes.
	Admin *service.Admin

	// Location renders timestamps; nil means UTC.
	Location *time.Location
	Now      func() time.Time
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	mux        *http.ServeMux

	boards   service.Boards
	roster   *credential.Directory
	admin    *service.Admin
	location *time.Location
	now      func() time.Time
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger,
		mux:      mux,
		boards:   d.Boards,
		roster:   d.Roster,
		admin:    d.Admin,
		location: d.Location,
		now:      d.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/roster", s.handleRoster)
	mux.HandleFunc("GET /v1/boards/{board}", s.handleBoard)
	mux.HandleFunc("POST /v1/boards/{board}/checkout", s.handleTransition(ledger.ActionCheckout))
	mux.HandleFunc("POST /v1/boards/{board}/checkin", s.handleTransition(ledger.ActionCheckin))

	mux.HandleFunc("GET /v1/admin/boards/{board}/events", s.adminOnly(s.handleHistory))
	mux.HandleFunc("GET /v1/admin/boards/{board}/export.csv", s.adminOnly(s.handleExport))
	mux.HandleFunc("POST /v1/admin/boards/{board}/purge", s.adminOnly(s.handlePurge))
	mux.HandleFunc("POST /v1/admin/roster/refresh", s.adminOnly(s.handleRefreshRoster))

	handler := loggingMiddleware(s.logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := s.roster.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, &service.StoreError{Op: "read roster", Err: err})
		return
	}
	names := roster.ActiveNames()
	if names == nil {
		names = []string{}
	}
	s.respond(w, r, http.StatusOK, types.RosterResponse{OK: true, Names: names})
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	c, err := s.boards.Get(r.PathValue("board"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := c.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, boardResponse(snap, c.Board().Categories, s.location, s.now()))
}

func (s *Server) handleTransition(action ledger.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.boards.Get(r.PathValue("board"))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		var req types.TransitionRequest
		if err := s.decode(r, &req); err != nil {
			s.badBody(w, r)
			return
		}

		ev, err := c.Propose(r.Context(), intentFromRequest(req, action))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		s.respond(w, r, http.StatusOK, types.TransitionResponse{
			OK:         true,
			Board:      c.Board().Name,
			Event:      eventView(ev, s.location),
			ServerTime: s.now().In(s.location).Format(time.RFC3339),
		})
	}
}

// ── Admin ────────────────────────────────────────────────────────────────────

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c, err := s.boards.Get(r.PathValue("board"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	history, err := c.History(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, types.HistoryResponse{
		OK:     true,
		Board:  c.Board().Name,
		Events: eventViews(history, s.location),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	board := r.PathValue("board")
	var buf bytes.Buffer
	if _, err := s.admin.Export(r.Context(), board, &buf); err != nil {
		s.fail(w, r, err)
		return
	}
	c, _ := s.boards.Get(board)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+c.Board().Ledger.Name()+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var req types.PurgeRequest
	if err := s.decode(r, &req); err != nil {
		s.badBody(w, r)
		return
	}
	removed, err := s.admin.Purge(r.Context(), r.PathValue("board"), req.All, req.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, types.PurgeResponse{OK: true, Removed: removed})
}

func (s *Server) handleRefreshRoster(w http.ResponseWriter, r *http.Request) {
	n, err := s.admin.RefreshRoster(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, types.RefreshResponse{OK: true, Staff: n})
}

// ── Encoding ─────────────────────────────────────────────────────────────────

func (s *Server) decode(r *http.Request, v any) error {
	if isProtobuf(r) {
		return readProto(r, v)
	}
	return decodeJSON(io.LimitReader(r.Body, maxRequestBody), v)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsProtobuf(r) {
		writeProto(w, status, v)
		return
	}
	writeJSON(w, status, v)
}

func (s *Server) badBody(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusBadRequest, types.ErrorResponse{
		Code:    "bad_body",
		Message: "invalid request body",
	})
}

// fail maps a service error onto a status code and error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := types.ErrorResponse{Message: err.Error()}
	status := http.StatusInternalServerError

	var (
		verr *service.ValidationError
		aerr *service.AuthError
		cerr *service.ConflictError
		serr *service.StoreError
	)
	switch {
	case errors.As(err, &verr):
		status, resp.Code, resp.Field = http.StatusBadRequest, "invalid_"+verr.Field, verr.Field
	case errors.As(err, &aerr):
		status, resp.Code = http.StatusUnauthorized, aerr.Reason.String()
	case errors.As(err, &cerr):
		status, resp.Code, resp.Subject = http.StatusConflict, string(cerr.Reason), cerr.Subject
	case errors.Is(err, service.ErrUnknownBoard):
		status, resp.Code = http.StatusNotFound, "unknown_board"
	case errors.Is(err, service.ErrAdminForbidden):
		status, resp.Code = http.StatusUnauthorized, "admin_forbidden"
	case errors.Is(err, service.ErrAdminDisabled):
		status, resp.Code = http.StatusForbidden, "admin_disabled"
	case errors.As(err, &serr):
		// Status is unknown while the store is unreachable; never guess.
		s.logger.ErrorContext(r.Context(), "store unavailable", "path", r.URL.Path, "err", err)
		status, resp.Code, resp.Message = http.StatusServiceUnavailable, "store_unavailable", "ledger temporarily unavailable, status unknown"
	default:
		s.logger.ErrorContext(r.Context(), "unexpected error", "path", r.URL.Path, "err", err)
		resp.Code, resp.Message = "internal_error", "unexpected server error"
	}
	s.respond(w, r, status, resp)
}
