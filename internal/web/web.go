package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"recents/internal/config"
	"recents/internal/ics"
	appLog "recents/internal/log"
	"recents/internal/recents"
	"recents/internal/timeconv"
)

// Server exposes the recents list, the timestamp converter and the
// iCalendar feed over HTTP.
type Server struct {
	cfg *config.Config
	svc *recents.Service
	mux *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *recents.Service) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Recents", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/recents", s.handleRecents)
	s.mux.HandleFunc("GET /api/convert/parse", s.handleConvertParse)
	s.mux.HandleFunc("GET /api/convert/format", s.handleConvertFormat)
	s.mux.HandleFunc("GET /api/label", s.handleLabel)
	s.mux.HandleFunc("GET /recents.ics", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// recentsResponse is the JSON response shape for /api/recents.
type recentsResponse struct {
	Calls           []callDTO  `json:"calls"`
	FetchedAt       *time.Time `json:"fetched_at,omitempty"`
	FromCache       bool       `json:"from_cache"`
	DisplayTimeZone string     `json:"display_timezone"`
	Locale          string     `json:"locale"`
}

// callDTO is a JSON-friendly view of a labelled call.
type callDTO struct {
	ID        int64     `json:"id"`
	Direction string    `json:"direction"`
	Party     string    `json:"party"`
	Caption   string    `json:"caption"`
	Label     string    `json:"label"`
	Bucket    string    `json:"bucket"`
	Start     time.Time `json:"start"`
	CallDate  string    `json:"call_date"`
	Duration  int64     `json:"duration_seconds"`
	Missed    bool      `json:"missed"`
}

// handleRecents returns the current snapshot, labelled against now.
func (s *Server) handleRecents(w http.ResponseWriter, _ *http.Request) {
	codec := s.svc.Codec()
	rows := s.svc.Rows()

	dtos := make([]callDTO, 0, len(rows))
	for _, r := range rows {
		dtos = append(dtos, callDTO{
			ID:        r.Call.ID,
			Direction: string(r.Call.Direction),
			Party:     r.Party,
			Caption:   r.Caption,
			Label:     r.Label,
			Bucket:    r.Bucket.String(),
			Start:     r.Call.Start,
			CallDate:  codec.Format(r.Call.Start),
			Duration:  int64(r.Call.Duration / time.Second),
			Missed:    r.Call.Missed(),
		})
	}

	resp := recentsResponse{
		Calls:           dtos,
		DisplayTimeZone: locationName(s.svc.Calendar().Location),
		Locale:          s.cfg.Locale,
	}
	if snap := s.svc.Snapshot(); snap != nil {
		at := snap.FetchedAt
		resp.FetchedAt = &at
		resp.FromCache = snap.FromCache
	}
	writeJSON(w, http.StatusOK, resp)
}

// convertResponse describes one instant in both representations.
type convertResponse struct {
	API     string `json:"api"`
	RFC3339 string `json:"rfc3339"`
	Unix    int64  `json:"unix"`
}

// handleConvertParse decodes an API timestamp.
//
// GET /api/convert/parse?value=2009-10-11T12:13:14
func (s *Server) handleConvertParse(w http.ResponseWriter, r *http.Request) {
	codec := s.svc.Codec()
	t, err := codec.Parse(r.URL.Query().Get("value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		API:     codec.Format(t),
		RFC3339: t.Format(time.RFC3339),
		Unix:    t.Unix(),
	})
}

// handleConvertFormat encodes an RFC 3339 instant as an API timestamp.
//
// GET /api/convert/format?value=2009-10-11T11:13:14Z
func (s *Server) handleConvertFormat(w http.ResponseWriter, r *http.Request) {
	t, err := time.Parse(time.RFC3339, r.URL.Query().Get("value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "value must be RFC 3339")
		return
	}
	codec := s.svc.Codec()
	api := codec.Format(t)
	// Reparse so the RFC 3339 form carries the reference offset.
	ref, err := codec.Parse(api)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		API:     api,
		RFC3339: ref.Format(time.RFC3339),
		Unix:    t.Unix(),
	})
}

type labelResponse struct {
	Label  string `json:"label"`
	Bucket string `json:"bucket"`
}

// handleLabel renders the relative label for an API timestamp.
//
// GET /api/label?value=2009-10-11T12:13:14&now=2009-10-12T08:00:00Z
//   - now: optional RFC 3339 reference instant (default: the service clock)
func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := s.svc.Codec().Parse(q.Get("value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.svc.Now()
	if raw := q.Get("now"); raw != "" {
		now, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "now must be RFC 3339")
			return
		}
	}

	label, bucket := timeconv.Label(t, now, s.svc.Calendar())
	writeJSON(w, http.StatusOK, labelResponse{Label: label, Bucket: bucket.String()})
}

// handleICS serves the current snapshot as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.svc.Calls(), ics.ExportOptions{
		Codec: s.svc.Codec(),
		Texts: s.svc.Texts(),
		Stamp: s.svc.Now(),
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func locationName(loc *time.Location) string {
	if loc == nil {
		return time.Local.String()
	}
	return loc.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
