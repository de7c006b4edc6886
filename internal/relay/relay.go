// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relay runs the local progress relay: it proxies the backend's
// event stream to EventSource consumers that cannot reach it directly and
// maps upstream failures to the status codes those consumers expect.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// statusClientClosedRequest is the conventional non-standard code logged
// when the client aborts mid-stream.
const statusClientClosedRequest = 499

// Server relays /api/buscar-progress to the configured upstream.
type Server struct {
	cfg    types.RelayConfig
	client *http.Client
	logger *zap.Logger
}

// NewServer builds a relay. The client must not impose an overall request
// timeout; event streams stay open for the whole search. A nil client gets
// a streaming-safe default.
func NewServer(cfg types.RelayConfig, client *http.Client, logger *zap.Logger) *Server {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, client: client, logger: logger}
}

// Router builds the relay's HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Cache-Control"},
		MaxAge:         300,
	}))

	r.Get("/api/buscar-progress", s.handleProgress)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	return r
}

// ListenAndServe runs the relay until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Listen, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("relay listening",
		zap.String("addr", s.cfg.Listen), zap.String("upstream", s.cfg.Upstream))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleProgress proxies one event stream. Failure mapping: missing
// search_id → 400; missing upstream configuration → 503; upstream
// connection failure → 502; upstream timeout or abrupt termination → 504;
// client abort → 499, logged only.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	searchID := r.URL.Query().Get("search_id")
	if searchID == "" {
		http.Error(w, `{"detail":"search_id is required"}`, http.StatusBadRequest)
		return
	}
	if s.cfg.Upstream == "" {
		http.Error(w, `{"detail":"relay upstream is not configured"}`, http.StatusServiceUnavailable)
		return
	}

	q := url.Values{}
	q.Set("search_id", searchID)
	if token := r.URL.Query().Get("token"); token != "" {
		q.Set("token", token)
	}
	upstream := strings.TrimRight(s.cfg.Upstream, "/") + "/api/buscar-progress?" + q.Encode()

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream, nil)
	if err != nil {
		http.Error(w, `{"detail":"invalid upstream request"}`, http.StatusBadGateway)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		s.writeUpstreamError(w, r, searchID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		s.logger.Warn("upstream refused progress stream",
			zap.String("search_id", searchID), zap.Int("status", resp.StatusCode))
		w.WriteHeader(resp.StatusCode)
		w.Write(body)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// Client went away mid-stream; nothing to send it.
				s.logger.Info("client aborted progress stream",
					zap.String("search_id", searchID),
					zap.Int("status", statusClientClosedRequest))
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if r.Context().Err() != nil {
				s.logger.Info("client aborted progress stream",
					zap.String("search_id", searchID),
					zap.Int("status", statusClientClosedRequest))
				return
			}
			// Headers are already out; all that is left is to log the
			// abrupt termination and drop the connection.
			s.logger.Warn("upstream stream terminated",
				zap.String("search_id", searchID), zap.Error(err))
			return
		}
	}
}

// writeUpstreamError maps a pre-stream upstream failure to a status code.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, searchID string, err error) {
	if r.Context().Err() != nil {
		// Client abort: no response can be delivered, log with 499.
		s.logger.Info("client aborted before upstream connect",
			zap.String("search_id", searchID),
			zap.Int("status", statusClientClosedRequest))
		return
	}

	status := http.StatusBadGateway
	detail := "could not reach the search backend"

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		status = http.StatusGatewayTimeout
		detail = "the search backend timed out"
	case strings.Contains(err.Error(), "terminated"):
		status = http.StatusGatewayTimeout
		detail = "the search backend terminated the stream"
	}

	s.logger.Warn("upstream progress connect failed",
		zap.String("search_id", searchID), zap.Int("status", status), zap.Error(err))
	http.Error(w, fmt.Sprintf(`{"detail":%q}`, detail), status)
}
