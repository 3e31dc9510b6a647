// Package health serves the keepalive endpoints hosting platforms poll to
// keep the bot process awake.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const awakeMessage = "Xaver is awake. 💜"

// Stats reports live counters for /healthz. Ping failing marks the process degraded.
type Stats interface {
	Guilds() int
	TrackedMembers() int
	Ping(ctx context.Context) error
}

type Status struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	Guilds         int    `json:"guilds"`
	TrackedMembers int    `json:"tracked_members"`
}

type Server struct {
	addr    string
	stats   Stats
	logger  *zap.Logger
	started time.Time
	now     func() time.Time
}

func New(addr string, stats Stats, logger *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		stats:   stats,
		logger:  logger,
		started: time.Now(),
		now:     time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("health server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeText(w, awakeMessage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "ok")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Status:        "ok",
		UptimeSeconds: int64(s.now().Sub(s.started) / time.Second),
	}
	code := http.StatusOK
	if s.stats != nil {
		status.Guilds = s.stats.Guilds()
		status.TrackedMembers = s.stats.TrackedMembers()
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.stats.Ping(ctx); err != nil {
			s.logger.Warn("storage ping failed", zap.Error(err))
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("healthz encode failed", zap.Error(err))
	}
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Debug("health request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
