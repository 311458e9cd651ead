// Package webhook is the secret intake endpoint: a small HTTP server
// that accepts one (app, name, value) triple per request over a
// private listener and forwards it to an upsert-only secret
// reconciliation. It exists so secret values never traverse the
// history-keeping orchestration layer; nothing in this package logs,
// stores, or echoes a value.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openfleet/openfleet/pkg/fleet"
	"github.com/openfleet/openfleet/pkg/fly"
	"github.com/openfleet/openfleet/pkg/telemetry"
)

// SecretUpserter applies a desired secret set without removing
// anything. Satisfied by *fleet.Operations.
type SecretUpserter interface {
	UpsertSecrets(ctx context.Context, appName string, desired *fleet.DesiredSecretSet) (*fleet.ReconcileResult, error)
}

// intakeRequest is the intake payload. Value is bound from JSON and
// sealed into the desired set immediately; it is never logged and
// never written back into a response.
type intakeRequest struct {
	AppName string `json:"app_name" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Value   string `json:"value" binding:"required"`
}

// Server is the secret intake HTTP server.
type Server struct {
	upserter SecretUpserter
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	engine   *gin.Engine
}

// NewServer creates the intake server. metrics may be nil-equivalent
// (disabled); the /metrics route is mounted only when enabled.
func NewServer(upserter SecretUpserter, logger zerolog.Logger, metrics *telemetry.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		upserter: upserter,
		logger:   logger.With().Str("component", "webhook").Logger(),
		metrics:  metrics,
		engine:   gin.New(),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.POST("/v1/secret", s.handleSecret)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if handler := metrics.Handler(); handler != nil {
		s.engine.GET("/metrics", gin.WrapH(handler))
	}
	return s
}

// Handler exposes the router (used by tests and by Run).
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info().Str("addr", addr).Msg("secret intake listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleSecret accepts one secret triple and upserts exactly that key.
// It never triggers removal of other keys the app may hold.
func (s *Server) handleSecret(c *gin.Context) {
	requestID := uuid.New().String()
	log := s.logger.With().Str("request_id", requestID).Logger()

	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// The bind error for a malformed body can quote body
		// fragments; respond with a fixed message instead.
		log.Warn().Msg("rejected malformed intake request")
		s.metrics.ObserveWebhookRequest("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {app_name, name, value}"})
		return
	}

	desired := fleet.NewDesiredSecretSet()
	desired.Set(req.Name, []byte(req.Value))
	req.Value = ""

	result, err := s.upserter.UpsertSecrets(c.Request.Context(), req.AppName, desired)
	if err != nil {
		log.Error().Str("app", req.AppName).Str("key", req.Name).Err(err).Msg("secret intake failed")
		s.metrics.ObserveWebhookRequest("error")
		c.JSON(statusForError(err), gin.H{"error": "secret update failed", "name": req.Name})
		return
	}
	if !result.Ok() {
		failure := result.Failed[0]
		log.Error().Str("app", req.AppName).Str("key", failure.Name).Err(failure.Err).Msg("secret upsert failed")
		s.metrics.ObserveWebhookRequest("error")
		c.JSON(statusForError(failure.Err), gin.H{"error": "secret update failed", "name": failure.Name})
		return
	}

	log.Info().Str("app", req.AppName).Str("key", req.Name).Msg("secret set")
	s.metrics.ObserveWebhookRequest("ok")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "app_name": req.AppName, "name": req.Name})
}

// requestLogger logs method, path, status, and latency. Request and
// response bodies are never logged.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// statusForError maps the error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case fly.IsInvalid(err):
		return http.StatusBadRequest
	case fly.IsNotFound(err):
		return http.StatusNotFound
	case fly.IsConflict(err):
		return http.StatusConflict
	case fly.IsTransient(err), fly.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case fly.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
