package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"castfeed/internal/pipeline"
	"castfeed/pkg/logx"
)

const (
	DefaultAddr            = ":8080"
	DefaultWebhookPath     = "/webhook"
	DefaultSignatureHeader = "X-Provider-Signature"
)

type Config struct {
	Addr            string
	WebhookPath     string
	SignatureHeader string
}

// Server is the inbound webhook HTTP surface.
type Server struct {
	pipe   *pipeline.Pipeline
	router *gin.Engine
	log    logx.Logger

	mu        sync.RWMutex
	sigHeader string

	http *http.Server
}

func New(cfg Config, pipe *pipeline.Pipeline, gatherer prometheus.Gatherer, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = DefaultWebhookPath
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = DefaultSignatureHeader
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	s := &Server{
		pipe:      pipe,
		router:    r,
		log:       log,
		sigHeader: cfg.SignatureHeader,
	}

	// Any unhandled panic in the pipeline is an internal fault: 500, logged,
	// no retry on our side (the provider applies its own backoff).
	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		s.log.Error("panic while handling request",
			logx.String("path", c.Request.URL.Path),
			logx.Any("panic", err),
		)
		c.String(http.StatusInternalServerError, "internal error")
	}))

	r.POST(cfg.WebhookPath, s.handleWebhook)
	r.GET("/health", s.handleHealth)
	r.GET("/", s.handleRoot)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetSignatureHeader swaps the header name at runtime (config reload).
func (s *Server) SetSignatureHeader(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultSignatureHeader
	}
	s.mu.Lock()
	s.sigHeader = name
	s.mu.Unlock()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.log.Warn("failed reading webhook body", logx.Err(err))
		c.String(http.StatusInternalServerError, "read error")
		return
	}

	s.mu.RLock()
	header := s.sigHeader
	s.mu.RUnlock()

	outcome := s.pipe.Handle(c.Request.Context(), body, c.GetHeader(header))
	if outcome == pipeline.OutcomeUnauthorized {
		c.String(http.StatusUnauthorized, "invalid signature")
		return
	}
	// Soft skips (duplicates, unknown types, non-root casts, unresolved ids)
	// are part of the contract: the provider must not retry them.
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "castfeed: social-graph webhook bridge")
}

// Start runs the listener until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("http server listening", logx.String("addr", s.http.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shCtx)
	}
}
