package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"growth-subscription-service/internal/config"
	"growth-subscription-service/internal/infra/logging"
	"growth-subscription-service/internal/infra/webhook"
	"growth-subscription-service/internal/usecase"
)

// Server exposes webhook ingress and the read-only subscription query API.
type Server struct {
	cfg          config.ServerConfig
	reconciler   usecase.ReconcilerUseCase
	entitlements usecase.EntitlementUseCase
	purchases    usecase.PurchaseUseCase
	decoder      *webhook.Decoder
	auth         *AuthManager
	log          *zerolog.Logger
	httpServer   *http.Server
}

func NewServer(
	cfg config.ServerConfig,
	reconciler usecase.ReconcilerUseCase,
	entitlements usecase.EntitlementUseCase,
	purchases usecase.PurchaseUseCase,
	decoder *webhook.Decoder,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		cfg:          cfg,
		reconciler:   reconciler,
		entitlements: entitlements,
		purchases:    purchases,
		decoder:      decoder,
		auth:         NewAuthManager(cfg.APIKey, 30*time.Minute),
		log:          &l,
	}
}

// Routes builds the chi router. Webhook ingress checks the shared secret;
// the query API is behind minted bearer tokens.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.traceMiddleware)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhook/appstore", s.webhookSecretMiddleware(s.handleWebhook))

	r.Post("/api/v1/auth/token", s.handleMintToken)
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/v1/users/{userID}/subscription", s.handleSubscription)
		r.Get("/api/v1/users/{userID}/entitlements/{feature}", s.handleEntitlement)
		r.Post("/api/v1/users/{userID}/refresh", s.handleRefresh)
		r.Post("/api/v1/users/{userID}/restore", s.handleRestore)
		r.Delete("/api/v1/users/{userID}/subscription", s.handleSignOut)
	})
	return r
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("HTTP server listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// traceMiddleware carries the chi request ID as the trace ID so log lines
// from one request correlate.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logging.With(r.Context(), s.log)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

// webhookSecretMiddleware checks the shared ingress secret. A missing
// configuration fails closed.
func (s *Server) webhookSecretMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.WebhookToken == "" {
			s.log.Error().Msg("webhook token is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if r.Header.Get("X-Webhook-Token") != s.cfg.WebhookToken {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// authMiddleware validates minted bearer tokens on the query API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.Verify(token); err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
