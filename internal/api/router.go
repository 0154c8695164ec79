// Package api serves the chatbot over HTTP and WebSocket.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cattle-chatbot/internal/chatbot"
	"cattle-chatbot/internal/common/config"
	"cattle-chatbot/internal/common/logger"
	"cattle-chatbot/internal/common/validation"
	"cattle-chatbot/internal/models"
)

// Chatbot is the part of *chatbot.Chatbot the handlers call.
type Chatbot interface {
	Answer(ctx context.Context, req chatbot.Request) chatbot.Answer
	Explain(utterance, timeWindow string) chatbot.Explanation
	Catalog(ctx context.Context) ([]models.Entity, error)
}

// Store backs /ready and catalog refreshes.
type Store interface {
	Ping(ctx context.Context) (int, error)
	RefreshCatalog(ctx context.Context) ([]models.Entity, error)
}

type Server struct {
	chatbot   Chatbot
	store     Store
	config    config.ServerConfig
	version   string
	validator *validation.Validator
	limiter   *clientLimiter
	trusted   []*net.IPNet
	logger    logger.Logger
}

func NewServer(cfg config.ServerConfig, version string, bot Chatbot, store Store, log logger.Logger) *Server {
	s := &Server{
		chatbot:   bot,
		store:     store,
		config:    cfg,
		version:   version,
		validator: validation.MustValidator(chatbot.RequestSchema),
		limiter:   newClientLimiter(cfg.RateLimit, cfg.RateBurst, config.GetDuration(cfg.LimiterIdleTTL)),
		logger:    log.WithFields(map[string]interface{}{"component": "api"}),
	}
	for _, proxy := range cfg.TrustedProxies {
		network, err := config.ParseCIDROrIP(proxy)
		if err != nil {
			s.logger.Warn("ignoring trusted proxy", map[string]interface{}{"proxy": proxy, "error": err.Error()})
			continue
		}
		s.trusted = append(s.trusted, network)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.clientIP)
	r.Use(requestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/ask", s.ask)
		r.Get("/explain", s.explain)
		r.Get("/cows", s.cows)
		r.Get("/chat/ws", s.chatWebSocket)
	})

	return r
}

// HTTPServer wraps Router with the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Millisecond,
	}
}

func (s *Server) allowedOrigins() []string {
	if len(s.config.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.AllowedOrigins
}
