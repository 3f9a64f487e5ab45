package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/cache"
	"github.com/25x8/uc-store/internal/ucstore/config"
	"github.com/25x8/uc-store/internal/ucstore/handlers"
	"github.com/25x8/uc-store/internal/ucstore/middleware"
	"github.com/25x8/uc-store/internal/ucstore/repository"
	"github.com/25x8/uc-store/internal/ucstore/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	repo       repository.Repository
	cache      cache.Cache
	sessions   *service.SessionService
	reaper     *service.SessionReaper
	limiter    *middleware.RateLimiter
	handler    *handlers.Handler
	router     http.Handler
	httpServer *http.Server
}

// NewServer wires repositories, services and routes from cfg
func NewServer(cfg *config.Config) (*Server, error) {
	var repo repository.Repository
	if cfg.DatabaseURI == "" {
		slog.Warn("DATABASE_URI is empty, using in-memory repository")
		repo = repository.NewMemoryRepository()
	} else {
		repo = repository.NewPostgresRepository()
	}
	if err := repo.InitDB(cfg.DatabaseURI); err != nil {
		return nil, err
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		c = cache.NewRedisCache(cfg.RedisAddr)
	} else {
		c = cache.NewMemoryCache()
	}

	var lookup service.PlayerLookup = service.StaticLookup{}
	if cfg.RapidAPIKey != "" {
		lookup = service.NewGameIDLookup("", cfg.RapidAPIKey)
	}

	creds, err := service.NewStaticCredentials(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if cfg.GeneratedJWTSecret {
		slog.Warn("JWT_SECRET is not set, admin tokens will not survive a restart")
	}
	sessions := service.NewSessionService(creds, service.NewMemorySessionStore(), cfg.JWTSecret, cfg.TokenTTL)

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	gateway := service.NewShopierGateway(service.ShopierConfig{
		APIKey:      cfg.ShopierAPIKey,
		APISecret:   cfg.ShopierAPISecret,
		PaymentURL:  cfg.ShopierPaymentURL,
		CallbackURL: callbackURL(baseURL),
		ReturnURL:   baseURL,
	})

	auditor := service.NewAuditor(repo)
	sessions.SetAuditor(auditor)

	handler := handlers.NewHandler(
		service.NewCatalogService(repo),
		service.NewPlayerResolver(lookup, c, cfg.PlayerLookupDelay),
		service.NewOrderService(repo, gateway),
		sessions,
		auditor,
	)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	s := &Server{
		cfg:      cfg,
		repo:     repo,
		cache:    c,
		sessions: sessions,
		reaper:   service.NewSessionReaper(sessions.Store(), 5*time.Minute),
		limiter:  limiter,
		handler:  handler,
	}
	s.router = NewRouter(handler, sessions, limiter, cfg.TrustProxy)
	return s, nil
}

func callbackURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	return baseURL + "/api/payment/shopier/callback"
}

// NewRouter builds the HTTP routes. Forwarding headers are honoured only when
// trustProxy is set; otherwise the rate limiter keys on the peer address.
func NewRouter(h *handlers.Handler, verifier middleware.TokenVerifier, limiter *middleware.RateLimiter, trustProxy bool) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if trustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(nil))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/health", h.Health)

		// Public routes
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Handler)
			}
			r.Get("/products", h.ListProducts)
			r.Get("/player/resolve", h.ResolvePlayer)
			r.Post("/orders", h.CreateOrder)
			r.Post("/admin/login", h.Login)
		})

		r.Post("/payment/shopier/callback", h.ShopierCallback)

		// Protected routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(verifier))

			r.Post("/logout", h.Logout)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Get("/products", h.ListAllProducts)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
			r.Get("/audit-logs", h.AuditLogs)
		})
	})

	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the background workers and the HTTP server
func (s *Server) Run() error {
	s.reaper.Start()
	s.limiter.Start()

	s.httpServer = &http.Server{
		Addr:              s.cfg.RunAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server", "address", s.cfg.RunAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
		s.reaper.Stop()
		s.limiter.Stop()
	}

	if closer, ok := s.cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	}

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			return err
		}
	}

	return nil
}
