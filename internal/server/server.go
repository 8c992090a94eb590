package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-errors"
	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"

	auth "github.com/ciphersigma/ieee-sps-gs-website-sub001"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/config"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/logger"
	"github.com/ciphersigma/ieee-sps-gs-website-sub001/internal/obs"
)

const shutdownTimeout = 10 * time.Second

var ErrRateLimited = errors.New("too many requests, try again later", errors.CategoryRateLimit).
	WithTextCode("RATE_LIMITED").
	WithCode(http.StatusTooManyRequests)

type Server struct {
	cfg      *config.Config
	db       *bun.DB
	logger   *logger.Logger
	metrics  *obs.Metrics
	services *Services
	app      *fiber.App
}

// New builds the fiber app with every route mounted
func New(cfg *config.Config, db *bun.DB, log *logger.Logger, metrics *obs.Metrics) (*Server, error) {
	if metrics == nil {
		metrics = obs.NewMetrics()
	}

	services, err := NewServices(cfg, db, log.Named("auth"), metrics)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		db:       db,
		logger:   log,
		metrics:  metrics,
		services: services,
	}
	s.app = s.buildApp()
	return s, nil
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Services() *Services {
	return s.services
}

func (s *Server) buildApp() *fiber.App {
	httpLog := s.logger.Named("http")

	app := fiber.New(fiber.Config{
		AppName:               "chapterd",
		DisableStartupMessage: true,
		ErrorHandler:          auth.NewHTTPErrorHandler(httpLog),
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: s.cfg.IsDevelopment()}))
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return ulid.Make().String() },
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${status} ${method} ${path} ${latency} id=${locals:requestid}\n",
		Output: httpLog.Writer(),
	}))
	app.Use(s.metrics.Instrument())

	app.Get("/healthz", s.health)
	app.Get("/metrics", s.metrics.Handler())

	s.services.Controller(s.logger.Named("api")).RegisterRoutes(app, s.limiter())

	return app
}

// limiter guards the unauthenticated credential routes in production
func (s *Server) limiter() fiber.Handler {
	if !s.cfg.IsProduction() {
		return nil
	}
	return limiter.New(limiter.Config{
		Max:        s.cfg.RateLimit.Max,
		Expiration: s.cfg.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Path()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return ErrRateLimited
		},
	})
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("Health check failed", "error", err)
		return auth.ErrDependencyUnavailable
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Run serves until ctx is cancelled, then drains in flight requests
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.cfg.HTTP.Address, "environment", s.cfg.Environment)
		errCh <- s.app.Listen(s.cfg.HTTP.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}
