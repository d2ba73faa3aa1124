package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sitescope/sitescope/config"
	"github.com/sitescope/sitescope/internal/agent/core"
	"github.com/sitescope/sitescope/internal/agent/telemetry"
)

// Server exposes the analysis runs over HTTP: start a run, poll its
// status, fetch the finished aggregate. Runs live in the orchestrator's
// memory; the server is stateless beyond it.
type Server struct {
	cfg    *config.Config
	orch   *core.Orchestrator
	tele   *telemetry.Telemetry
	logger *log.Logger
	echo   *echo.Echo
}

// New wires the echo instance, middleware and routes.
func New(cfg *config.Config, orch *core.Orchestrator, tele *telemetry.Telemetry) *Server {
	s := &Server{
		cfg:    cfg,
		orch:   orch,
		tele:   tele,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if tele != nil {
		e.GET("/metrics", echo.WrapHandler(tele.Handler()))
	}

	api := e.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(rateLimitMiddleware(NewLimiter(cfg.RateLimit), s.logger))
	}
	api.POST("/analysis", s.startAnalysis)
	api.GET("/analysis", s.listAnalyses)
	api.GET("/analysis/:id", s.getAnalysis)
	api.GET("/analysis/:id/status", s.getStatus)

	s.echo = e
	return s
}

// Start blocks serving HTTP on the configured address.
func (s *Server) Start() error {
	addr := s.cfg.Server.Address
	if addr == "" {
		addr = ":10030"
	}
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}
