package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
)

// Liveness and metrics HTTP server, run alongside the gateway session.
type Server struct {
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func NewServer(logger *slog.Logger, bind string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()

	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		echo:   e,
		logger: logger.With("system", "http"),
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.HidePort = true
	e.Use(slogecho.New(srv.logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("sieve"))

	e.GET("/", srv.HandleHome)
	e.GET("/_health", srv.HandleHealthCheck)
	e.GET("/metrics", echoprometheus.NewHandler())

	return srv
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

// Blocks until the server is shut down. A clean shutdown returns nil.
func (srv *Server) Run() error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	if err := srv.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (srv *Server) Shutdown(ctx context.Context) error {
	srv.logger.Info("shutting down")
	return srv.httpd.Shutdown(ctx)
}

func (srv *Server) HandleHome(c echo.Context) error {
	return c.String(http.StatusOK, "Bot is online!")
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "sieve"})
}
