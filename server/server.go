// Package server exposes a running deployment's progress over HTTP so it can
// be watched when the deployer runs as a cluster Job.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/padminisys/awx-deployer/deploy"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog"
)

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	UptimeSeconds int    `json:"uptime_seconds"`
	Step          string `json:"step,omitempty"`
}

type StatusResponse struct {
	Steps []deploy.StepRecord `json:"steps"`
}

func Healthz(version, commit string, progress *deploy.Progress) echo.HandlerFunc {
	startTime := time.Now()

	return func(c *echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:        "ok",
			Version:       version,
			Commit:        commit,
			UptimeSeconds: int(time.Since(startTime).Seconds()),
			Step:          progress.Current(),
		})
	}
}

func Status(progress *deploy.Progress) echo.HandlerFunc {
	return func(c *echo.Context) error {
		return c.JSON(http.StatusOK, StatusResponse{Steps: progress.Snapshot()})
	}
}

type Server struct {
	addr string
	echo *echo.Echo
	log  zerolog.Logger
}

func New(addr, version, commit string, progress *deploy.Progress, log zerolog.Logger) *Server {
	e := echo.New()
	e.Use(RequestMetrics(progress, log))

	e.GET("/healthz", Healthz(version, commit, progress))
	e.GET("/status", Status(progress))
	e.GET("/metrics", MetricsHandler())

	return &Server{addr: addr, echo: e, log: log}
}

func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", s.addr).Msg("status server listening")

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
