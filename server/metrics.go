package server

import (
	"strconv"

	"github.com/padminisys/awx-deployer/deploy"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const stepIdle = "idle"

// statusRequestsTotal counts status server hits by the deployment step that
// was running when they arrived, so watchers polling a stuck step show up.
var statusRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "awx_deployer",
	Subsystem: "status_server",
	Name:      "requests_total",
	Help:      "Total status server requests by path, status code, and running deployment step.",
}, []string{"path", "code", "step"})

func init() {
	prometheus.MustRegister(statusRequestsTotal)
}

func MetricsHandler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c *echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

func stepLabel(progress *deploy.Progress) string {
	if step := progress.Current(); step != "" {
		return step
	}
	return stepIdle
}

// RequestMetrics records each request against the current deployment step.
func RequestMetrics(progress *deploy.Progress, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			step := stepLabel(progress)
			err := next(c)

			path := c.RouteInfo().Path
			code := strconv.Itoa(c.Response().(*echo.Response).Status)
			statusRequestsTotal.WithLabelValues(path, code, step).Inc()

			log.Trace().Str("path", path).Str("code", code).Str("step", step).Msg("status request")
			return err
		}
	}
}
