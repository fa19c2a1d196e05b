package deploy

import "github.com/prometheus/client_golang/prometheus"

var (
	stepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awx_deployer",
		Subsystem: "deploy",
		Name:      "steps_total",
		Help:      "Total deployment steps by step name and result.",
	}, []string{"step", "result"})

	stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "awx_deployer",
		Subsystem: "deploy",
		Name:      "step_duration_seconds",
		Help:      "Deployment step duration in seconds.",
		Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600, 1200},
	}, []string{"step"})

	pollChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "awx_deployer",
		Subsystem: "deploy",
		Name:      "poll_checks_total",
		Help:      "Total readiness checks by target and result.",
	}, []string{"target", "result"})
)

func init() {
	prometheus.MustRegister(stepsTotal, stepDuration, pollChecksTotal)
}
