package k8s

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var clusterOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "awx_deployer",
	Subsystem: "cluster",
	Name:      "ops_total",
	Help:      "Total cluster operations by client, operation, and result code.",
}, []string{"client", "operation", "status"})

func init() {
	prometheus.MustRegister(clusterOpsTotal)
}

func observe(client, op string, err error) {
	status := "success"
	if err != nil {
		status = strings.ToLower(string(CodeOf(err)))
	}
	clusterOpsTotal.WithLabelValues(client, op, status).Inc()
}
