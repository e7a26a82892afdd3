package shop

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatusSuccess labels a command that completed without error.
const StatusSuccess = "success"

// CommandExecutions counts command executions by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shopkeeper_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"command", "status"},
)

// CommandDuration is the histogram for command execution duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "shopkeeper_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// RegisterMetrics registers shop metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
}

func recordExecution(command string, err error, elapsed time.Duration) {
	status := StatusSuccess
	if err != nil {
		status = strings.ToLower(Code(err))
		if status == "" {
			status = "error"
		}
	}
	CommandExecutions.WithLabelValues(command, status).Inc()
	CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}
