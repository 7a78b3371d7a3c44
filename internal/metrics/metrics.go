// Package metrics exposes Prometheus instrumentation for tool dispatch.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ToolCallsTotal counts tool invocations by tool name and outcome
	// ("success", "error", "denied", "unknown").
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxmox_mcp_tool_calls_total",
			Help: "Total number of MCP tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	// ToolCallDuration observes end-to-end tool execution time.
	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxmox_mcp_tool_call_duration_seconds",
			Help:    "Duration of MCP tool executions",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)

	// PermissionDeniedTotal counts elevated tools refused by the gate.
	PermissionDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxmox_mcp_permission_denied_total",
			Help: "Total number of tool calls refused by the permission gate",
		},
	)
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
