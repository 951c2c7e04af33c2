package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "voicebot_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"path", "status"},
	)

	CallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicebot_calls_total",
			Help: "Total number of media stream sessions started",
		},
	)

	ActiveCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicebot_active_calls",
			Help: "Number of media stream sessions in progress",
		},
	)

	Dialouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicebot_dialouts_total",
			Help: "Outbound call requests by result",
		},
		[]string{"result"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicebot_tool_calls_total",
			Help: "Tool invocations by tool name",
		},
		[]string{"tool"},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicebot_bookings_created_total",
			Help: "Total number of bookings created",
		},
	)

	Interruptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicebot_interruptions_total",
			Help: "Bot replies cut short by caller speech",
		},
	)
)
