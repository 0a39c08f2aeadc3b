package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(gatewayLatencyMs, gatewayTokens)
}

var (
	gatewayLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translation_gateway_latency_ms",
			Help:    "Translation gateway call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		},
		[]string{"provider", "success"},
	)

	gatewayTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_gateway_tokens_total",
			Help: "Tokens sent to and received from LLM-backed gateways.",
		},
		[]string{"provider", "direction"}, // 'in', 'out'
	)
)

func ObserveGatewayCall(provider string, latencyMs int64, success bool) {
	gatewayLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddGatewayTokens(provider string, in, out int) {
	gatewayTokens.WithLabelValues(norm(provider), "in").Add(float64(in))
	gatewayTokens.WithLabelValues(norm(provider), "out").Add(float64(out))
}
