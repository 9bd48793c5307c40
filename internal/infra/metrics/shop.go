package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(shopCallsLatencyMs, shopErrorsTotal)
}

var (
	shopCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_calls_latency_ms",
			Help:    "Commerce API call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"op", "success"},
	)

	shopErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_errors_total",
			Help: "Failed commerce API calls, by operation.",
		},
		[]string{"op"},
	)
)

func ObserveShopCall(op string, latencyMs int64, success bool) {
	shopCallsLatencyMs.WithLabelValues(norm(op), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
	if !success {
		shopErrorsTotal.WithLabelValues(norm(op)).Inc()
	}
}
