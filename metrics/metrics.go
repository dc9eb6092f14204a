package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CheckoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upjcart",
		Subsystem: "checkout",
		Name:      "submissions_total",
		Help:      "Checkout submissions by outcome.",
	}, []string{"outcome"})

	CheckoutAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "upjcart",
		Subsystem: "checkout",
		Name:      "gross_amount",
		Help:      "Gross amount requested per payment token.",
		Buckets:   []float64{10000, 50000, 100000, 250000, 500000, 1000000, 5000000},
	})

	WebhookNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upjcart",
		Subsystem: "webhook",
		Name:      "notifications_total",
		Help:      "Gateway notifications by transaction status and result.",
	}, []string{"transaction_status", "result"})

	OrdersReaped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upjcart",
		Subsystem: "reaper",
		Name:      "orders_cancelled_total",
		Help:      "Orphaned pending orders cancelled by the reaper.",
	})
)

func init() {
	prometheus.MustRegister(CheckoutsTotal, CheckoutAmount, WebhookNotifications, OrdersReaped)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
