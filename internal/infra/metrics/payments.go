package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		checkoutsTotal,
		pollsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment attempts by terminal status (success/failed/expired/cancelled).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkout requests by outcome (initiated/reused/already_paid/rejected/locked).",
		},
		[]string{"outcome"},
	)

	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_polls_total",
			Help: "Status poll requests by reported status.",
		},
		[]string{"status"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amountCents int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountCents))
}

func IncCheckout(outcome string) {
	checkoutsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncPoll(status string) {
	pollsTotal.WithLabelValues(norm(status)).Inc()
}
