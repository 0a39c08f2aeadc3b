package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(creditRefundsTotal, creditRefundedAmount) }

var (
	creditRefundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_refunds_total",
			Help: "Refund attempts for failed or cancelled jobs, by result.",
		},
		[]string{"result"}, // 'refunded', 'duplicate', 'error'
	)

	creditRefundedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_refunded_amount_total",
			Help: "Credits returned to accounts by the reconciler.",
		},
	)
)

func IncRefund(result string) {
	creditRefundsTotal.WithLabelValues(norm(result)).Inc()
}

func AddRefundedCredits(n int) {
	if n > 0 {
		creditRefundedAmount.Add(float64(n))
	}
}
