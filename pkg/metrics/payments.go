package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics covers checkout outcomes, gateway latency and webhook handling.
type PaymentMetrics struct {
	checkouts *prometheus.CounterVec
	gateway   *prometheus.HistogramVec
	webhooks  *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by payment method type and result.",
	}, []string{"payment_type", "result"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Payment gateway call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_total",
		Help: "Gateway notifications by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkouts, gateway, webhooks)
	return &PaymentMetrics{
		checkouts: checkouts,
		gateway:   gateway,
		webhooks:  webhooks,
	}
}

// IncCheckout counts a checkout attempt.
func (m *PaymentMetrics) IncCheckout(paymentType, result string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(paymentType), normalizeLabel(result)).Inc()
}

// ObserveGateway records one gateway round trip.
func (m *PaymentMetrics) ObserveGateway(operation string, err error, duration time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gateway.WithLabelValues(normalizeLabel(operation), outcome).Observe(duration.Seconds())
}

// IncNotification counts a handled gateway notification.
func (m *PaymentMetrics) IncNotification(outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}
