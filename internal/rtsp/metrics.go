package rtsp

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "requests_sent",
		Namespace: "rtsp_control",
		Help:      "number of requests written to the control connection",
	}, []string{"method"})
	responsesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "responses_received",
		Namespace: "rtsp_control",
		Help:      "number of responses matched to a pending transaction",
	}, []string{"code"})
	responsesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "responses_discarded",
		Namespace: "rtsp_control",
		Help:      "number of inbound messages dropped without resolving a transaction",
	}, []string{"reason"})
	transactionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "transactions_rejected",
		Namespace: "rtsp_control",
		Help:      "number of transactions failed without a response",
	}, []string{"reason"})
	transactionsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "transactions_pending",
		Namespace: "rtsp_control",
		Help:      "number of transactions awaiting a response",
	})
	roundTripSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "round_trip_seconds",
		Namespace: "rtsp_control",
		Help:      "time between a request being written and its response arriving",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"method"})
)

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrClientDestroyed):
		return "destroyed"
	case errors.Is(err, ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "write_failed"
	}
}
