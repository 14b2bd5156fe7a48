// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ViolationsCreated    prometheus.Counter
	StatusTransitions    *prometheus.CounterVec
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	NotificationsRetried *prometheus.CounterVec
	VerificationCodes    *prometheus.CounterVec
	AttachmentsRejected  prometheus.Counter
	HTTPRequestDuration  *prometheus.HistogramVec
	RateLimitedRequests  prometheus.Counter
}

// New builds a Metrics backed by its own registry.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ViolationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_violations_created_total",
		Help: "Total number of violations reported",
	})
	m.StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_violation_status_transitions_total",
			Help: "Total number of violation status transitions",
		},
		[]string{"to"},
	)
	m.NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_notifications_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"template"},
	)
	m.NotificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_notifications_failed_total",
			Help: "Total number of notifications abandoned after the last attempt",
		},
		[]string{"template"},
	)
	m.NotificationsRetried = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_notifications_retried_total",
			Help: "Total number of notification attempts scheduled for retry",
		},
		[]string{"template"},
	)
	m.VerificationCodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_verification_codes_total",
			Help: "Verification code events by outcome",
		},
		[]string{"outcome"}, // outcome: issued, delivery_failed, verified, rejected
	)
	m.AttachmentsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_attachments_rejected_total",
		Help: "Total number of uploads rejected by content or malware checks",
	})
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)
	m.RateLimitedRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "strata_rate_limited_requests_total",
		Help: "Total number of public requests rejected by the rate limiter",
	})

	for _, collector := range m.collectors() {
		if err := m.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ViolationsCreated,
		m.StatusTransitions,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.NotificationsRetried,
		m.VerificationCodes,
		m.AttachmentsRejected,
		m.HTTPRequestDuration,
		m.RateLimitedRequests,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
