package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of applied order status transitions",
	}, []string{"to"})

	OrderTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_rejected_total",
		Help: "Total number of rejected order status transitions",
	}, []string{"reason"})

	ShipmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_created_total",
		Help: "Total number of forward shipments registered with the provider",
	})

	ShipmentRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_refresh_total",
		Help: "Total number of shipment status refresh attempts",
	}, []string{"result"})

	ReturnsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "return_requests_created_total",
		Help: "Total number of return requests created",
	})

	ReturnsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "return_requests_rejected_total",
		Help: "Total number of return requests rejected by policy",
	}, []string{"reason"})

	ReturnTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "return_status_transitions_total",
		Help: "Total number of applied return status transitions",
	}, []string{"to"})

	ReversePickupsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reverse_pickups_created_total",
		Help: "Total number of reverse pickups registered with the provider",
	})

	ReversePickupFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reverse_pickup_failures_total",
		Help: "Total number of reverse pickup creation failures",
	}, []string{"kind"})

	ReversePickupSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reverse_pickup_skipped_total",
		Help: "Total number of reverse pickup creations skipped by the idempotency guard",
	})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shipping_provider_request_duration_seconds",
		Help:    "Latency of shipping provider API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ProviderRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_provider_retries_total",
		Help: "Total number of retried shipping provider calls",
	}, []string{"operation"})

	ProviderAuthRefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipping_provider_auth_refresh_total",
		Help: "Total number of shipping provider token refreshes",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
