package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal counts Register calls by outcome (ok, error).
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brongnal_registrations_total",
			Help: "Total number of user registration attempts by outcome",
		},
		[]string{"result"},
	)

	// OneTimeKeysPublishedTotal counts one-time prekeys accepted into a
	// user's pool, batched per call to PublishOneTimeKeys.
	OneTimeKeysPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brongnal_one_time_keys_published_total",
			Help: "Total number of one-time prekeys accepted into directory pools",
		},
	)

	// OneTimeKeysRemaining tracks the last known pool depth per identity,
	// sampled after every successful RequestPreKeys call.
	OneTimeKeysRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brongnal_one_time_keys_remaining",
			Help: "Approximate number of unused one-time prekeys for an identity",
		},
		[]string{"identity"},
	)

	// PreKeyBundlesServedTotal counts RequestPreKeys calls, split by
	// whether a one-time key was available to attach.
	PreKeyBundlesServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brongnal_prekey_bundles_served_total",
			Help: "Total number of prekey bundles served, by one-time-key availability",
		},
		[]string{"one_time_key"},
	)

	// MessagesQueuedTotal counts SendMessage calls that reached the queue.
	MessagesQueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brongnal_messages_queued_total",
			Help: "Total number of initial messages accepted into the queue",
		},
	)

	// MessagesDeliveredTotal counts initial messages handed back by
	// RetrieveMessages.
	MessagesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brongnal_messages_delivered_total",
			Help: "Total number of initial messages delivered to a recipient",
		},
	)

	// QueueDepth is the last observed queue length for an identity,
	// sampled on RetrieveMessages.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "brongnal_queue_depth",
			Help: "Number of queued initial messages last observed for an identity",
		},
		[]string{"identity"},
	)

	// HTTPRequestsTotal counts handled requests by route, method, and
	// response status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brongnal_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration measures handler latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brongnal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
