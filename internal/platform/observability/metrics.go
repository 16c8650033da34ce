package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_messages_received_total",
		Help: "The total number of chat messages received",
	}, []string{"status"})

	MessagesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_messages_dispatched_total",
		Help: "Rewritten messages handed to the chat, by mode",
	}, []string{"mode"})

	RewriteOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_rewrite_outcomes_total",
		Help: "Final state of each processed message",
	}, []string{"state"})

	LinksRewritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_links_rewritten_total",
		Help: "Links rewritten into affiliate links, by platform",
	}, []string{"platform"})

	LinksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_links_skipped_total",
		Help: "Candidate links left untouched, by platform and reason",
	}, []string{"platform", "reason"})

	AttributionSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_attribution_selections_total",
		Help: "Beneficiaries drawn per domain",
	}, []string{"beneficiary"})

	DiscountRepliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_discount_replies_total",
		Help: "Replies carrying only discount codes",
	})

	ShortURLRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_short_url_requests_total",
		Help: "Short URL resolutions by result",
	}, []string{"result"})

	ShortURLLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "affiliate_short_url_latency_seconds",
		Help:    "Latency of short URL resolution requests",
		Buckets: prometheus.DefBuckets,
	})

	AliExpressRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_aliexpress_requests_total",
		Help: "AliExpress link generation calls by status",
	}, []string{"status"})

	AliExpressLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "affiliate_aliexpress_request_latency_seconds",
		Help:    "Latency of AliExpress link generation calls",
		Buckets: prometheus.DefBuckets,
	})

	AliExpressCircuitBreakerOpens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_aliexpress_circuit_breaker_opens_total",
		Help: "Times the AliExpress circuit breaker opened",
	})

	ConfigReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_config_reloads_total",
		Help: "Beneficiary configuration reloads by status",
	}, []string{"status"})

	ConfigBeneficiaries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "affiliate_config_beneficiaries",
		Help: "Beneficiaries in the published snapshot",
	})

	ConfigDomains = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "affiliate_config_domains",
		Help: "Store domains in the published weight table",
	})

	CreatorFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_creator_fetch_failures_total",
		Help: "Remote creator documents that could not be loaded",
	})
)
