package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	activitiesPublished  *prometheus.CounterVec
	attachmentUploads    *prometheus.CounterVec
	attachmentRejected   *prometheus.CounterVec
	attachmentCleanup    *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram
	ambienteResolutions  *prometheus.CounterVec
	activityFeedRequests *prometheus.CounterVec
	activityFeedLatency  prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		activitiesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_activities_published_total",
			Help: "Activities published per ambiente.",
		}, []string{"ambiente"})

		attachmentUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_attachment_uploads_total",
			Help: "Attachment uploads by outcome.",
		}, []string{"outcome"})

		attachmentRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_attachment_rejected_total",
			Help: "Attachments rejected during validation by reason.",
		}, []string{"reason"})

		attachmentCleanup = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_attachment_cleanup_total",
			Help: "Attachment deletions by outcome.",
		}, []string{"outcome"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_attachment_upload_seconds",
			Help:    "Latency of a single attachment upload.",
			Buckets: prometheus.DefBuckets,
		})

		ambienteResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_ambiente_resolutions_total",
			Help: "Family ambiente resolutions by the lookup that answered.",
		}, []string{"path"})

		activityFeedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_activity_feed_requests_total",
			Help: "Activity feed reads by cache status.",
		}, []string{"status"})

		activityFeedLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_activity_feed_seconds",
			Help:    "Latency of activity feed reads.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			activitiesPublished,
			attachmentUploads,
			attachmentRejected,
			attachmentCleanup,
			uploadLatencySeconds,
			ambienteResolutions,
			activityFeedRequests,
			activityFeedLatency,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ActivitiesPublished counts created activities per ambiente.
func ActivitiesPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return activitiesPublished
}

// AttachmentUploads counts uploads by outcome (stored, failed, rolled_back).
func AttachmentUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentUploads
}

// AttachmentRejected counts validation rejections by reason.
func AttachmentRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentRejected
}

// AttachmentCleanup counts storage deletions by outcome.
func AttachmentCleanup() *prometheus.CounterVec {
	RegisterMetrics()
	return attachmentCleanup
}

// UploadLatency exposes the per-upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// AmbienteResolutions counts which lookup resolved a family's ambientes.
func AmbienteResolutions() *prometheus.CounterVec {
	RegisterMetrics()
	return ambienteResolutions
}

// ActivityFeedRequests counts feed reads by cache status.
func ActivityFeedRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return activityFeedRequests
}

// ActivityFeedLatency exposes the feed latency histogram.
func ActivityFeedLatency() prometheus.Histogram {
	RegisterMetrics()
	return activityFeedLatency
}
