package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the matcher's Prometheus collectors. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	degradedScores     *prometheus.CounterVec
	providerFailures   *prometheus.CounterVec
	ocrPages           *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	chatReplies        *prometheus.CounterVec
}

func New() *Recorder {
	registry := prometheus.NewRegistry()

	degradedScores := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvmatcher",
			Name:      "degraded_scores_total",
			Help:      "Match scores that fell back to 0.0 instead of being computed.",
		},
		[]string{"reason"},
	)
	providerFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvmatcher",
			Subsystem: "provider",
			Name:      "failures_total",
			Help:      "Failed embedding and generation calls by operation.",
		},
		[]string{"operation"},
	)
	ocrPages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvmatcher",
			Subsystem: "extraction",
			Name:      "ocr_pages_total",
			Help:      "PDF pages sent to OCR by outcome.",
		},
		[]string{"status"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvmatcher",
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Document extraction duration by media type and status.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"media_type", "status"},
	)
	chatReplies := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvmatcher",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Conversation replies by status.",
		},
		[]string{"status"},
	)

	registry.MustRegister(degradedScores, providerFailures, ocrPages, extractionDuration, chatReplies)

	return &Recorder{
		registry:           registry,
		degradedScores:     degradedScores,
		providerFailures:   providerFailures,
		ocrPages:           ocrPages,
		extractionDuration: extractionDuration,
		chatReplies:        chatReplies,
	}
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) DegradedScore(reason string) {
	if r == nil {
		return
	}
	r.degradedScores.WithLabelValues(reason).Inc()
}

func (r *Recorder) ProviderFailure(operation string) {
	if r == nil {
		return
	}
	r.providerFailures.WithLabelValues(operation).Inc()
}

func (r *Recorder) OCRPage(success bool) {
	if r == nil {
		return
	}
	r.ocrPages.WithLabelValues(status(success)).Inc()
}

func (r *Recorder) ObserveExtraction(mediaType string, success bool, started time.Time) {
	if r == nil {
		return
	}
	r.extractionDuration.WithLabelValues(mediaType, status(success)).Observe(time.Since(started).Seconds())
}

func (r *Recorder) ChatReply(success bool) {
	if r == nil {
		return
	}
	r.chatReplies.WithLabelValues(status(success)).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
