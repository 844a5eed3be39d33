package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	interviewTurnsTotal       *prometheus.CounterVec
	interviewScoreExtractions *prometheus.CounterVec
	interviewCompletedTotal   *prometheus.CounterVec
	interviewAudioResolutions *prometheus.CounterVec

	relayRequestsTotal  *prometheus.CounterVec
	relayLatencySeconds prometheus.Histogram

	uploadRequestsTotal *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	uploadLatency       prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the interview API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		interviewTurnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Interview turns dispatched, by kind, mode and outcome.",
		}, []string{"kind", "mode", "outcome"})

		interviewScoreExtractions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_score_extractions_total",
			Help: "Score extraction results by matching recognizer (\"none\" on a miss).",
		}, []string{"pattern"})

		interviewCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_completed_total",
			Help: "Text interviews reaching the question limit, by verdict.",
		}, []string{"status"})

		interviewAudioResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_audio_resolutions_total",
			Help: "Voice responses by audio resolution strategy (\"none\" when no audio was found).",
		}, []string{"strategy"})

		relayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_audio_relay_requests_total",
			Help: "Audio relay requests by outcome.",
		}, []string{"outcome"})

		relayLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_audio_relay_latency_seconds",
			Help:    "Time to first byte from the audio host.",
			Buckets: prometheus.DefBuckets,
		})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_audio_uploads_total",
			Help: "Stored answer recordings by detected mime type.",
		}, []string{"mime"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_audio_upload_rejected_total",
			Help: "Rejected answer recordings by reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_audio_upload_latency_seconds",
			Help:    "Latency of answer recording uploads.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			interviewTurnsTotal, interviewScoreExtractions, interviewCompletedTotal, interviewAudioResolutions,
			relayRequestsTotal, relayLatencySeconds,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatency,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// InterviewTurns counts dispatched turns.
func InterviewTurns() *prometheus.CounterVec {
	RegisterMetrics()
	return interviewTurnsTotal
}

// ScoreExtractions counts which recognizer matched each text response.
func ScoreExtractions() *prometheus.CounterVec {
	RegisterMetrics()
	return interviewScoreExtractions
}

// InterviewsCompleted counts pass/fail verdicts.
func InterviewsCompleted() *prometheus.CounterVec {
	RegisterMetrics()
	return interviewCompletedTotal
}

// AudioResolutions counts which strategy located audio in voice responses.
func AudioResolutions() *prometheus.CounterVec {
	RegisterMetrics()
	return interviewAudioResolutions
}

// RelayRequests counts audio relay outcomes.
func RelayRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return relayRequestsTotal
}

// RelayLatency exposes the audio relay fetch histogram.
func RelayLatency() prometheus.Histogram {
	RegisterMetrics()
	return relayLatencySeconds
}

// UploadRequests counts stored recordings.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected recordings.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}
