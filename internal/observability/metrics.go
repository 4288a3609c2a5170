package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extraction metrics
	extractionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docspeech_extraction_requests_total",
		Help: "Total number of artifact extractions",
	}, []string{"kind", "status"})

	extractedSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docspeech_extracted_segments_total",
		Help: "Total number of text segments produced by extraction",
	})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docspeech_synthesis_requests_total",
		Help: "Total number of per-chunk synthesis calls",
	}, []string{"provider", "status"})

	synthesisLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docspeech_synthesis_latency_seconds",
		Help:    "Latency of per-chunk synthesis calls in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"provider"})

	charactersSynthesized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docspeech_characters_synthesized_total",
		Help: "Total characters sent to TTS providers",
	}, []string{"provider"})

	fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docspeech_fallbacks_total",
		Help: "Total chunk synthesis attempts rerouted to the fallback provider",
	}, []string{"from", "to"})

	audioBytesProduced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docspeech_audio_bytes_total",
		Help: "Total synthesized audio bytes produced",
	})

	// Delivery metrics
	deliveryUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docspeech_delivery_units_total",
		Help: "Total delivery units emitted",
	}, []string{"path"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docspeech_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"provider"})
)

// RecordExtraction records the outcome of one artifact extraction
func RecordExtraction(kind string, success bool, segments int) {
	status := "success"
	if !success {
		status = "error"
	}
	extractionRequests.WithLabelValues(kind, status).Inc()
	if segments > 0 {
		extractedSegments.Add(float64(segments))
	}
}

// RecordSynthesis records one per-chunk provider call
func RecordSynthesis(provider string, start time.Time, characters int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	synthesisRequests.WithLabelValues(provider, status).Inc()
	synthesisLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err == nil {
		charactersSynthesized.WithLabelValues(provider).Add(float64(characters))
	}
}

// RecordFallback records a chunk rerouted from one provider to another
func RecordFallback(from, to string) {
	fallbacks.WithLabelValues(from, to).Inc()
}

// RecordAudioBytes records synthesized audio bytes produced
func RecordAudioBytes(n int) {
	audioBytesProduced.Add(float64(n))
}

// RecordDeliveryUnit records an emitted delivery unit by transport path
func RecordDeliveryUnit(path string) {
	deliveryUnits.WithLabelValues(path).Inc()
}

// UpdateCircuitBreakerState updates the breaker state gauge for a provider
func UpdateCircuitBreakerState(provider string, state int) {
	circuitBreakerState.WithLabelValues(provider).Set(float64(state))
}
