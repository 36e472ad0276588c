// Package metrics holds the Prometheus collectors for the generation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels for GenerationSeconds.
const (
	StageCaption   = "caption"
	StageNarrative = "narrative"
	StageSpeech    = "speech"
)

// Component labels for ModelFallbacks.
const (
	ComponentCaptioner   = "captioner"
	ComponentSynthesizer = "synthesizer"
)

var (
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storylens_uploads_total",
			Help: "Uploads processed, by story type and result",
		},
		[]string{"story_type", "result"},
	)

	GenerationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storylens_generation_seconds",
			Help:    "Time spent in each generation stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ModelFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storylens_model_fallbacks_total",
			Help: "Requests answered by fallback output after a backend error",
		},
		[]string{"component"},
	)

	AudioGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storylens_audio_generations_total",
			Help: "Audio files written, by model",
		},
		[]string{"model"},
	)
)

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	GenerationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Fallback counts one degraded answer from component.
func Fallback(component string) {
	ModelFallbacks.WithLabelValues(component).Inc()
}

// Upload counts one upload outcome.
func Upload(storyType, result string) {
	Uploads.WithLabelValues(storyType, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
