package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "govscan_turn_duration_seconds",
			Help:    "Assistant turn processing duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30},
		},
		[]string{"delivery"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govscan_turns_total",
			Help: "Total assistant turns processed",
		},
		[]string{"status"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govscan_turn_stage_failures_total",
			Help: "Turn failures by pipeline stage",
		},
		[]string{"stage"},
	)

	PassagesRetrieved = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "govscan_passages_retrieved",
			Help:    "Passages returned by semantic search per turn",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 15},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govscan_llm_tokens_used_total",
			Help: "Total LLM tokens used",
		},
		[]string{"type"},
	)

	EmbeddingCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "govscan_embedding_cache_hits_total",
			Help: "Embedding cache hits",
		},
	)

	EmbeddingCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "govscan_embedding_cache_misses_total",
			Help: "Embedding cache misses",
		},
	)

	DocumentsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "govscan_documents_ingested_total",
			Help: "Total documents ingested",
		},
	)
)

func Init() {
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(StageFailures)
	prometheus.MustRegister(PassagesRetrieved)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(EmbeddingCacheHits)
	prometheus.MustRegister(EmbeddingCacheMisses)
	prometheus.MustRegister(DocumentsIngested)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
