package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds the Prometheus collectors for crawling, indexing and chat.
type Metrics struct {
	PagesCrawled     *prometheus.CounterVec
	ChunksEmbedded   prometheus.Counter
	EmbeddingRetries prometheus.Counter
	BatchesUpserted  prometheus.Counter
	ChunkFailures    prometheus.Counter
	Responses        *prometheus.CounterVec
	ResponseDuration prometheus.Histogram
}

// Get returns the process-wide collectors, registering them on first use.
//
// Metrics:
//   - sitechat_pages_crawled_total{status} - pages rendered, status "ok" or "failed"
//   - sitechat_chunks_embedded_total - chunks embedded by the indexer
//   - sitechat_embedding_retries_total - embedding calls retried after a transient error
//   - sitechat_batches_upserted_total - vector batches written
//   - sitechat_chunk_failures_total - chunks skipped after exhausting retries
//   - sitechat_responses_total{status} - answered questions, status "ok" or "error"
//   - sitechat_response_duration_seconds - end-to-end latency of one answer
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{
			PagesCrawled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sitechat_pages_crawled_total",
					Help: "Total number of pages rendered by the crawler",
				},
				[]string{"status"},
			),
			ChunksEmbedded: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sitechat_chunks_embedded_total",
				Help: "Total number of chunks embedded",
			}),
			EmbeddingRetries: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sitechat_embedding_retries_total",
				Help: "Total number of retried embedding calls",
			}),
			BatchesUpserted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sitechat_batches_upserted_total",
				Help: "Total number of vector batches upserted",
			}),
			ChunkFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sitechat_chunk_failures_total",
				Help: "Total number of chunks that could not be embedded",
			}),
			Responses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sitechat_responses_total",
					Help: "Total number of chat responses",
				},
				[]string{"status"},
			),
			ResponseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "sitechat_response_duration_seconds",
				Help:    "Duration of retrieval plus generation in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			}),
		}
	})
	return global
}
