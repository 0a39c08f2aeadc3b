package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		translationJobsTotal,
		translationJobRetries,
		translationQueueDepth,
		translationChunkAttempts,
		chunksSplitMidWord,
	)
}

var (
	translationJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_jobs_total",
			Help: "Translation jobs that reached a terminal state, by kind and status.",
		},
		[]string{"kind", "status"}, // status: 'completed', 'failed', 'cancelled'
	)

	translationJobRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "translation_job_retries_total",
			Help: "Whole-job re-queues after a chunk exhausted its attempts.",
		},
	)

	translationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "translation_queue_depth",
			Help: "Jobs waiting in the queue, excluding the one in flight.",
		},
	)

	translationChunkAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_chunk_attempts_total",
			Help: "Gateway attempts per chunk, by outcome.",
		},
		[]string{"result"}, // 'success', 'rejected', 'timeout', 'error'
	)

	chunksSplitMidWord = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chunks_split_mid_word_total",
			Help: "Chunks whose boundary had to break a single oversized word.",
		},
	)
)

func IncJob(kind, status string) {
	translationJobsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncJobRetry() { translationJobRetries.Inc() }

func SetQueueDepth(n int) { translationQueueDepth.Set(float64(n)) }

func IncChunkAttempt(result string) {
	translationChunkAttempts.WithLabelValues(norm(result)).Inc()
}

func AddMidWordSplits(n int) {
	if n > 0 {
		chunksSplitMidWord.Add(float64(n))
	}
}
