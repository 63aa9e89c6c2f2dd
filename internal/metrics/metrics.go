// Package metrics 暴露 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector 聚合检索、网络搜索和模型调用的指标。
type Collector struct {
	RetrievalTotal    *prometheus.CounterVec
	RetrievalDuration prometheus.Histogram
	CandidatesPerCall prometheus.Histogram

	WebSearchTotal *prometheus.CounterVec

	ChatTotal    *prometheus.CounterVec
	ChatDuration prometheus.Histogram
	TokensTotal  *prometheus.CounterVec
}

// NewCollector 创建并注册所有指标。registry 为 nil 时使用默认注册表。
func NewCollector(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	c := &Collector{
		RetrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "retrieval",
			Name:      "total",
			Help:      "Hybrid retrieval calls by outcome.",
		}, []string{"outcome"}), // ok / degraded

		RetrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatbot",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Hybrid retrieval latency.",
			Buckets:   prometheus.DefBuckets,
		}),

		CandidatesPerCall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatbot",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Candidates produced per retrieval call.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),

		WebSearchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "websearch",
			Name:      "total",
			Help:      "Web searches by trigger reason.",
		}, []string{"reason"}), // keyword / low_confidence / skipped

		ChatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "total",
			Help:      "Chat requests by outcome.",
		}, []string{"outcome"}), // completed / degraded / errored

		ChatDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatbot",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "End-to-end chat latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatbot",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Model tokens consumed.",
		}, []string{"kind"}), // prompt / completion
	}

	registry.MustRegister(
		c.RetrievalTotal,
		c.RetrievalDuration,
		c.CandidatesPerCall,
		c.WebSearchTotal,
		c.ChatTotal,
		c.ChatDuration,
		c.TokensTotal,
	)
	return c
}
