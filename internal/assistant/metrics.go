package assistant

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the chat assistant.
type Metrics struct {
	ChatsTotal      *prometheus.CounterVec
	ChatDuration    *prometheus.HistogramVec
	ChatToolCalls   prometheus.Histogram
	LLMCallsTotal   prometheus.Counter
	LLMTokensIn     prometheus.Counter
	LLMTokensOut    prometheus.Counter
	LLMDuration     prometheus.Histogram
	ToolCallsTotal  *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	ToolOutputBytes *prometheus.HistogramVec
}

// NewMetrics registers and returns assistant metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChatsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagedesk_chats_total",
			Help: "Total chat exchanges by final status.",
		}, []string{"status"}),
		ChatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triagedesk_chat_duration_seconds",
			Help:    "End-to-end chat exchange duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"status", "model"}),
		ChatToolCalls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triagedesk_chat_tool_calls",
			Help:    "Tool calls per chat exchange.",
			Buckets: prometheus.LinearBuckets(0, 1, MaxToolRounds+1),
		}),
		LLMCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagedesk_llm_calls_total",
			Help: "Total LLM provider calls.",
		}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagedesk_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triagedesk_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triagedesk_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triagedesk_tool_calls_total",
			Help: "Total tool executions by tool name and status.",
		}, []string{"tool", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triagedesk_tool_duration_seconds",
			Help:    "Duration of tool executions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
		}, []string{"tool"}),
		ToolOutputBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triagedesk_tool_output_bytes",
			Help:    "Size of tool output in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B .. ~1MB
		}, []string{"tool"}),
	}

	reg.MustRegister(
		m.ChatsTotal,
		m.ChatDuration,
		m.ChatToolCalls,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
		m.ToolCallsTotal,
		m.ToolDuration,
		m.ToolOutputBytes,
	)

	return m
}

// Hooks returns engine hooks that record into m.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnLLMCall: func(inputTokens, outputTokens int, duration float64) {
			m.LLMCallsTotal.Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.Observe(duration)
		},
		OnToolCall: func(name string, duration float64, _, outputBytes int, isError bool) {
			status := "success"
			if isError {
				status = "error"
			}
			m.ToolCallsTotal.WithLabelValues(name, status).Inc()
			m.ToolDuration.WithLabelValues(name).Observe(duration)
			m.ToolOutputBytes.WithLabelValues(name).Observe(float64(outputBytes))
		},
		OnComplete: func(e *CompleteEvent) {
			m.ChatsTotal.WithLabelValues(string(e.Status)).Inc()
			m.ChatDuration.WithLabelValues(string(e.Status), e.Model).Observe(e.Duration)
			m.ChatToolCalls.Observe(float64(e.ToolCalls))
		},
	}
}
