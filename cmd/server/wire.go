package main

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/medcognis/triagedesk/internal/assistant"
	vc "github.com/medcognis/triagedesk/internal/cfg"
	"github.com/medcognis/triagedesk/internal/llm/claude"
	"github.com/medcognis/triagedesk/internal/notify/kafkasink"
	"github.com/medcognis/triagedesk/internal/notify/slack"
	"github.com/medcognis/triagedesk/internal/patientapi"
	"github.com/medcognis/triagedesk/internal/tools"
	"github.com/medcognis/triagedesk/internal/triage"
)

// newNotifiers builds the high-risk notifiers enabled in c. The returned
// close func is nil when nothing needs closing.
func newNotifiers(ctx context.Context, c *vc.Config, L log.Logger) ([]triage.Notifier, func() error) {
	var notifiers []triage.Notifier
	var closeFn func() error

	if c.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.New(c.SlackWebhookURL, L))
		L.Info(ctx, "notifier enabled", "type", "slack")
	}
	if brokers := c.Brokers(); len(brokers) > 0 {
		sink := kafkasink.New(brokers, c.KafkaTopic, L)
		notifiers = append(notifiers, sink)
		closeFn = sink.Close
		L.Info(ctx, "notifier enabled", "type", "kafka", "brokers", brokers, "topic", c.KafkaTopic)
	}
	return notifiers, closeFn
}

// newAssistant wires the Claude-backed assistant over the patient tools.
// It returns nil when no API key is configured, which leaves /chat at 503.
func newAssistant(ctx context.Context, c *vc.Config, board tools.Board, L log.Logger, reg prometheus.Registerer) patientapi.Assistant {
	if c.ClaudeAPIKey == "" {
		L.Info(ctx, "assistant disabled (no claude-api-key configured)")
		return nil
	}

	registry := tools.NewRegistry()
	tools.RegisterPatientTools(registry, board)

	provider := claude.New(c.ClaudeAPIKey, c.ClaudeModel)
	L.Info(ctx, "initialized LLM provider",
		"provider", "claude",
		"model", provider.Model(),
		"tools", registry.Len(),
	)

	return assistant.NewEngine(provider, registry, L, assistant.NewMetrics(reg).Hooks())
}
