// Package slack posts high-risk admissions to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/go-core/log"

	"github.com/medcognis/triagedesk/internal/triage"
)

const (
	maxSectionLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier sends patient alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Name identifies the notifier in logs and metrics.
func (n *Notifier) Name() string { return "slack" }

// Send posts a patient to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, p *triage.Patient) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(p))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "patient_id", p.ID, "risk_level", p.RiskLevel)
	return nil
}

func buildMessage(p *triage.Patient) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(p),
			{"type": "divider"},
			fieldsBlock(p),
			{"type": "divider"},
			reasonsBlock(p),
			{"type": "divider"},
			contextBlock(p),
		},
	}
}

func headerBlock(p *triage.Patient) map[string]any {
	text := fmt.Sprintf("%s %s risk: %s (%s)", levelEmoji(p.RiskLevel), p.RiskLevel, p.Name, p.ID)
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": truncate(text, 150),
		},
	}
}

func fieldsBlock(p *triage.Patient) map[string]any {
	score := strconv.Itoa(p.RiskScore)
	if p.Overridden {
		score += " (level set by upload)"
	}
	fields := []map[string]any{
		{"type": "mrkdwn", "text": "*Score:* " + score},
		{"type": "mrkdwn", "text": "*Department:* " + p.Department},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Age / Gender:* %d / %s", p.Age, p.Gender)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Heart rate:* %d bpm", p.Vitals.HeartRate)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*SpO2:* %d%%", p.Vitals.SpO2)},
		{"type": "mrkdwn", "text": "*Temp / BP:* " + strconv.FormatFloat(p.Vitals.Temperature, 'f', -1, 64) + "°C / " + p.Vitals.BloodPressure},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func reasonsBlock(p *triage.Patient) map[string]any {
	var b strings.Builder
	b.WriteString("*Why*\n")
	if len(p.Justification) == 0 {
		b.WriteString("_No rule fired._\n")
	}
	for _, j := range p.Justification {
		b.WriteString("• " + j + "\n")
	}
	if p.PredictedDisease != "" {
		fmt.Fprintf(&b, "\n*Suggested:* %s, see %s\n", p.PredictedDisease, p.RecommendedSpecialist)
	}
	for i, step := range p.CuringProcess {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(b.String(), maxSectionLen),
		},
	}
}

func contextBlock(p *triage.Patient) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("triagedesk • patient %s • admitted %s", p.ID, p.AdmittedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func levelEmoji(level triage.RiskLevel) string {
	switch level {
	case triage.RiskHigh:
		return "\U0001f534" // red circle
	case triage.RiskMedium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
