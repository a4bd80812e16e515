package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/go-core/log"

	"github.com/medcognis/triagedesk/internal/tools"
)

const claudeTestModel = "claude-sonnet-4-20250514"

// mockProvider returns preconfigured responses in sequence and records
// every request.
type mockProvider struct {
	mu        sync.Mutex
	responses []*LLMResponse
	errs      []error
	callIdx   int
	requests  []*LLMRequest
}

func (m *mockProvider) Send(_ context.Context, req *LLMRequest) (*LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.callIdx
	m.callIdx++
	m.requests = append(m.requests, req)

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	// fallback: end turn
	return &LLMResponse{
		Content:    []ContentBlock{{Type: "text", Text: "fallback"}},
		StopReason: StopEnd,
		Usage:      Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

// mockTool returns preconfigured Execute results.
type mockTool struct {
	name   string
	output json.RawMessage
	err    error
}

func (m *mockTool) Name() string                { return m.name }
func (m *mockTool) Description() string         { return "mock tool" }
func (m *mockTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (m *mockTool) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return m.output, m.err
}

func toolUse(id, name string) *LLMResponse {
	return &LLMResponse{
		Content:    []ContentBlock{{Type: "tool_use", ID: id, Name: name, Input: json.RawMessage(`{"q":"x"}`)}},
		StopReason: StopToolUse,
		Usage:      Usage{InputTokens: 100, OutputTokens: 50},
		Model:      claudeTestModel,
	}
}

func endTurn(text string) *LLMResponse {
	return &LLMResponse{
		Content:    []ContentBlock{{Type: "text", Text: text}},
		StopReason: StopEnd,
		Usage:      Usage{InputTokens: 200, OutputTokens: 80},
		Model:      claudeTestModel,
	}
}

func TestChat_SingleTurn(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{responses: []*LLMResponse{endTurn("1. Reassess vitals")}}
	engine := NewEngine(provider, nil, log.Nop(), Hooks{})

	reply, err := engine.Chat(context.Background(), "who is most urgent?", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Status != StatusComplete {
		t.Errorf("status = %q, want %q", reply.Status, StatusComplete)
	}
	if reply.Text != "1. Reassess vitals" {
		t.Errorf("text = %q", reply.Text)
	}
	if reply.InputTokens != 200 || reply.OutputTokens != 80 {
		t.Errorf("tokens = %d/%d, want 200/80", reply.InputTokens, reply.OutputTokens)
	}
	if reply.Model != claudeTestModel {
		t.Errorf("model = %q, want %q", reply.Model, claudeTestModel)
	}

	req := provider.requests[0]
	if req.System == "" {
		t.Error("expected non-empty system prompt")
	}
	if req.MaxTokens != ResponseTokens {
		t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, ResponseTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("messages = %+v, want one user message", req.Messages)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&mockProvider{}, nil, log.Nop(), Hooks{})
	if _, err := engine.Chat(context.Background(), "", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestChat_ToolRoundTrip(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{name: "list_patients", output: json.RawMessage(`{"total":5}`)})

	provider := &mockProvider{responses: []*LLMResponse{
		toolUse("c-1", "list_patients"),
		endTurn("Five patients are waiting."),
	}}
	engine := NewEngine(provider, registry, log.Nop(), Hooks{})

	reply, err := engine.Chat(context.Background(), "how many patients?", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.ToolCalls != 1 {
		t.Errorf("ToolCalls = %d, want 1", reply.ToolCalls)
	}
	if reply.InputTokens != 300 || reply.OutputTokens != 130 {
		t.Errorf("tokens = %d/%d, want 300/130", reply.InputTokens, reply.OutputTokens)
	}

	second := provider.requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("second request messages = %d, want 3", len(second.Messages))
	}
	result := second.Messages[2].Content[0]
	if result.Type != "tool_result" || result.ToolUseID != "c-1" || result.Content != `{"total":5}` {
		t.Errorf("tool result = %+v", result)
	}
	if result.IsError {
		t.Error("expected successful tool result")
	}
	if len(second.Tools) != 1 || second.Tools[0].Name != "list_patients" {
		t.Errorf("tools = %+v", second.Tools)
	}
}

func TestChat_ToolErrors(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{name: "get_patient", err: errors.New("patient P-9 not found")})

	provider := &mockProvider{responses: []*LLMResponse{
		{
			Content: []ContentBlock{
				{Type: "text", Text: "checking"},
				{Type: "tool_use", ID: "c-1", Name: "get_patient", Input: json.RawMessage(`{}`)},
				{Type: "tool_use", ID: "c-2", Name: "no_such_tool", Input: json.RawMessage(`{}`)},
			},
			StopReason: StopToolUse,
		},
		endTurn("done"),
	}}
	engine := NewEngine(provider, registry, log.Nop(), Hooks{})

	reply, err := engine.Chat(context.Background(), "look up P-9", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.ToolCalls != 2 {
		t.Errorf("ToolCalls = %d, want 2", reply.ToolCalls)
	}

	results := provider.requests[1].Messages[2].Content
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !results[0].IsError || !strings.Contains(results[0].Content, "not found") {
		t.Errorf("result[0] = %+v", results[0])
	}
	if !results[1].IsError || results[1].Content != "unknown tool: no_such_tool" {
		t.Errorf("result[1] = %+v", results[1])
	}
}

func TestChat_ProviderError(t *testing.T) {
	t.Parallel()

	var completed *CompleteEvent
	provider := &mockProvider{errs: []error{errors.New("overloaded")}}
	engine := NewEngine(provider, nil, log.Nop(), Hooks{
		OnComplete: func(e *CompleteEvent) { completed = e },
	})

	reply, err := engine.Chat(context.Background(), "hi", nil)
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("err = %v, want provider error", err)
	}
	if reply == nil || reply.Status != StatusFailed {
		t.Errorf("reply = %+v, want failed status", reply)
	}
	if completed == nil || completed.Status != StatusFailed {
		t.Errorf("OnComplete event = %+v", completed)
	}
}

func TestChat_ToolBudget(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{name: "list_patients", output: json.RawMessage(`{}`)})

	responses := make([]*LLMResponse, 0, MaxToolRounds+1)
	for range MaxToolRounds + 1 {
		responses = append(responses, toolUse("c", "list_patients"))
	}
	provider := &mockProvider{responses: responses}
	engine := NewEngine(provider, registry, log.Nop(), Hooks{})

	reply, err := engine.Chat(context.Background(), "loop", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Status != StatusBudget {
		t.Errorf("status = %q, want %q", reply.Status, StatusBudget)
	}
	if reply.ToolCalls != MaxToolRounds {
		t.Errorf("ToolCalls = %d, want %d", reply.ToolCalls, MaxToolRounds)
	}
	if !strings.Contains(reply.Text, "tool call budget") {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestChat_TokenBudget(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{name: "list_patients", output: json.RawMessage(`{}`)})

	big := toolUse("c", "list_patients")
	big.Usage = Usage{InputTokens: MaxTokens, OutputTokens: 1}
	provider := &mockProvider{responses: []*LLMResponse{big}}
	engine := NewEngine(provider, registry, log.Nop(), Hooks{})

	reply, err := engine.Chat(context.Background(), "expensive", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Status != StatusBudget || !strings.Contains(reply.Text, "token budget") {
		t.Errorf("status/text = %q/%q", reply.Status, reply.Text)
	}
	if provider.callIdx != 1 {
		t.Errorf("provider calls = %d, want 1", provider.callIdx)
	}
}

func TestBuildMessages(t *testing.T) {
	t.Parallel()

	history := []Turn{
		{Role: "assistant", Text: "welcome"},
		{Role: "user", Text: "first"},
		{Role: "system", Text: "ignored"},
		{Role: "assistant", Text: ""},
		{Role: "assistant", Text: "answer"},
	}
	msgs := buildMessages("next", history)

	var got []string
	for _, m := range msgs {
		got = append(got, m.Role+":"+m.Content[0].Text)
	}
	want := []string{"user:first", "assistant:answer", "user:next"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("messages = %v, want %v", got, want)
	}
}

func TestBuildMessages_HistoryCapped(t *testing.T) {
	t.Parallel()

	var history []Turn
	for i := range MaxHistoryTurns * 2 {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, Turn{Role: role, Text: "t"})
	}
	msgs := buildMessages("now", history)
	if len(msgs) > MaxHistoryTurns+1 {
		t.Errorf("len = %d, want at most %d", len(msgs), MaxHistoryTurns+1)
	}
	if msgs[0].Role != "user" {
		t.Errorf("first role = %q, want user", msgs[0].Role)
	}
}

func TestChat_MetricsHooks(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	registry := tools.NewRegistry()
	registry.Register(&mockTool{name: "assess_risk", output: json.RawMessage(`{"riskScore":70}`)})
	provider := &mockProvider{responses: []*LLMResponse{toolUse("c-1", "assess_risk"), endTurn("ok")}}
	engine := NewEngine(provider, registry, log.Nop(), m.Hooks())

	if _, err := engine.Chat(context.Background(), "score this", nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if got := testutil.ToFloat64(m.LLMCallsTotal); got != 2 {
		t.Errorf("llm calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LLMTokensIn); got != 300 {
		t.Errorf("tokens in = %v, want 300", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("assess_risk", "success")); got != 1 {
		t.Errorf("tool calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ChatsTotal.WithLabelValues("complete")); got != 1 {
		t.Errorf("chats complete = %v, want 1", got)
	}
}

func TestChat_CreatesSpans(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	registry := tools.NewRegistry()
	registry.Register(&mockTool{name: "span_tool", output: json.RawMessage(`{"ok":true}`)})
	provider := &mockProvider{responses: []*LLMResponse{toolUse("c-1", "span_tool"), endTurn("done")}}
	engine := NewEngine(provider, registry, log.Nop(), Hooks{})

	if _, err := engine.Chat(context.Background(), "go", nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	counts := make(map[string]int)
	for _, s := range exporter.GetSpans() {
		counts[s.Name]++
	}
	if counts["assistant.chat"] != 1 {
		t.Errorf("assistant.chat spans = %d, want 1", counts["assistant.chat"])
	}
	if counts["llm.call"] != 2 {
		t.Errorf("llm.call spans = %d, want 2", counts["llm.call"])
	}
	if counts["tool.execute"] != 1 {
		t.Errorf("tool.execute spans = %d, want 1", counts["tool.execute"])
	}

	for _, s := range exporter.GetSpans() {
		if s.Name != "tool.execute" {
			continue
		}
		attrs := make(map[string]any)
		for _, a := range s.Attributes {
			attrs[string(a.Key)] = a.Value.AsInterface()
		}
		if v := attrs["gen_ai.tool.name"]; v != "span_tool" {
			t.Errorf("gen_ai.tool.name = %v, want span_tool", v)
		}
		if v := attrs["triagedesk.tool.is_error"]; v != false {
			t.Errorf("triagedesk.tool.is_error = %v, want false", v)
		}

		events := make(map[string]map[string]string)
		for _, ev := range s.Events {
			evAttrs := make(map[string]string)
			for _, a := range ev.Attributes {
				evAttrs[string(a.Key)] = a.Value.AsString()
			}
			events[ev.Name] = evAttrs
		}
		if events["tool.request"]["tool.request.body"] != `{"q":"x"}` {
			t.Errorf("tool.request body = %q", events["tool.request"]["tool.request.body"])
		}
		if events["tool.result"]["tool.result.body"] != `{"ok":true}` {
			t.Errorf("tool.result body = %q", events["tool.result"]["tool.result.body"])
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short"); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("a", maxEventBody+10)
	if got := truncate(long); len(got) != maxEventBody+len("...(truncated)") {
		t.Errorf("len = %d", len(got))
	}
}
