package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/medcognis/triagedesk/internal/tools"
)

const (
	MaxToolRounds  = 8
	MaxTokens      = 50000
	ResponseTokens = 1024

	// MaxHistoryTurns bounds the prior turns replayed to the model.
	MaxHistoryTurns = 20

	// span event bodies are cut to this many bytes
	maxEventBody = 4096
)

var tracer = otel.Tracer("github.com/medcognis/triagedesk/internal/assistant")

// ErrEmptyMessage is returned when Chat is called without a message.
var ErrEmptyMessage = errors.New("message is required")

// Status is the outcome of one chat exchange.
type Status string

const (
	StatusComplete Status = "complete"
	StatusBudget   Status = "budget_exhausted"
	StatusFailed   Status = "failed"
)

// Turn is a prior exchange supplied by the caller.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Reply is the assistant's answer plus usage accounting.
type Reply struct {
	Text         string  `json:"reply"`
	Status       Status  `json:"status"`
	Model        string  `json:"model,omitempty"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	ToolCalls    int     `json:"tool_calls"`
	Duration     float64 `json:"duration_seconds"`
}

// CompleteEvent is passed to Hooks.OnComplete once per exchange.
type CompleteEvent struct {
	Status    Status
	Model     string
	Duration  float64
	LLMTime   float64
	ToolTime  float64
	TokensIn  int
	TokensOut int
	ToolCalls int
}

// Hooks lets callers observe the loop without the engine depending on a
// metrics backend. Nil fields are skipped.
type Hooks struct {
	OnLLMCall  func(inputTokens, outputTokens int, duration float64)
	OnToolCall func(name string, duration float64, inputBytes, outputBytes int, isError bool)
	OnComplete func(e *CompleteEvent)
}

// Engine runs the tool-using chat loop against a Provider.
type Engine struct {
	provider Provider
	registry *tools.Registry
	logger   log.Logger
	hooks    Hooks
}

// NewEngine creates an engine. A nil registry offers no tools.
func NewEngine(provider Provider, registry *tools.Registry, logger log.Logger, hooks Hooks) *Engine {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		provider: provider,
		registry: registry,
		logger:   logger,
		hooks:    hooks,
	}
}

// buildMessages turns caller history plus the new message into a
// conversation that starts with a user turn. Unknown roles and empty turns
// are dropped.
func buildMessages(message string, history []Turn) []Message {
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	msgs := make([]Message, 0, len(history)+1)
	for _, t := range history {
		if t.Text == "" || (t.Role != "user" && t.Role != "assistant") {
			continue
		}
		if len(msgs) == 0 && t.Role != "user" {
			continue
		}
		msgs = append(msgs, Message{
			Role:    t.Role,
			Content: []ContentBlock{{Type: "text", Text: t.Text}},
		})
	}
	return append(msgs, Message{
		Role:    "user",
		Content: []ContentBlock{{Type: "text", Text: message}},
	})
}

// Chat answers message in the context of history. Tool calls are executed
// in-process until the model ends its turn or a budget runs out. A provider
// failure returns an error together with the partial accounting.
func (e *Engine) Chat(ctx context.Context, message string, history []Turn) (*Reply, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}

	ctx, span := tracer.Start(ctx, "assistant.chat")
	defer span.End()

	start := time.Now()
	reply := &Reply{Status: StatusComplete}
	messages := buildMessages(message, history)
	var llmTime, toolTime float64
	var seq int

	L := e.logger.With("history_turns", len(messages)-1)

	finish := func() {
		reply.Duration = time.Since(start).Seconds()
		span.SetAttributes(
			attribute.String("triagedesk.chat.status", string(reply.Status)),
			attribute.Int("triagedesk.chat.tool_calls", reply.ToolCalls),
			attribute.Int("gen_ai.usage.input_tokens", reply.InputTokens),
			attribute.Int("gen_ai.usage.output_tokens", reply.OutputTokens),
		)
		if e.hooks.OnComplete != nil {
			e.hooks.OnComplete(&CompleteEvent{
				Status:    reply.Status,
				Model:     reply.Model,
				Duration:  reply.Duration,
				LLMTime:   llmTime,
				ToolTime:  toolTime,
				TokensIn:  reply.InputTokens,
				TokensOut: reply.OutputTokens,
				ToolCalls: reply.ToolCalls,
			})
		}
		L.Info(ctx, "chat complete",
			"status", reply.Status,
			"duration", reply.Duration,
			"input_tokens", reply.InputTokens,
			"output_tokens", reply.OutputTokens,
			"tool_calls", reply.ToolCalls,
		)
	}

	for {
		if reply.ToolCalls >= MaxToolRounds {
			L.Warn(ctx, "chat hit tool call limit", "limit", MaxToolRounds)
			reply.Status = StatusBudget
			reply.Text = "I could not finish looking this up: tool call budget exhausted."
			break
		}
		if reply.InputTokens+reply.OutputTokens >= MaxTokens {
			L.Warn(ctx, "chat hit token limit", "limit", MaxTokens)
			reply.Status = StatusBudget
			reply.Text = "I could not finish looking this up: token budget exhausted."
			break
		}

		resp, dur, err := e.call(ctx, seq, &LLMRequest{
			MaxTokens: ResponseTokens,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     e.registry.ToToolDefs(),
		})
		seq++
		llmTime += dur
		if err != nil {
			L.Error(ctx, err, "llm call failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			reply.Status = StatusFailed
			finish()
			return reply, fmt.Errorf("llm call: %w", err)
		}

		reply.InputTokens += resp.Usage.InputTokens
		reply.OutputTokens += resp.Usage.OutputTokens
		if resp.Model != "" {
			reply.Model = resp.Model
		}

		messages = append(messages, Message{Role: "assistant", Content: resp.Content})

		if resp.StopReason != StopToolUse {
			reply.Text = lastText(resp.Content)
			if resp.StopReason == StopMaxTokens {
				L.Warn(ctx, "chat response truncated", "max_tokens", ResponseTokens)
			}
			break
		}

		var results []ContentBlock
		for _, block := range resp.Content {
			if block.Type != "tool_use" {
				continue
			}
			reply.ToolCalls++
			L.Info(ctx, "executing tool",
				"tool", block.Name,
				"call_number", reply.ToolCalls,
			)
			result, dur := e.execute(ctx, block)
			toolTime += dur
			results = append(results, result)
		}
		messages = append(messages, Message{Role: "user", Content: results})
	}

	finish()
	return reply, nil
}

// call sends one request inside an llm.call span.
func (e *Engine) call(ctx context.Context, seq int, req *LLMRequest) (*LLMResponse, float64, error) {
	ctx, span := tracer.Start(ctx, "llm.call", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "llm.call"),
		attribute.Int("triagedesk.chat.seq", seq),
		attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
	))
	defer span.End()

	span.AddEvent("llm.request", trace.WithAttributes(
		attribute.Int("llm.request.messages", len(req.Messages)),
		attribute.Int("llm.request.tools", len(req.Tools)),
	))

	start := time.Now()
	resp, err := e.provider.Send(ctx, req)
	dur := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, dur, err
	}

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.String("gen_ai.response.finish_reason", string(resp.StopReason)),
		attribute.Int("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	span.AddEvent("llm.response", trace.WithAttributes(
		attribute.Int("llm.response.blocks", len(resp.Content)),
		attribute.String("llm.response.text", truncate(lastText(resp.Content))),
	))

	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(resp.Usage.InputTokens, resp.Usage.OutputTokens, dur)
	}
	return resp, dur, nil
}

// execute runs one tool_use block inside a tool.execute span and returns
// the tool_result block for the next turn.
func (e *Engine) execute(ctx context.Context, block ContentBlock) (ContentBlock, float64) {
	ctx, span := tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "tool.execute"),
		attribute.String("gen_ai.tool.name", block.Name),
		attribute.String("gen_ai.tool.call.id", block.ID),
		attribute.String("triagedesk.tool.input", truncate(string(block.Input))),
	))
	defer span.End()

	span.AddEvent("tool.request", trace.WithAttributes(
		attribute.String("tool.request.body", truncate(string(block.Input))),
	))

	result := ContentBlock{Type: "tool_result", ToolUseID: block.ID}
	start := time.Now()

	tool, ok := e.registry.Get(block.Name)
	if !ok {
		result.Content = fmt.Sprintf("unknown tool: %s", block.Name)
		result.IsError = true
	} else {
		output, err := tool.Execute(ctx, block.Input)
		if err != nil {
			e.logger.Error(ctx, err, "tool execution failed", "tool", block.Name)
			result.Content = fmt.Sprintf("tool error: %v", err)
			result.IsError = true
		} else {
			result.Content = string(output)
		}
	}
	dur := time.Since(start).Seconds()

	span.SetAttributes(attribute.Bool("triagedesk.tool.is_error", result.IsError))
	span.AddEvent("tool.result", trace.WithAttributes(
		attribute.String("tool.result.body", truncate(result.Content)),
	))
	if result.IsError {
		span.SetStatus(codes.Error, result.Content)
	}

	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(block.Name, dur, len(block.Input), len(result.Content), result.IsError)
	}
	return result, dur
}

func lastText(blocks []ContentBlock) string {
	var text string
	for _, b := range blocks {
		if b.Type == "text" {
			text = b.Text
		}
	}
	return text
}

func truncate(s string) string {
	if len(s) <= maxEventBody {
		return s
	}
	return s[:maxEventBody] + "...(truncated)"
}
