package patientapi

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medcognis/triagedesk/internal/assistant"
)

type chatRequest struct {
	Message string           `json:"message"`
	History []assistant.Turn `json:"history"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}

	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := a.assistant.Chat(ctx, req.Message, req.History)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		a.logger.Error(ctx, err, "assistant chat failed", "history_turns", len(req.History))
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("triagedesk.chat.status", string(reply.Status)),
		attribute.Int("triagedesk.chat.tool_calls", reply.ToolCalls),
	)
	writeJSON(w, http.StatusOK, reply)
}
