package openaiwire

import (
	"encoding/json"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/jsonpath"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// finishReasonTable is the fixed wire->canonical finish-reason mapping of
// SPEC_FULL.md §4.3.4.
var finishReasonTable = map[string]llmcore.FinishReason{
	"stop":          llmcore.FinishStop,
	"tool_calls":    llmcore.FinishStop,
	"length":        llmcore.FinishMaxTokens,
	"content_filter": llmcore.FinishSafety,
}

func mapFinishReason(wire string) llmcore.FinishReason {
	if fr, ok := finishReasonTable[wire]; ok {
		return fr
	}
	return llmcore.FinishOther
}

// wireToolCallRaw holds the three string fields extractToolCalls reads out
// of one generic (map[string]any) tool_calls entry.
type wireToolCallRaw struct {
	ID       string
	Name     string
	Arguments string
}

// DecodeResponse translates one non-streaming wire response into a
// canonical GenerateResponse, walking the descriptor's responseMapping
// paths rather than assuming a fixed struct shape (SPEC_FULL.md §9).
func DecodeResponse(descriptor *llmcore.Descriptor, body []byte) (llmcore.GenerateResponse, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return llmcore.GenerateResponse{}, &errs.MalformedResponseError{Cause: err}
	}

	contentAccessor := jsonpath.Compile(descriptor.ResponseMapping.Content)
	finishAccessor := jsonpath.Compile(descriptor.ResponseMapping.FinishReason)

	text, _ := contentAccessor.Get(root)
	finishRaw, ok := finishAccessor.Get(root)
	if !ok {
		return llmcore.GenerateResponse{}, &errs.MalformedResponseError{
			Path: descriptor.ResponseMapping.FinishReason,
		}
	}
	finishStr, _ := finishRaw.(string)

	var parts []llmcore.Part
	if s, ok := text.(string); ok && s != "" {
		parts = append(parts, llmcore.TextPart{Text: s})
	}

	for _, tc := range extractToolCalls(root) {
		args, err := decodeToolArgs(tc.Arguments)
		if err != nil {
			L_error("llmcore: tool call arguments unparseable", "toolCallId", tc.ID, "error", err)
		}
		parts = append(parts, llmcore.ToolCallPart{
			ID:   tc.ID,
			Name: tc.Name,
			Args: args,
		})
	}

	usage := decodeUsage(descriptor, root)

	return llmcore.GenerateResponse{
		Content:      llmcore.Content{Role: llmcore.RoleModel, Parts: parts},
		FinishReason: mapFinishReason(finishStr),
		Usage:        usage,
	}, nil
}

// extractToolCalls reaches into the first choice's message.tool_calls array
// directly — the one place this translator does assume the OpenAI-family
// shape by name rather than a descriptor path, because tool_calls is a
// structured array of objects (not a scalar leaf) that responseMapping has
// no path grammar for addressing element-wise; every OpenAI-compatible
// gateway in scope (SPEC_FULL.md §6) uses this exact array shape.
func extractToolCalls(root any) []wireToolCallRaw {
	choices, _ := jsonpath.Compile("choices").Get(root)
	arr, ok := choices.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	first, ok := arr[0].(map[string]any)
	if !ok {
		return nil
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		return nil
	}
	rawCalls, ok := message["tool_calls"].([]any)
	if !ok {
		return nil
	}

	out := make([]wireToolCallRaw, 0, len(rawCalls))
	for i, rc := range rawCalls {
		m, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			id = newSyntheticToolCallIDForIndex(i)
		}
		fn, _ := m["function"].(map[string]any)
		name, _ := fn["name"].(string)
		args, _ := fn["arguments"].(string)
		out = append(out, wireToolCallRaw{ID: id, Name: name, Arguments: args})
	}
	return out
}

func newSyntheticToolCallIDForIndex(_ int) string {
	return newSyntheticToolCallID()
}

func decodeToolArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{}, err
	}
	return m, nil
}

// decodeUsage evaluates each usage path (plain path or arithmetic
// expression) against root, per SPEC_FULL.md §4.3.4.
func decodeUsage(descriptor *llmcore.Descriptor, root any) llmcore.Usage {
	u := descriptor.ResponseMapping.Usage
	return llmcore.Usage{
		PromptTokens:     jsonpath.ResolveNumericPathOrExpression(u.PromptTokens, root),
		CompletionTokens: jsonpath.ResolveNumericPathOrExpression(u.CompletionTokens, root),
		TotalTokens:      jsonpath.ResolveNumericPathOrExpression(u.TotalTokens, root),
	}
}
