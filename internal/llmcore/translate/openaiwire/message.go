// Package openaiwire implements the canonical↔wire translator (C3) and the
// streaming tool-call accumulator (C4) for the OpenAI-family wire protocol:
// request/response bodies shaped like OpenAI's chat completions API, and
// any OpenAI-compatible gateway (DeepSeek, Qwen, OpenRouter, local
// OpenAI-compatible servers) that speaks the same shape, per the
// descriptor declared for adapterType "openai".
package openaiwire

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// WireMessage is one element of the outbound "messages" array.
type WireMessage struct {
	Role       string          `json:"role"`
	Content    any             `json:"content"` // string, nil, or []any for multi-part
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []WireToolCall  `json:"tool_calls,omitempty"`
}

// WireToolCall is one entry of an assistant message's tool_calls array.
type WireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function WireToolCallFunc `json:"function"`
}

// WireToolCallFunc is the function payload of a wire tool call.
type WireToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ConvertMessages translates a canonical content sequence plus an optional
// system instruction into the OpenAI-family wire "messages" array, per
// SPEC_FULL.md §4.3.1.
func ConvertMessages(systemInstruction string, contents []llmcore.Content, descriptor ImageSupport) []WireMessage {
	var out []WireMessage
	if systemInstruction != "" {
		out = append(out, WireMessage{Role: "system", Content: systemInstruction})
	}

	for _, content := range contents {
		toolResponses, toolCalls, textParts, binaryParts := partitionParts(content.Parts)

		// Tool-response parts always become their own "tool" role messages,
		// one per response, regardless of what else is in the content.
		for _, tr := range toolResponses {
			out = append(out, WireMessage{
				Role:       "tool",
				ToolCallID: tr.ID,
				Content:    stringifyToolResponse(tr.Response),
			})
		}
		if len(toolResponses) > 0 && len(toolCalls) == 0 && len(textParts) == 0 && len(binaryParts) == 0 {
			continue
		}

		if len(toolCalls) > 0 {
			msg := WireMessage{Role: "assistant"}
			text := joinText(textParts)
			if text == "" {
				msg.Content = nil
			} else {
				msg.Content = text
			}
			for i, tc := range toolCalls {
				id := tc.ID
				if id == "" {
					id = "call_" + strconv.Itoa(i)
				}
				argsJSON, err := json.Marshal(tc.Args)
				if err != nil {
					L_error("llmcore: failed to marshal tool call args", "tool", tc.Name, "error", err)
					argsJSON = []byte("{}")
				}
				msg.ToolCalls = append(msg.ToolCalls, WireToolCall{
					ID:   id,
					Type: "function",
					Function: WireToolCallFunc{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			out = append(out, msg)
			continue
		}

		if len(toolResponses) > 0 {
			// Tool responses already emitted above; nothing else on this content.
			continue
		}

		role := "user"
		if content.Role == llmcore.RoleModel {
			role = "assistant"
		}

		image := firstSupportedImage(binaryParts, descriptor, role)
		if image == nil {
			out = append(out, WireMessage{Role: role, Content: joinText(textParts)})
			continue
		}

		multi := []any{
			map[string]any{"type": "text", "text": joinText(textParts)},
		}
		for _, img := range collectSupportedImages(binaryParts, descriptor, role) {
			multi = append(multi, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": "data:" + img.MimeType + ";base64," + img.Data,
				},
			})
		}
		out = append(out, WireMessage{Role: role, Content: multi})
	}

	return out
}

// ImageSupport reports whether a role's declared modalities include images,
// so inline binary parts only take the multi-part branch when the
// descriptor actually advertises image support for the current role.
type ImageSupport interface {
	SupportsImageForRole(role string) bool
}

func partitionParts(parts []llmcore.Part) (toolResponses []llmcore.ToolResponsePart, toolCalls []llmcore.ToolCallPart, text []llmcore.TextPart, binary []llmcore.BinaryPart) {
	for _, p := range parts {
		switch v := p.(type) {
		case llmcore.ToolResponsePart:
			toolResponses = append(toolResponses, v)
		case llmcore.ToolCallPart:
			toolCalls = append(toolCalls, v)
		case llmcore.TextPart:
			text = append(text, v)
		case llmcore.BinaryPart:
			binary = append(binary, v)
		}
	}
	return
}

func joinText(parts []llmcore.TextPart) string {
	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func stringifyToolResponse(response any) string {
	if s, ok := response.(string); ok {
		return s
	}
	b, err := json.Marshal(response)
	if err != nil {
		L_error("llmcore: failed to marshal tool response", "error", err)
		return "{}"
	}
	return string(b)
}

func firstSupportedImage(parts []llmcore.BinaryPart, descriptor ImageSupport, role string) *llmcore.BinaryPart {
	if descriptor == nil || !descriptor.SupportsImageForRole(role) {
		return nil
	}
	for i := range parts {
		if sniffedImage(parts[i]) {
			return &parts[i]
		}
	}
	return nil
}

func collectSupportedImages(parts []llmcore.BinaryPart, descriptor ImageSupport, role string) []llmcore.BinaryPart {
	if descriptor == nil || !descriptor.SupportsImageForRole(role) {
		return nil
	}
	var out []llmcore.BinaryPart
	for _, p := range parts {
		if sniffedImage(p) {
			out = append(out, p)
		}
	}
	return out
}

// sniffedImage reports whether a binary part both declares an image/* MIME
// type and actually contains the bytes of an image, per SPEC_FULL.md
// §4.3.1 item 3. Data that is not valid base64, or whose bytes do not sniff
// as any image/* type, is logged and rejected rather than shipped to the
// provider as a bogus data: URL; the content falls back to the text-only
// branch. A declared image type that differs from a sniffed image type
// (e.g. image/png holding JPEG bytes) is accepted as declared.
func sniffedImage(part llmcore.BinaryPart) bool {
	if !strings.HasPrefix(part.MimeType, "image/") {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(part.Data)
	if err != nil {
		L_warn("llmcore: inline binary part is not valid base64, dropping", "declaredMime", part.MimeType, "error", err)
		return false
	}
	sniffed := mimetype.Detect(raw)
	if !sniffed.Is(part.MimeType) && !strings.HasPrefix(sniffed.String(), "image/") {
		L_warn("llmcore: inline binary part's declared MIME type does not match its content, dropping",
			"declaredMime", part.MimeType, "sniffedMime", sniffed.String())
		return false
	}
	return true
}

// newSyntheticToolCallID assigns a stable id to an inbound wire tool call
// that arrived with neither an id nor a usable positional index — an edge
// case some OpenAI-compatible gateways exhibit on non-streaming responses.
// Outbound translation never needs this: it always has a deterministic
// "call_<index>" fallback per SPEC_FULL.md §4.3.1.
func newSyntheticToolCallID() string {
	return "call_" + uuid.NewString()
}
