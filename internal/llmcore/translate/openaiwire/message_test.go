package openaiwire

import (
	"testing"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
)

type alwaysImageSupport struct{ supported bool }

func (a alwaysImageSupport) SupportsImageForRole(role string) bool { return a.supported }

// pngSignatureBase64 is the base64 encoding of the 8-byte PNG file
// signature, enough for sniffedImage to detect image/png.
const pngSignatureBase64 = "iVBORw0KGgo="

func TestConvertMessagesSystemInstruction(t *testing.T) {
	out := ConvertMessages("be terse", nil, alwaysImageSupport{})
	if len(out) != 1 || out[0].Role != "system" || out[0].Content != "be terse" {
		t.Fatalf("got %+v", out)
	}
}

func TestConvertMessagesPlainText(t *testing.T) {
	contents := []llmcore.Content{
		{Role: llmcore.RoleUser, Parts: []llmcore.Part{llmcore.TextPart{Text: "hi"}}},
		{Role: llmcore.RoleModel, Parts: []llmcore.Part{llmcore.TextPart{Text: "hello"}}},
	}
	out := ConvertMessages("", contents, alwaysImageSupport{})
	if len(out) != 2 {
		t.Fatalf("got %d messages, want 2", len(out))
	}
	if out[0].Role != "user" || out[0].Content != "hi" {
		t.Errorf("got %+v", out[0])
	}
	if out[1].Role != "assistant" || out[1].Content != "hello" {
		t.Errorf("got %+v", out[1])
	}
}

func TestConvertMessagesToolCallBecomesAssistantMessage(t *testing.T) {
	contents := []llmcore.Content{
		{Role: llmcore.RoleModel, Parts: []llmcore.Part{
			llmcore.ToolCallPart{ID: "abc", Name: "lookup", Args: map[string]any{"q": "x"}},
		}},
	}
	out := ConvertMessages("", contents, alwaysImageSupport{})
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1", len(out))
	}
	msg := out[0]
	if msg.Role != "assistant" {
		t.Errorf("role = %q, want assistant", msg.Role)
	}
	if msg.Content != nil {
		t.Errorf("content = %v, want nil (no text alongside the call)", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].ID != "abc" || msg.ToolCalls[0].Function.Name != "lookup" {
		t.Errorf("got %+v", msg.ToolCalls)
	}
}

func TestConvertMessagesToolCallMissingIDGetsDeterministicFallback(t *testing.T) {
	contents := []llmcore.Content{
		{Role: llmcore.RoleModel, Parts: []llmcore.Part{
			llmcore.ToolCallPart{Name: "lookup", Args: map[string]any{}},
		}},
	}
	out := ConvertMessages("", contents, alwaysImageSupport{})
	if out[0].ToolCalls[0].ID != "call_0" {
		t.Errorf("got %q, want call_0", out[0].ToolCalls[0].ID)
	}
}

func TestConvertMessagesToolResponseBecomesToolRoleMessage(t *testing.T) {
	contents := []llmcore.Content{
		{Role: llmcore.RoleUser, Parts: []llmcore.Part{
			llmcore.ToolResponsePart{ID: "abc", Response: map[string]any{"result": 42.0}},
		}},
	}
	out := ConvertMessages("", contents, alwaysImageSupport{})
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1", len(out))
	}
	if out[0].Role != "tool" || out[0].ToolCallID != "abc" {
		t.Fatalf("got %+v", out[0])
	}
	if out[0].Content != `{"result":42}` {
		t.Errorf("content = %q", out[0].Content)
	}
}

func TestConvertMessagesToolResponseStringPassthrough(t *testing.T) {
	contents := []llmcore.Content{
		{Role: llmcore.RoleUser, Parts: []llmcore.Part{
			llmcore.ToolResponsePart{ID: "abc", Response: "plain text result"},
		}},
	}
	out := ConvertMessages("", contents, alwaysImageSupport{})
	if out[0].Content != "plain text result" {
		t.Errorf("content = %q, want passthrough string", out[0].Content)
	}
}

func TestConvertMessagesImageWhenSupported(t *testing.T) {
	contents := []llmcore.Content{
		{Role: llmcore.RoleUser, Parts: []llmcore.Part{
			llmcore.TextPart{Text: "what is this"},
			llmcore.BinaryPart{MimeType: "image/png", Data: pngSignatureBase64},
		}},
	}
	out := ConvertMessages("", contents, alwaysImageSupport{supported: true})
	if len(out) != 1 {
		t.Fatalf("got %d messages", len(out))
	}
	multi, ok := out[0].Content.([]any)
	if !ok {
		t.Fatalf("content is %T, want []any multi-part", out[0].Content)
	}
	if len(multi) != 2 {
		t.Fatalf("got %d parts, want 2 (text + image)", len(multi))
	}
}

func TestConvertMessagesImageDroppedWhenUnsupported(t *testing.T) {
	contents := []llmcore.Content{
		{Role: llmcore.RoleUser, Parts: []llmcore.Part{
			llmcore.TextPart{Text: "what is this"},
			llmcore.BinaryPart{MimeType: "image/png", Data: pngSignatureBase64},
		}},
	}
	out := ConvertMessages("", contents, alwaysImageSupport{supported: false})
	if len(out) != 1 {
		t.Fatalf("got %d messages", len(out))
	}
	if _, ok := out[0].Content.([]any); ok {
		t.Fatalf("content should collapse to plain text when images unsupported, got multi-part")
	}
	if out[0].Content != "what is this" {
		t.Errorf("content = %v", out[0].Content)
	}
}
