package openaiwire

import (
	"testing"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
)

func f64(f float64) *float64 { return &f }
func i(n int) *int            { return &n }

func TestConvertParametersMapsCanonicalToWireKeys(t *testing.T) {
	mapping := map[string]string{"temperature": "temp", "maxOutputTokens": "max_tokens"}
	config := llmcore.GenerationConfig{
		Temperature:     f64(0.7),
		MaxOutputTokens: i(256),
	}
	out := ConvertParameters(mapping, config)
	if out["temp"] != 0.7 {
		t.Errorf("temp = %v, want 0.7", out["temp"])
	}
	if out["max_tokens"] != 256 {
		t.Errorf("max_tokens = %v, want 256", out["max_tokens"])
	}
}

func TestConvertParametersUnmappedFallsBackToCanonicalName(t *testing.T) {
	config := llmcore.GenerationConfig{Temperature: f64(0.2)}
	out := ConvertParameters(nil, config)
	if out["temperature"] != 0.2 {
		t.Errorf("got %v", out["temperature"])
	}
}

func TestConvertParametersOmitsAbsentFields(t *testing.T) {
	out := ConvertParameters(nil, llmcore.GenerationConfig{})
	if _, ok := out["temperature"]; ok {
		t.Error("absent temperature should not appear in output")
	}
	if _, ok := out["topP"]; ok {
		t.Error("absent topP should not appear in output")
	}
}

func TestConvertParametersJSONResponseFormat(t *testing.T) {
	config := llmcore.GenerationConfig{ResponseMimeType: "application/json"}
	out := ConvertParameters(nil, config)
	rf, ok := out["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("got %v", out["response_format"])
	}
}

func TestApplyJSONModeRewriteAppendsToLastUserMessage(t *testing.T) {
	messages := []WireMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "do the thing"},
	}
	out := ApplyJSONModeRewrite(messages, true, true)
	if out[3].Content != "do the thing"+jsonModeInstruction {
		t.Errorf("got %q", out[3].Content)
	}
	if out[1].Content != "hello" {
		t.Error("earlier user message should be untouched")
	}
}

func TestApplyJSONModeRewriteNoopWhenNotRequested(t *testing.T) {
	messages := []WireMessage{{Role: "user", Content: "hello"}}
	out := ApplyJSONModeRewrite(messages, false, true)
	if out[0].Content != "hello" {
		t.Error("should be unchanged when not requested")
	}
}

func TestApplyJSONModeRewriteNoopWhenDescriptorDisallows(t *testing.T) {
	messages := []WireMessage{{Role: "user", Content: "hello"}}
	out := ApplyJSONModeRewrite(messages, true, false)
	if out[0].Content != "hello" {
		t.Error("should be unchanged when descriptor disables the rewrite")
	}
}
