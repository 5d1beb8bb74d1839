package openaiwire

import (
	"github.com/roelfdiedericks/goclaw/internal/llmcore"
)

// jsonModeInstruction is appended to the final user message when
// ResponseMimeType requests strict JSON output and the descriptor has not
// opted out via ResponseFormat.PromptRewriteForJSON = false. Preserves the
// donor's JSON-mode prompt-rewrite behavior (SPEC_FULL.md §9) behind a flag.
const jsonModeInstruction = "\n\nRespond with a single valid JSON object and nothing else — no prose, no markdown code fences."

// ConvertParameters emits the wire generation-parameter map: each canonical
// parameter present is written under the wire key named in
// descriptor.ParameterMapping, value unchanged (SPEC_FULL.md §4.3.3).
func ConvertParameters(mapping map[string]string, config llmcore.GenerationConfig) map[string]any {
	out := map[string]any{}
	set := func(canonical string, value any, present bool) {
		if !present {
			return
		}
		wireKey, ok := mapping[canonical]
		if !ok {
			wireKey = canonical
		}
		out[wireKey] = value
	}

	set("temperature", derefFloat(config.Temperature), config.Temperature != nil)
	set("topP", derefFloat(config.TopP), config.TopP != nil)
	set("maxOutputTokens", derefInt(config.MaxOutputTokens), config.MaxOutputTokens != nil)
	set("stopSequences", config.StopSequences, len(config.StopSequences) > 0)
	set("presencePenalty", derefFloat(config.PresencePenalty), config.PresencePenalty != nil)
	set("frequencyPenalty", derefFloat(config.FrequencyPenalty), config.FrequencyPenalty != nil)

	if config.ResponseMimeType == "application/json" {
		out["response_format"] = map[string]any{"type": "json_object"}
	}

	return out
}

// ApplyJSONModeRewrite appends the strict-JSON instruction to the last user
// message's text, when requested and not disabled by the descriptor. It
// mutates messages in place and also returns it for convenience.
func ApplyJSONModeRewrite(messages []WireMessage, requested bool, promptRewriteEnabled bool) []WireMessage {
	if !requested || !promptRewriteEnabled {
		return messages
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		if text, ok := messages[i].Content.(string); ok {
			messages[i].Content = text + jsonModeInstruction
		}
		break
	}
	return messages
}

func derefFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func derefInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
