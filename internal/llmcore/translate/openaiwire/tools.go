package openaiwire

import (
	"strconv"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
)

// WireTool is one element of the outbound "tools" array.
type WireTool struct {
	Type     string       `json:"type"`
	Function WireFunction `json:"function"`
}

// WireFunction is the function payload of a wire tool.
type WireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ConvertTools expands canonical tool declarations into the wire "tools"
// array, per SPEC_FULL.md §4.3.2. Callers normalize any CallableTool thunks
// via llmcore.NormalizeTools before calling this.
func ConvertTools(declarations []llmcore.ToolDeclaration) []WireTool {
	out := make([]WireTool, 0, len(declarations))
	for _, d := range declarations {
		out = append(out, WireTool{
			Type: "function",
			Function: WireFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  convertSchema(d.Parameters),
			},
		})
	}
	return out
}

// convertSchema walks a JSON-Schema-like tree and:
//   - lower-cases "type" strings;
//   - coerces numeric-constraint fields (minimum, maximum, multipleOf) from
//     strings to numbers when parseable;
//   - coerces length/count fields (minLength, maxLength, minItems, maxItems)
//     from strings to integers when parseable;
//   - recurses into "properties" and "items"; leaves primitives untouched.
//
// Other keywords are copied as they are: array-valued keywords such as
// "anyOf"/"oneOf"/"allOf", and an "items" given as an array, are not walked.
func convertSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = v
	}

	if t, ok := out["type"].(string); ok {
		out["type"] = toLowerASCII(t)
	}

	for _, key := range []string{"minimum", "maximum", "multipleOf"} {
		if s, ok := out[key].(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				out[key] = f
			}
		}
	}
	for _, key := range []string{"minLength", "maxLength", "minItems", "maxItems"} {
		if s, ok := out[key].(string); ok {
			if n, err := strconv.Atoi(s); err == nil {
				out[key] = n
			}
		}
	}

	if props, ok := out["properties"].(map[string]any); ok {
		converted := make(map[string]any, len(props))
		for name, prop := range props {
			if pm, ok := prop.(map[string]any); ok {
				converted[name] = convertSchema(pm)
			} else {
				converted[name] = prop
			}
		}
		out["properties"] = converted
	}

	if items, ok := out["items"].(map[string]any); ok {
		out["items"] = convertSchema(items)
	}

	return out
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
