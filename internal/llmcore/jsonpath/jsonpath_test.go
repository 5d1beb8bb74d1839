package jsonpath

import "testing"

func TestAccessorGetDottedPath(t *testing.T) {
	root := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": "hello"}},
		},
	}
	v, ok := Compile("choices[0].message.content").Get(root)
	if !ok || v != "hello" {
		t.Fatalf("got (%v, %v), want (hello, true)", v, ok)
	}
}

func TestAccessorGetMissingSegment(t *testing.T) {
	root := map[string]any{"usage": map[string]any{"prompt_tokens": 5.0}}
	_, ok := Compile("usage.completion_tokens").Get(root)
	if ok {
		t.Fatal("expected missing path to report not-found")
	}
}

func TestAccessorGetOutOfRangeIndex(t *testing.T) {
	root := map[string]any{"choices": []any{}}
	_, ok := Compile("choices[0].message.content").Get(root)
	if ok {
		t.Fatal("expected out-of-range index to report not-found")
	}
}

func TestResolveStringReturnsEmptyForMissingPath(t *testing.T) {
	if s := ResolveString("a.b.c", map[string]any{}); s != "" {
		t.Fatalf("got %q, want empty string", s)
	}
}

func TestResolveNumericPathOrExpressionSinglePath(t *testing.T) {
	root := map[string]any{"usage": map[string]any{"total_tokens": 42.0}}
	if n := ResolveNumericPathOrExpression("usage.total_tokens", root); n != 42 {
		t.Fatalf("got %d, want 42", n)
	}
}

// Descriptor usage.totalTokens = "usage.input + usage.output" with only
// usage.input present resolves to 10 — SPEC_FULL.md §8 boundary behaviour:
// missing operands count as 0.
func TestResolveNumericPathOrExpressionMissingOperandIsZero(t *testing.T) {
	root := map[string]any{"usage": map[string]any{"input": 10.0}}
	got := ResolveNumericPathOrExpression("usage.input + usage.output", root)
	if got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
}

func TestResolveNumericPathOrExpressionBothOperandsPresent(t *testing.T) {
	root := map[string]any{"usage": map[string]any{
		"input_tokens":  12.0,
		"output_tokens": 8.0,
	}}
	got := ResolveNumericPathOrExpression("usage.input_tokens + usage.output_tokens", root)
	if got != 20 {
		t.Fatalf("got %d, want 20", got)
	}
}

func TestResolveNumericPathOrExpressionUnderscoreKeysNotCorrupted(t *testing.T) {
	// tokenizePaths must not confuse the underscores inside a real key name
	// with its own placeholder delimiters.
	root := map[string]any{"usage": map[string]any{"input_tokens": 3.0}}
	got := ResolveNumericPathOrExpression("usage.input_tokens", root)
	if got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
}
