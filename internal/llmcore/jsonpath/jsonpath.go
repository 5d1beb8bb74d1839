// Package jsonpath compiles and resolves the dotted/bracketed JSON path
// strings an adapter descriptor uses to declare where a field lives in a
// decoded wire response (e.g. "choices[0].message.content"), and evaluates
// the arithmetic expressions a descriptor's usage paths may carry (e.g.
// "usage.input_tokens + usage.output_tokens").
//
// Per SPEC_FULL.md §9, wire responses are never modeled with named struct
// fields here — the whole point of a descriptor-driven core is schema
// polymorphism across arbitrary OpenAI-compatible backends. Paths are
// compiled into a small Accessor value at the point of use (each
// DecodeResponse call, each ResolveString/ResolveNumericPathOrExpression
// call) and then walked against an already-decoded map[string]any/[]any
// tree with no reflection. Compiled accessors are not cached.
package jsonpath

import (
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"

	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// segment is one step of a compiled accessor: either a map key or an array
// index.
type segment struct {
	key   string
	index int
	isIdx bool
}

// Accessor is a compiled dotted/bracketed JSON path.
type Accessor struct {
	segments []segment
}

// Compile parses a path string like "choices[0].message.content" into an
// Accessor.
func Compile(path string) Accessor {
	var segs []segment
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			if idx := strings.IndexByte(part, '['); idx >= 0 {
				if idx > 0 {
					segs = append(segs, segment{key: part[:idx]})
				}
				end := strings.IndexByte(part, ']')
				if end < 0 {
					break
				}
				n, err := strconv.Atoi(part[idx+1 : end])
				if err == nil {
					segs = append(segs, segment{index: n, isIdx: true})
				}
				part = part[end+1:]
				continue
			}
			segs = append(segs, segment{key: part})
			part = ""
		}
	}
	return Accessor{segments: segs}
}

// Get walks root along the compiled path and returns the value found, or
// (nil, false) if any segment is missing or the wrong shape.
func (a Accessor) Get(root any) (any, bool) {
	cur := root
	for _, seg := range a.segments {
		if seg.isIdx {
			arr, ok := cur.([]any)
			if !ok || seg.index < 0 || seg.index >= len(arr) {
				return nil, false
			}
			cur = arr[seg.index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg.key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ResolveString resolves path against root and returns it as a string, or
// "" if the path is missing or not a string.
func ResolveString(path string, root any) string {
	if path == "" {
		return ""
	}
	v, ok := Compile(path).Get(root)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ResolveNumericPathOrExpression resolves a descriptor field that may be a
// plain path ("usage.total_tokens") or an arithmetic expression over
// multiple paths ("usage.input_tokens + usage.output_tokens"), per
// SPEC_FULL.md §4.3.4 / §8's boundary case. Evaluation is delegated to
// govaluate rather than a hand-rolled "+"-split, so the expression grammar
// is real (whitespace, parentheses, more than two operands) while the
// missing-operand-counts-as-0 policy spec.md mandates is implemented as a
// custom govaluate parameter resolver.
func ResolveNumericPathOrExpression(expr string, root any) int {
	sanitized, paths := tokenizePaths(expr)

	expression, err := govaluate.NewEvaluableExpression(sanitized)
	if err != nil {
		v, _ := Compile(strings.TrimSpace(expr)).Get(root)
		return toInt(v)
	}

	result, err := expression.Eval(exprParams{root: root, paths: paths})
	if err != nil {
		L_warn("llmcore: usage expression evaluation failed", "expr", expr, "error", err)
		return 0
	}
	return toInt(result)
}

// tokenizePaths rewrites each dotted/bracketed path token occurring in expr
// into a unique govaluate-legal placeholder identifier ("p0", "p1", ...)
// and returns the placeholder->original-path mapping, so exprParams.Get can
// resolve placeholders back to real paths without any lossy character
// substitution (a naive "."<->"_" round trip would corrupt keys that
// themselves contain underscores, e.g. "input_tokens").
func tokenizePaths(expr string) (string, map[string]string) {
	paths := map[string]string{}
	var out strings.Builder
	i := 0
	n := 0
	for i < len(expr) {
		c := expr[i]
		if isPathStartByte(c) {
			j := i
			for j < len(expr) && isPathByte(expr[j]) {
				j++
			}
			token := expr[i:j]
			placeholder := "p" + strconv.Itoa(n)
			n++
			paths[placeholder] = token
			out.WriteString(placeholder)
			i = j
			continue
		}
		out.WriteByte(c)
		i++
	}
	return out.String(), paths
}

func isPathStartByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isPathByte(c byte) bool {
	return isPathStartByte(c) || (c >= '0' && c <= '9') || c == '.' || c == '[' || c == ']'
}

type exprParams struct {
	root  any
	paths map[string]string
}

// Get implements govaluate.Parameters. name is a placeholder produced by
// tokenizePaths; a path that fails to resolve yields 0, per spec.md's
// "missing operands count as 0" rule.
func (p exprParams) Get(name string) (any, error) {
	path, ok := p.paths[name]
	if !ok {
		return 0.0, nil
	}
	v, ok := Compile(path).Get(p.root)
	if !ok {
		return 0.0, nil
	}
	return toFloat(v), nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
