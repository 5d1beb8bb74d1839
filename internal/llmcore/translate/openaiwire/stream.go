package openaiwire

import (
	"bufio"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// accumulatedCall is the per-index reassembly state of C4. argumentsBuffer
// only ever grows by append — per SPEC_FULL.md §4.4, a later fragment never
// replaces an earlier one.
type accumulatedCall struct {
	id              string
	name            string
	argumentsBuffer strings.Builder
}

// streamChunkDelta is the decoded shape of one SSE data line's JSON payload,
// narrowed to what C4 needs: any text delta, any tool-call deltas, and a
// possibly-present finish reason.
type streamChunkDelta struct {
	text         string
	toolCalls    []toolCallDelta
	finishReason string
	hasFinish    bool
}

type toolCallDelta struct {
	index        int
	id           string
	name         string
	argumentsAdd string
}

// ConsumeStream reads Server-Sent-Events lines from r (each data line
// prefixed "data: ", terminated by the "data: [DONE]" sentinel) and emits
// canonical StreamEvents on the returned channel, implementing C3 §4.3.5
// and the C4 accumulator of SPEC_FULL.md §4.4.
//
// The accumulator (a map[int]*accumulatedCall) is a local variable of this
// function — never a field on any longer-lived struct — so two concurrent
// calls against the same adapter share no state, per SPEC_FULL.md §4.4/§9.
func ConsumeStream(descriptor *llmcore.Descriptor, r io.Reader) <-chan llmcore.StreamEvent {
	out := make(chan llmcore.StreamEvent)

	go func() {
		defer close(out)

		accum := map[int]*accumulatedCall{}
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				return
			}

			delta, ok := parseStreamChunk(payload)
			if !ok {
				L_warn("llmcore: unparseable stream chunk envelope, skipping")
				L_debug("llmcore: unparseable stream chunk payload", "payload", truncate(payload, 200))
				continue
			}

			var pendingParts []llmcore.Part
			if delta.text != "" {
				pendingParts = append(pendingParts, llmcore.TextPart{Text: delta.text})
			}

			for _, tcd := range delta.toolCalls {
				entry, ok := accum[tcd.index]
				if !ok {
					entry = &accumulatedCall{}
					accum[tcd.index] = entry
				}
				if tcd.id != "" {
					entry.id = tcd.id
				}
				if tcd.name != "" {
					entry.name = tcd.name
				}
				if tcd.argumentsAdd != "" {
					entry.argumentsBuffer.WriteString(tcd.argumentsAdd)
				}
			}

			if len(pendingParts) > 0 && !delta.hasFinish {
				out <- llmcore.StreamEvent{Response: llmcore.GenerateResponse{
					Content: llmcore.Content{Role: llmcore.RoleModel, Parts: pendingParts},
				}}
			}

			if delta.hasFinish {
				finalParts := append([]llmcore.Part{}, pendingParts...)
				indices := make([]int, 0, len(accum))
				for idx := range accum {
					indices = append(indices, idx)
				}
				sort.Ints(indices)
				for _, idx := range indices {
					entry := accum[idx]
					args, err := decodeToolArgs(entry.argumentsBuffer.String())
					if err != nil {
						L_error("llmcore: streamed tool call arguments unparseable", "toolCallId", entry.id, "error", err)
					}
					finalParts = append(finalParts, llmcore.ToolCallPart{
						ID:   entry.id,
						Name: entry.name,
						Args: args,
					})
				}
				out <- llmcore.StreamEvent{Response: llmcore.GenerateResponse{
					Content:      llmcore.Content{Role: llmcore.RoleModel, Parts: finalParts},
					FinishReason: mapFinishReason(delta.finishReason),
				}}
				accum = map[int]*accumulatedCall{}
			}
		}

		if err := scanner.Err(); err != nil {
			out <- llmcore.StreamEvent{Err: err}
		}
	}()

	return out
}

func parseStreamChunk(payload string) (streamChunkDelta, bool) {
	var root map[string]any
	if err := json.Unmarshal([]byte(payload), &root); err != nil {
		return streamChunkDelta{}, false
	}

	var d streamChunkDelta

	choices, _ := root["choices"].([]any)
	if len(choices) == 0 {
		return d, true
	}
	choice, _ := choices[0].(map[string]any)
	if choice == nil {
		return d, true
	}

	if fr, ok := choice["finish_reason"]; ok && fr != nil {
		if s, ok := fr.(string); ok {
			d.finishReason = s
			d.hasFinish = true
		}
	}

	delta, _ := choice["delta"].(map[string]any)
	if delta == nil {
		return d, true
	}
	if text, ok := delta["content"].(string); ok {
		d.text = text
	}
	if rawCalls, ok := delta["tool_calls"].([]any); ok {
		for _, rc := range rawCalls {
			m, ok := rc.(map[string]any)
			if !ok {
				continue
			}
			idx := 0
			if f, ok := m["index"].(float64); ok {
				idx = int(f)
			}
			tcd := toolCallDelta{index: idx}
			if id, ok := m["id"].(string); ok {
				tcd.id = id
			}
			if fn, ok := m["function"].(map[string]any); ok {
				if name, ok := fn["name"].(string); ok {
					tcd.name = name
				}
				if args, ok := fn["arguments"].(string); ok {
					tcd.argumentsAdd = args
				}
			}
			d.toolCalls = append(d.toolCalls, tcd)
		}
	}

	return d, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
