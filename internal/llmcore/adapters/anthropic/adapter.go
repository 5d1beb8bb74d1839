// Package anthropic registers the "anthropic" adapterType with the
// registry (C6) and loads its descriptor, but implements the
// CanonicalGenerator contract structurally only: every operation returns
// OperationUnsupportedError rather than attempting a wire translation.
//
// SPEC_FULL.md §9 flags the Anthropic adapter as an open question rather
// than a decided requirement — the source repo this was distilled from
// ships only a stub for it. Completing it needs a second translator module
// (Anthropic's Messages API uses content-block arrays and a distinct
// tool_use/tool_result shape, not the OpenAI-family choices[].message
// shape openaiwire assumes) which is out of scope for this pass. Wiring
// the adapterType into the registry and descriptor loader now means a
// user-supplied "anthropic" provider record fails predictably at
// construction/request time instead of with an UnknownAdapterTypeError,
// and the descriptor itself (adapters/anthropic/config.json) documents the
// wire shape a future translator would target.
package anthropic

import (
	"context"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/registry"
)

func init() {
	registry.Register("anthropic", func(descriptor *llmcore.Descriptor, record llmcore.ProviderRecord) llmcore.CanonicalGenerator {
		return New(descriptor, record)
	})
}

// Adapter is the structural stub for adapterType "anthropic". It satisfies
// llmcore.CanonicalGenerator so the registry factory can construct it, but
// every method is unimplemented pending a dedicated Messages-API
// translator.
type Adapter struct {
	descriptor *llmcore.Descriptor
	record     llmcore.ProviderRecord
}

// New constructs a stub Adapter bound to descriptor and record.
func New(descriptor *llmcore.Descriptor, record llmcore.ProviderRecord) *Adapter {
	return &Adapter{descriptor: descriptor, record: record}
}

func (a *Adapter) GenerateContent(ctx context.Context, req llmcore.GenerateRequest, promptID string) (llmcore.GenerateResponse, error) {
	return llmcore.GenerateResponse{}, &errs.OperationUnsupportedError{Operation: "generateContent (anthropic adapter is structural-only, see package doc)"}
}

func (a *Adapter) GenerateContentStream(ctx context.Context, req llmcore.GenerateRequest, promptID string) (<-chan llmcore.StreamEvent, error) {
	return nil, &errs.OperationUnsupportedError{Operation: "generateContentStream (anthropic adapter is structural-only, see package doc)"}
}

func (a *Adapter) CountTokens(ctx context.Context, req llmcore.GenerateRequest) (llmcore.TokenCount, error) {
	return llmcore.TokenCount{}, &errs.OperationUnsupportedError{Operation: "countTokens (anthropic adapter is structural-only, see package doc)"}
}

func (a *Adapter) EmbedContent(ctx context.Context, req llmcore.GenerateRequest) (llmcore.EmbedResponse, error) {
	return llmcore.EmbedResponse{}, &errs.OperationUnsupportedError{Operation: "embedContent (anthropic has no embeddings endpoint)"}
}
