// Package openai implements the CanonicalGenerator adapter for any backend
// that speaks the OpenAI-family wire protocol, bound to a loaded
// descriptor and a resolved provider record. It is the concrete
// construction target of the registry factory (C6) for adapterType
// "openai".
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/resolve"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/transport"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/translate/openaiwire"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// Adapter implements llmcore.CanonicalGenerator for one (descriptor,
// record) pair. It holds no long-lived mutable state — the streaming
// accumulator lives inside ConsumeStream's goroutine, not here — so two
// concurrent sessions from one Adapter instance share nothing
// (SPEC_FULL.md §5).
type Adapter struct {
	descriptor *llmcore.Descriptor
	record     llmcore.ProviderRecord
	transport  *transport.Transport
}

// New constructs an Adapter bound to descriptor and record. Per
// SPEC_FULL.md §4.6, this is pure w.r.t. record: two calls with equal
// records yield equivalent instances.
func New(descriptor *llmcore.Descriptor, record llmcore.ProviderRecord) *Adapter {
	headers := resolve.ResolveHeaders(descriptor, record)
	timeout := resolve.ResolveTimeoutMillis(record, 60000)
	tr := transport.New(record.BaseURL, headers, descriptor.ErrorHandling, timeout)
	return &Adapter{descriptor: descriptor, record: record, transport: tr}
}

// imageSupport adapts a resolved model's feature set to
// openaiwire.ImageSupport.
type imageSupport struct {
	vision bool
}

func (s imageSupport) SupportsImageForRole(role string) bool {
	return s.vision && role == "user"
}

func (a *Adapter) buildRequestBody(req llmcore.GenerateRequest, stream bool) ([]byte, error) {
	resolved, ok := resolve.ResolveModelConfig(a.descriptor, a.record, req.Model)
	vision := ok && resolved.Features.Vision

	messages := openaiwire.ConvertMessages(req.SystemInstruction, req.Contents, imageSupport{vision: vision})
	messages = openaiwire.ApplyJSONModeRewrite(
		messages,
		req.Config.ResponseMimeType == "application/json",
		a.descriptor.ResponseFormat.PromptRewriteForJSON,
	)

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"stream":   stream,
	}

	if len(req.Config.Tools) > 0 {
		body["tools"] = openaiwire.ConvertTools(llmcore.NormalizeTools(req.Config.Tools))
	}

	for k, v := range openaiwire.ConvertParameters(a.descriptor.ParameterMapping, req.Config) {
		body[k] = v
	}

	return json.Marshal(body)
}

// GenerateContent issues a non-streaming chat request.
func (a *Adapter) GenerateContent(ctx context.Context, req llmcore.GenerateRequest, promptID string) (llmcore.GenerateResponse, error) {
	payload, err := a.buildRequestBody(req, false)
	if err != nil {
		return llmcore.GenerateResponse{}, &errs.MalformedResponseError{Cause: err}
	}

	resp, cancel, err := a.transport.Do(ctx, a.descriptor.Endpoints.Chat, payload, false)
	if err != nil {
		return llmcore.GenerateResponse{}, err
	}
	defer cancel()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return llmcore.GenerateResponse{}, &errs.MalformedResponseError{Cause: err}
	}

	return openaiwire.DecodeResponse(a.descriptor, data)
}

// GenerateContentStream issues a streaming chat request and returns a
// channel of canonical StreamEvents.
func (a *Adapter) GenerateContentStream(ctx context.Context, req llmcore.GenerateRequest, promptID string) (<-chan llmcore.StreamEvent, error) {
	payload, err := a.buildRequestBody(req, true)
	if err != nil {
		return nil, &errs.MalformedResponseError{Cause: err}
	}

	resp, cancel, err := a.transport.Do(ctx, a.descriptor.Endpoints.Chat, payload, true)
	if err != nil {
		return nil, err
	}

	out := make(chan llmcore.StreamEvent)
	inner := openaiwire.ConsumeStream(a.descriptor, resp.Body)
	go func() {
		defer cancel()
		defer resp.Body.Close()
		defer close(out)
		for ev := range inner {
			out <- ev
		}
	}()
	return out, nil
}

// CountTokens implements descriptor.TokenCounting.Method. Under
// "response_usage" it issues a real chat request solely to read the
// server-reported usage (preserved from the donor per SPEC_FULL.md §9's
// decided open question); under anything else it falls back to the
// mandatory 4-chars-per-token estimate.
func (a *Adapter) CountTokens(ctx context.Context, req llmcore.GenerateRequest) (llmcore.TokenCount, error) {
	if a.descriptor.TokenCounting.Method == "response_usage" {
		resp, err := a.GenerateContent(ctx, req, "")
		if err == nil {
			return llmcore.TokenCount{TotalTokens: resp.Usage.PromptTokens}, nil
		}
		L_warn("llmcore: response_usage token counting failed, falling back to estimation", "error", err)
	}

	payload, err := a.buildRequestBody(req, false)
	if err != nil {
		return llmcore.TokenCount{}, &errs.MalformedResponseError{Cause: err}
	}
	return llmcore.TokenCount{TotalTokens: transport.EstimateTokens(payload)}, nil
}

// EmbedContent flattens the request's text content into a single string and
// posts it to the descriptor's embedding endpoint. Fails with
// OperationUnsupportedError if the descriptor declares none.
func (a *Adapter) EmbedContent(ctx context.Context, req llmcore.GenerateRequest) (llmcore.EmbedResponse, error) {
	if a.descriptor.Endpoints.Embedding == "" {
		return llmcore.EmbedResponse{}, &errs.OperationUnsupportedError{Operation: "embedContent"}
	}

	var sb bytes.Buffer
	for _, content := range req.Contents {
		for _, p := range content.Parts {
			if tp, ok := p.(llmcore.TextPart); ok {
				sb.WriteString(tp.Text)
				sb.WriteString("\n")
			}
		}
	}

	payload, err := json.Marshal(map[string]any{
		"model": "text-embedding-ada-002",
		"input": sb.String(),
	})
	if err != nil {
		return llmcore.EmbedResponse{}, &errs.MalformedResponseError{Cause: err}
	}

	resp, cancel, err := a.transport.Do(ctx, a.descriptor.Endpoints.Embedding, payload, false)
	if err != nil {
		return llmcore.EmbedResponse{}, err
	}
	defer cancel()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return llmcore.EmbedResponse{}, &errs.MalformedResponseError{Cause: err}
	}

	var decoded struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil || len(decoded.Data) == 0 {
		return llmcore.EmbedResponse{}, &errs.MalformedResponseError{Path: "data[0].embedding", Cause: err}
	}

	return llmcore.EmbedResponse{Embeddings: []llmcore.Embedding{{Values: decoded.Data[0].Embedding}}}, nil
}
