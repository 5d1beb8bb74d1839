package llmcore

import "context"

// CanonicalGenerator is the interface the chat loop consumes. Every adapter
// (one per adapterType) implements it; the adapter instance is constructed
// per request-generation session by the registry factory and discarded when
// the session ends or the user switches provider/model.
type CanonicalGenerator interface {
	GenerateContent(ctx context.Context, req GenerateRequest, promptID string) (GenerateResponse, error)
	GenerateContentStream(ctx context.Context, req GenerateRequest, promptID string) (<-chan StreamEvent, error)
	CountTokens(ctx context.Context, req GenerateRequest) (TokenCount, error)
	EmbedContent(ctx context.Context, req GenerateRequest) (EmbedResponse, error)
}

// StreamEvent is one item of a GenerateContentStream channel: either a
// partial GenerateResponse chunk, or a terminal error. The channel is closed
// when the stream ends: at the "[DONE]" sentinel, at the end of the response
// body, or after an error event. A chunk carrying a non-empty FinishReason
// does not by itself close the channel.
type StreamEvent struct {
	Response GenerateResponse
	Err      error
}
