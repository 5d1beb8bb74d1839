package openai

import (
	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/registry"
)

func init() {
	registry.Register("openai", func(descriptor *llmcore.Descriptor, record llmcore.ProviderRecord) llmcore.CanonicalGenerator {
		return New(descriptor, record)
	})
}
