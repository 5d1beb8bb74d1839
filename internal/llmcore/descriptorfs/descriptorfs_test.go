package descriptorfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
)

const validDescriptor = `{
  "adapterType": "testwire",
  "endpoints": {"chat": "/chat/completions"},
  "parameterMapping": {"temperature": "temperature"},
  "responseMapping": {
    "content": "choices[0].message.content",
    "finishReason": "choices[0].finish_reason",
    "usage": {
      "promptTokens": "usage.prompt_tokens",
      "completionTokens": "usage.completion_tokens",
      "totalTokens": "usage.total_tokens"
    }
  },
  "tokenCounting": {"method": "response_usage"},
  "errorHandling": {"authErrorStatus": [401], "errorMessagePath": "error.message"},
  "requestHeaders": {"required": {"Authorization": "Bearer {apiKey}"}},
  "defaultModels": {
    "m1": {"contextWindow": 4096, "features": {"streaming": true}}
  }
}`

func writeDescriptor(t *testing.T, root, adapterType, body string) {
	t.Helper()
	dir := filepath.Join(root, "adapters", adapterType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadValidDescriptor(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "testwire", validDescriptor)

	c := New([]string{root})
	d, err := c.Load("testwire")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Endpoints.Chat != "/chat/completions" {
		t.Errorf("got chat endpoint %q", d.Endpoints.Chat)
	}
	if _, ok := d.DefaultModels["m1"]; !ok {
		t.Error("expected defaultModels[m1] to be present")
	}
}

func TestLoadCachesAfterFirstLoad(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "testwire", validDescriptor)

	c := New([]string{root})
	first, err := c.Load("testwire")
	if err != nil {
		t.Fatal(err)
	}
	// Remove the file; a cached descriptor must not need to re-read disk.
	os.RemoveAll(filepath.Join(root, "adapters", "testwire"))
	second, err := c.Load("testwire")
	if err != nil {
		t.Fatalf("unexpected error on cached load: %v", err)
	}
	if first != second {
		t.Error("expected the same cached descriptor pointer on second load")
	}
}

func TestLoadNotFound(t *testing.T) {
	root := t.TempDir()
	c := New([]string{root})
	_, err := c.Load("nonexistent")
	if _, ok := err.(*errs.DescriptorNotFoundError); !ok {
		t.Fatalf("got %v (%T), want *errs.DescriptorNotFoundError", err, err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "broken", `{not valid json`)

	c := New([]string{root})
	_, err := c.Load("broken")
	if _, ok := err.(*errs.DescriptorInvalidError); !ok {
		t.Fatalf("got %v (%T), want *errs.DescriptorInvalidError", err, err)
	}
}

func TestLoadMissingRequiredKey(t *testing.T) {
	root := t.TempDir()
	// Valid JSON, but missing responseMapping.finishReason entirely.
	writeDescriptor(t, root, "incomplete", `{
  "adapterType": "incomplete",
  "endpoints": {"chat": "/chat"},
  "responseMapping": {
    "content": "choices[0].message.content",
    "usage": {"promptTokens": "a", "completionTokens": "b", "totalTokens": "c"}
  },
  "tokenCounting": {"method": "estimation"},
  "defaultModels": {"m1": {}}
}`)

	c := New([]string{root})
	_, err := c.Load("incomplete")
	if _, ok := err.(*errs.DescriptorInvalidError); !ok {
		t.Fatalf("got %v (%T), want *errs.DescriptorInvalidError", err, err)
	}
}

func TestLoadSearchesRootsInOrder(t *testing.T) {
	firstRoot := t.TempDir()
	secondRoot := t.TempDir()
	writeDescriptor(t, secondRoot, "testwire", validDescriptor)

	c := New([]string{firstRoot, secondRoot})
	d, err := c.Load("testwire")
	if err != nil {
		t.Fatalf("expected fallback to second root to succeed: %v", err)
	}
	if d.Endpoints.Chat != "/chat/completions" {
		t.Errorf("got %q", d.Endpoints.Chat)
	}
}
