// Package descriptorfs locates, parses, validates, and caches adapter
// descriptors (C1). Descriptors are loaded once per adapterType and cached
// for the lifetime of the process; the cache is never mutated after a
// successful first load (SPEC_FULL.md §9 "global descriptor cache").
package descriptorfs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// Cache is a process-wide, read-mostly loader/cache of descriptors keyed by
// adapterType. The zero value is usable; use Default for the shared
// singleton most callers want.
type Cache struct {
	mu      sync.Mutex
	loaded  map[string]*llmcore.Descriptor
	loading map[string]*sync.Once
	roots   []string
}

var (
	defaultCache     *Cache
	defaultCacheOnce sync.Once
)

// Default returns the shared, process-wide descriptor cache, rooted at the
// standard search locations (SPEC_FULL.md §6 "Adapter descriptor file").
func Default() *Cache {
	defaultCacheOnce.Do(func() {
		defaultCache = New(SearchRoots())
	})
	return defaultCache
}

// New constructs a Cache that searches the given ordered list of root
// directories for "adapters/<adapterType>/config.json".
func New(roots []string) *Cache {
	return &Cache{
		loaded:  make(map[string]*llmcore.Descriptor),
		loading: make(map[string]*sync.Once),
		roots:   roots,
	}
}

// SearchRoots returns the install-relative, source-relative, and
// cwd-relative candidate directories, in that priority order, mirroring the
// donor's internal/paths local-then-global precedence.
func SearchRoots() []string {
	var roots []string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			roots = append(roots, filepath.Dir(resolved))
		} else {
			roots = append(roots, filepath.Dir(exe))
		}
	}
	if _, file, _, ok := callerInfo(); ok {
		roots = append(roots, filepath.Dir(file))
	}
	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd)
	}
	return roots
}

// Load returns the descriptor for adapterType, loading and caching it on
// first use. Concurrent callers for the same adapterType block on one
// another rather than racing the filesystem.
func (c *Cache) Load(adapterType string) (*llmcore.Descriptor, error) {
	c.mu.Lock()
	if d, ok := c.loaded[adapterType]; ok {
		c.mu.Unlock()
		return d, nil
	}
	once, ok := c.loading[adapterType]
	if !ok {
		once = &sync.Once{}
		c.loading[adapterType] = once
	}
	c.mu.Unlock()

	var loadErr error
	once.Do(func() {
		d, err := c.loadFromDisk(adapterType)
		if err != nil {
			loadErr = err
			return
		}
		c.mu.Lock()
		c.loaded[adapterType] = d
		c.mu.Unlock()
	})

	c.mu.Lock()
	d, ok := c.loaded[adapterType]
	c.mu.Unlock()
	if ok {
		return d, nil
	}
	if loadErr != nil {
		return nil, loadErr
	}
	// Another goroutine's Once ran and failed before this one observed it;
	// retry the on-disk load directly rather than caching a negative result.
	return c.loadFromDisk(adapterType)
}

func (c *Cache) loadFromDisk(adapterType string) (*llmcore.Descriptor, error) {
	var raw []byte
	var found string
	for _, root := range c.roots {
		candidate := filepath.Join(root, "adapters", adapterType, "config.json")
		b, err := os.ReadFile(candidate)
		if err == nil {
			raw = b
			found = candidate
			break
		}
	}
	if raw == nil {
		return nil, &errs.DescriptorNotFoundError{AdapterType: adapterType}
	}

	var d llmcore.Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, &errs.DescriptorInvalidError{AdapterType: adapterType, Cause: err}
	}

	if err := validateRequiredKeys(&d); err != nil {
		return nil, &errs.DescriptorInvalidError{AdapterType: adapterType, Cause: err}
	}
	if err := validateSchemaShape(raw); err != nil {
		return nil, &errs.DescriptorInvalidError{AdapterType: adapterType, Cause: err}
	}

	L_debug("llmcore: loaded adapter descriptor", "adapterType", adapterType, "path", found)
	return &d, nil
}

// validateRequiredKeys checks presence of the keys SPEC_FULL.md §4.1
// requires: endpoints.chat, responseMapping.content, responseMapping.finishReason,
// responseMapping.usage.*, tokenCounting.method, defaultModels.
func validateRequiredKeys(d *llmcore.Descriptor) error {
	missing := func(cond bool, name string) error {
		if cond {
			return fmt.Errorf("missing required key %q", name)
		}
		return nil
	}
	checks := []error{
		missing(d.Endpoints.Chat == "", "endpoints.chat"),
		missing(d.ResponseMapping.Content == "", "responseMapping.content"),
		missing(d.ResponseMapping.FinishReason == "", "responseMapping.finishReason"),
		missing(d.ResponseMapping.Usage.PromptTokens == "", "responseMapping.usage.promptTokens"),
		missing(d.ResponseMapping.Usage.CompletionTokens == "", "responseMapping.usage.completionTokens"),
		missing(d.ResponseMapping.Usage.TotalTokens == "", "responseMapping.usage.totalTokens"),
		missing(d.TokenCounting.Method == "", "tokenCounting.method"),
		missing(len(d.DefaultModels) == 0, "defaultModels"),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// descriptorMetaSchema is a structural sanity check layered above the
// required-keys check: it confirms defaultModels entries and requestHeaders
// are shaped the way every shipped descriptor must be, catching a
// hand-edited descriptor with e.g. a string where contextWindow should be a
// number, before it reaches a live request. It is deliberately looser than
// a full descriptor schema — this is a safety net, not the validator.
const descriptorMetaSchema = `{
  "type": "object",
  "properties": {
    "defaultModels": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "contextWindow": {"type": "integer"},
          "maxOutputTokens": {"type": "integer"},
          "supportedModalities": {"type": "array", "items": {"type": "string"}},
          "features": {
            "type": "object",
            "properties": {
              "streaming": {"type": "boolean"},
              "functionCalling": {"type": "boolean"},
              "vision": {"type": "boolean"}
            }
          }
        }
      }
    },
    "requestHeaders": {
      "type": "object",
      "properties": {
        "required": {"type": "object"},
        "optional": {"type": "object"}
      }
    }
  }
}`

var compiledMetaSchema *jsonschema.Schema
var compiledMetaSchemaOnce sync.Once
var compiledMetaSchemaErr error

func validateSchemaShape(raw []byte) error {
	compiledMetaSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(descriptorMetaSchema), &doc); err != nil {
			compiledMetaSchemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("descriptor-meta-schema.json", doc); err != nil {
			compiledMetaSchemaErr = err
			return
		}
		schema, err := c.Compile("descriptor-meta-schema.json")
		if err != nil {
			compiledMetaSchemaErr = err
			return
		}
		compiledMetaSchema = schema
	})
	if compiledMetaSchemaErr != nil {
		return compiledMetaSchemaErr
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return compiledMetaSchema.Validate(doc)
}

func callerInfo() (pc uintptr, file string, line int, ok bool) {
	return runtimeCaller()
}
