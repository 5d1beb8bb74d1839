package llmcore

import "time"

// ProviderRecord is a user's per-provider configuration entry, persisted in
// the settings file owned by the (out-of-scope) configuration UI and only
// ever read here.
type ProviderRecord struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	AdapterType string `json:"adapterType" toml:"adapterType"`

	BaseURL string `json:"baseUrl" toml:"baseUrl"`
	// APIKey is either a literal value or a "$ENV_NAME" placeholder
	// resolved at request-header-build time by resolve.ResolveAPIKey.
	APIKey string `json:"apiKey" toml:"apiKey"`

	// Models is the ordered list of enabled model ids; Models[0] is the
	// record's default model.
	Models []string `json:"models" toml:"models"`

	// ModelOverrides holds, per enabled model id, a sparse partial override
	// of the descriptor's ModelDefault. Each entry decodes as a raw
	// map[string]any rather than a typed struct: a key's total absence
	// means "use the descriptor default", while a key present with an
	// explicit null means "explicitly unset the default" (SPEC_FULL.md
	// §4.2's edge-case policy) — a distinction a plain `*int`/`*[]string`
	// struct field cannot make, since encoding/json collapses both an
	// absent key and an explicit null into the same nil pointer. Recognized
	// keys: "contextWindow" (int), "maxOutputTokens" (int),
	// "supportedModalities" ([]string), "features" (object with bool
	// "streaming"/"functionCalling"/"vision" sub-keys, same absent-vs-null
	// rule applying at that nesting level).
	ModelOverrides    map[string]map[string]any `json:"modelOverrides,omitempty" toml:"modelOverrides,omitempty"`
	ProviderOverrides ProviderOverrides         `json:"providerOverrides,omitempty" toml:"providerOverrides,omitempty"`

	CreatedAt time.Time `json:"createdAt" toml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" toml:"updatedAt"`
}

// ProviderOverrides holds per-record overrides of otherwise descriptor- or
// transport-default settings.
type ProviderOverrides struct {
	TimeoutMillis   *int              `json:"timeout,omitempty"`
	MaxRetries      *int              `json:"maxRetries,omitempty"`
	CustomHeaders   map[string]string `json:"customHeaders,omitempty"`
}
