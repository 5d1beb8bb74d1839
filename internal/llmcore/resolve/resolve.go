// Package resolve implements the layered config resolver (C2): api-key
// resolution, per-model default/override deep merge, provider-setting
// resolution, and request header assembly.
package resolve

import (
	"encoding/json"
	"os"
	"strings"

	"dario.cat/mergo"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// ResolveAPIKey resolves record.APIKey. A value beginning with "$" is
// treated as an environment variable name; if unset, a warning is logged
// and the empty string is returned (the transport will then fail with a
// clear auth error, per SPEC_FULL.md §4.2). Resolution happens fresh on
// every call — callers must call this at request-header-build time, not
// cache the result, so that rotating the env var between calls is honored
// (SPEC_FULL.md §9).
func ResolveAPIKey(record llmcore.ProviderRecord) string {
	if !strings.HasPrefix(record.APIKey, "$") {
		return record.APIKey
	}
	name := strings.TrimPrefix(record.APIKey, "$")
	val, ok := os.LookupEnv(name)
	if !ok {
		L_warn("llmcore: api key env var not set", "provider", record.ID, "var", name)
		return ""
	}
	return val
}

// ResolvedModel is the field-wise merge of a descriptor's ModelDefault with
// a record's ModelOverride for one model id.
type ResolvedModel struct {
	DisplayName         string
	ContextWindow       int
	MaxOutputTokens     int
	SupportedModalities []string
	Features            llmcore.ModelFeatures
}

// ResolveModelConfig deep-merges descriptor.DefaultModels[modelId] with
// record.ModelOverrides[modelId]. It returns (nil, false) if modelId is
// neither a descriptor default nor an enabled model on the record
// (SPEC_FULL.md §4.2).
//
// The merge operates on map[string]any representations of both sides
// (never on typed structs) because an override's explicit null must be
// distinguishable from an absent key — ModelOverrides is itself decoded as
// map[string]any rather than a typed struct for exactly this reason (see
// ProviderRecord.ModelOverrides). mergo.WithOverwriteWithEmptyValue is
// required alongside mergo.WithOverride: without it, mergo's default
// "don't clobber dst with an empty src value" rule would silently drop
// both an explicit null (key present, value nil) and a legitimate zero
// override (e.g. contextWindow 0), and a null key's value survives into
// defMap as a literal nil — which then decodes through encoding/json's
// null-into-non-pointer-field rule (a no-op, leaving the field at its zero
// value) to produce the "explicitly unset" result SPEC_FULL.md §4.2
// requires. Arrays replace rather than concatenate (mergo's default slice
// behavior), satisfying SPEC_FULL.md §8 invariant 2.
func ResolveModelConfig(descriptor *llmcore.Descriptor, record llmcore.ProviderRecord, modelID string) (*ResolvedModel, bool) {
	def, hasDefault := descriptor.DefaultModels[modelID]
	enabled := false
	for _, m := range record.Models {
		if m == modelID {
			enabled = true
			break
		}
	}
	if !hasDefault && !enabled {
		return nil, false
	}

	defMap := toMap(def)
	if override, hasOverride := record.ModelOverrides[modelID]; hasOverride {
		if err := mergo.Merge(&defMap, override, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
			L_error("llmcore: model config merge failed", "provider", record.ID, "model", modelID, "error", err)
		}
	}

	var merged llmcore.ModelDefault
	b, _ := json.Marshal(defMap)
	_ = json.Unmarshal(b, &merged)

	return &ResolvedModel{
		DisplayName:         merged.DisplayName,
		ContextWindow:       merged.ContextWindow,
		MaxOutputTokens:     merged.MaxOutputTokens,
		SupportedModalities: merged.SupportedModalities,
		Features:            merged.Features,
	}, true
}

func toMap(v any) map[string]any {
	b, _ := json.Marshal(v)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// ResolveProviderSetting consults providerOverrides[key], falling back to
// the supplied default. Used for timeout (ms) and maxRetries; zero is a
// legitimate override value and is never treated as absent (callers pass
// pointers so "unset" is representable).
func ResolveProviderSetting(record llmcore.ProviderRecord, override *int, def int) int {
	if override != nil {
		return *override
	}
	return def
}

// ResolveTimeoutMillis resolves record.ProviderOverrides.TimeoutMillis,
// falling back to def.
func ResolveTimeoutMillis(record llmcore.ProviderRecord, def int) int {
	return ResolveProviderSetting(record, record.ProviderOverrides.TimeoutMillis, def)
}

// ResolveMaxRetries resolves record.ProviderOverrides.MaxRetries, falling
// back to def. Nothing in this core calls it: the transport never retries,
// and the value does not appear in AdapterStatus or in error diagnostics.
func ResolveMaxRetries(record llmcore.ProviderRecord, def int) int {
	return ResolveProviderSetting(record, record.ProviderOverrides.MaxRetries, def)
}

// ResolveHeaders builds the header map for a request: Content-Type, then
// the descriptor's required headers with "{apiKey}" substituted, then any
// providerOverrides.customHeaders layered on top.
func ResolveHeaders(descriptor *llmcore.Descriptor, record llmcore.ProviderRecord) map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	apiKey := ResolveAPIKey(record)
	for k, v := range descriptor.RequestHeaders.Required {
		headers[k] = strings.ReplaceAll(v, "{apiKey}", apiKey)
	}
	for k, v := range record.ProviderOverrides.CustomHeaders {
		headers[k] = v
	}
	return headers
}
