// Package registry implements the adapter registry and factory (C6): given
// a provider record, select the right adapter implementation and construct
// it with its resolved configuration.
//
// Deliberately absent from this package: the donor's per-purpose model
// chain with cross-provider failover and cooldown backoff. SPEC_FULL.md §1
// treats "no multi-provider load balancing; no request routing across
// providers within one session" as binding, so MakeAdapter resolves exactly
// one (provider, model) pair per call and never substitutes another
// provider on failure — a failed request surfaces its classified error to
// the caller.
package registry

import (
	"sync"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/descriptorfs"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
)

// AdapterConstructor builds a CanonicalGenerator from a loaded descriptor
// and a resolved provider record.
type AdapterConstructor func(descriptor *llmcore.Descriptor, record llmcore.ProviderRecord) llmcore.CanonicalGenerator

var (
	mu           sync.RWMutex
	constructors = map[string]AdapterConstructor{}
)

// Register makes an adapterType's constructor available to MakeAdapter.
// Called from each wire-format package's init(), mirroring the donor's
// factory.go constructor-switch pattern generalized to a registration map
// so new wire formats need no change to this package.
func Register(adapterType string, ctor AdapterConstructor) {
	mu.Lock()
	defer mu.Unlock()
	constructors[adapterType] = ctor
}

// Registry resolves provider records to adapter instances using a
// descriptor cache.
type Registry struct {
	descriptors *descriptorfs.Cache
}

// New constructs a Registry backed by the given descriptor cache. Most
// callers want the process-wide default via NewDefault.
func New(descriptors *descriptorfs.Cache) *Registry {
	return &Registry{descriptors: descriptors}
}

// NewDefault constructs a Registry backed by the shared process-wide
// descriptor cache (descriptorfs.Default()).
func NewDefault() *Registry {
	return New(descriptorfs.Default())
}

// MakeAdapter implements C6: given record, return a CanonicalGenerator
// bound to record's resolved descriptor + configuration. Two calls with
// equal records yield equivalent instances.
func (r *Registry) MakeAdapter(record llmcore.ProviderRecord) (llmcore.CanonicalGenerator, error) {
	mu.RLock()
	ctor, ok := constructors[record.AdapterType]
	mu.RUnlock()
	if !ok {
		return nil, &errs.UnknownAdapterTypeError{AdapterType: record.AdapterType}
	}

	descriptor, err := r.descriptors.Load(record.AdapterType)
	if err != nil {
		return nil, err
	}

	return ctor(descriptor, record), nil
}

// Status is a read-only diagnostic snapshot for one adapterType, adapted
// from the donor's ProviderStatus — the status query is kept, the
// cooldown/failover behavior around it in the donor is not (see package
// doc).
type Status struct {
	AdapterType       string
	DescriptorLoaded  bool
	LastLoadError     string
}

// AdapterStatus reports whether adapterType's descriptor is loaded and, if
// the last load attempt failed, the error it failed with.
func (r *Registry) AdapterStatus(adapterType string) Status {
	_, err := r.descriptors.Load(adapterType)
	if err != nil {
		return Status{AdapterType: adapterType, DescriptorLoaded: false, LastLoadError: err.Error()}
	}
	return Status{AdapterType: adapterType, DescriptorLoaded: true}
}
