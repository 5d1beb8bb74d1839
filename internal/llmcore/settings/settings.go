// Package settings decodes the narrow projection of the UI-owned settings
// file this core actually reads (SPEC_FULL.md §6): selectedAuthType,
// currentProvider, currentModel, customProviders. This core never decodes
// the UI's full settings schema and never writes this file — the
// configuration UI owns the write path (SPEC_FULL.md §5).
package settings

import (
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// AuthTypeCustomProvider is the selectedAuthType value that routes the chat
// loop to this core (SPEC_FULL.md §6).
const AuthTypeCustomProvider = "custom-provider"

// View is the four-field projection of the settings file this core reads.
type View struct {
	SelectedAuthType string                            `toml:"selectedAuthType"`
	CurrentProvider  string                            `toml:"currentProvider"`
	CurrentModel     string                             `toml:"currentModel"`
	CustomProviders  map[string]llmcore.ProviderRecord `toml:"customProviders"`
}

// Decode parses settings file bytes into a View.
func Decode(data []byte) (View, error) {
	var v View
	if err := toml.Unmarshal(data, &v); err != nil {
		return View{}, err
	}
	return v, nil
}

// IsCustomProviderSelected reports whether v's selectedAuthType routes to
// this core.
func (v View) IsCustomProviderSelected() bool {
	return v.SelectedAuthType == AuthTypeCustomProvider
}

// SelectionState extracts the process-wide session selection from v.
func (v View) SelectionState() llmcore.SelectionState {
	return llmcore.SelectionState{CurrentProvider: v.CurrentProvider, CurrentModel: v.CurrentModel}
}

// Watcher holds the latest decoded View and re-reads the settings file on
// change, swapping the in-memory View atomically so an in-flight request
// never observes a partially-updated record set (SPEC_FULL.md §2.1/§5).
type Watcher struct {
	path string

	mu      sync.RWMutex
	current View

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher performs an initial decode of path and starts watching it for
// changes via fsnotify. Callers must call Close when done.
func NewWatcher(path string) (*Watcher, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	initial, err := Decode(data)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, current: initial, watcher: fw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			data, err := readFile(w.path)
			if err != nil {
				L_warn("llmcore: settings re-read failed", "path", w.path, "error", err)
				continue
			}
			next, err := Decode(data)
			if err != nil {
				L_warn("llmcore: settings decode failed, keeping previous view", "path", w.path, "error", err)
				continue
			}
			w.mu.Lock()
			w.current = next
			w.mu.Unlock()
			L_debug("llmcore: settings re-read", "path", w.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			L_warn("llmcore: settings watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Current returns the latest decoded View.
func (w *Watcher) Current() View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
