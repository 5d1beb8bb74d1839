// Command goclaw is the entry point for the multi-provider adapter core.
// The full assistant's chat loop, channel dispatch, and configuration UI
// are out of scope here (see SPEC_FULL.md §1); this binary exercises the
// provider-selection path a chat loop would take at the interface level
// (SPEC_FULL.md §4.7): load the UI-owned settings file, resolve the
// selected provider/model, build an adapter through the registry, and
// issue one request against it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/descriptorfs"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/registry"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/resolve"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/settings"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
	"github.com/roelfdiedericks/goclaw/internal/paths"

	_ "github.com/roelfdiedericks/goclaw/internal/llmcore/adapters/anthropic"
	_ "github.com/roelfdiedericks/goclaw/internal/llmcore/adapters/openai"
)

// CLI is the top-level kong command tree, mirroring the donor's
// Debug/Trace/Config global flags plus a command group scoped to this
// core's external interface.
type CLI struct {
	Debug  bool   `help:"Enable debug logging" short:"d"`
	Trace  bool   `help:"Enable trace logging" short:"t"`
	Config string `help:"Settings file path" short:"c" type:"path"`

	Generate GenerateCmd `cmd:"" help:"Send one prompt through the currently selected custom provider"`
	Models   ModelsCmd   `cmd:"" help:"List a provider's enabled models with their resolved configuration"`
	Status   StatusCmd   `cmd:"" help:"Report descriptor-load status for a registered adapter type"`
}

// Context carries resources shared across command Run methods.
type Context struct {
	SettingsPath string
}

// GenerateCmd drives GenerateContent against the settings file's currently
// selected provider/model (SPEC_FULL.md §4.7).
type GenerateCmd struct {
	Prompt string `arg:"" help:"Prompt text to send as the sole user message"`
}

func (g *GenerateCmd) Run(c *Context) error {
	view, err := loadSettings(c.SettingsPath)
	if err != nil {
		return err
	}
	if !view.IsCustomProviderSelected() {
		return fmt.Errorf("selectedAuthType is %q, not %q: this core only handles the custom-provider path", view.SelectedAuthType, settings.AuthTypeCustomProvider)
	}

	sel := view.SelectionState()
	record, ok := view.CustomProviders[sel.CurrentProvider]
	if !ok {
		return &errs.ProviderNotConfiguredError{ProviderID: sel.CurrentProvider}
	}

	gen, err := registry.NewDefault().MakeAdapter(record)
	if err != nil {
		return err
	}

	req := llmcore.GenerateRequest{
		Model: sel.CurrentModel,
		Contents: []llmcore.Content{
			{Role: llmcore.RoleUser, Parts: []llmcore.Part{llmcore.TextPart{Text: g.Prompt}}},
		},
	}

	resp, err := gen.GenerateContent(context.Background(), req, "")
	if err != nil {
		return err
	}

	for _, part := range resp.Content.Parts {
		switch p := part.(type) {
		case llmcore.TextPart:
			fmt.Println(p.Text)
		case llmcore.ToolCallPart:
			fmt.Printf("[tool call] %s(%v)\n", p.Name, p.Args)
		}
	}
	L_debug("generate complete", "finishReason", resp.FinishReason, "usage", resp.Usage)
	return nil
}

// ModelsCmd prints the resolved model catalogue for one configured
// provider record, applying C2's layered merge to every enabled model.
type ModelsCmd struct {
	Provider string `arg:"" help:"Provider id (key under settings.customProviders)"`
}

func (m *ModelsCmd) Run(c *Context) error {
	view, err := loadSettings(c.SettingsPath)
	if err != nil {
		return err
	}
	record, ok := view.CustomProviders[m.Provider]
	if !ok {
		return &errs.ProviderNotConfiguredError{ProviderID: m.Provider}
	}

	reg := registry.NewDefault()
	status := reg.AdapterStatus(record.AdapterType)
	if !status.DescriptorLoaded {
		return fmt.Errorf("descriptor for adapter type %q failed to load: %s", record.AdapterType, status.LastLoadError)
	}

	descriptor, err := descriptorfs.Default().Load(record.AdapterType)
	if err != nil {
		return err
	}
	resolved := make(map[string]*resolve.ResolvedModel, len(record.Models))
	for _, id := range record.Models {
		if rm, ok := resolve.ResolveModelConfig(descriptor, record, id); ok {
			resolved[id] = rm
		}
	}

	out, _ := json.MarshalIndent(resolved, "", "  ")
	fmt.Println(string(out))
	return nil
}

// StatusCmd reports whether an adapterType's descriptor loaded
// successfully, without constructing an adapter (no provider record
// needed).
type StatusCmd struct {
	AdapterType string `arg:"" help:"Adapter type, e.g. openai or anthropic"`
}

func (s *StatusCmd) Run(c *Context) error {
	status := registry.NewDefault().AdapterStatus(s.AdapterType)
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
	return nil
}

func loadSettings(explicitPath string) (settings.View, error) {
	path := explicitPath
	if path == "" {
		dataPath, err := paths.DataPath("settings.toml")
		if err != nil {
			return settings.View{}, err
		}
		path = dataPath
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return settings.View{}, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return settings.Decode(data)
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("goclaw"),
		kong.Description("Multi-provider LLM adapter core"),
		kong.UsageOnError(),
	)

	level := LevelInfo
	if cli.Trace {
		level = LevelTrace
	} else if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, ShowCaller: true})

	if err := kctx.Run(&Context{SettingsPath: cli.Config}); err != nil {
		L_fatal("goclaw: command failed", "error", err)
	}
}
