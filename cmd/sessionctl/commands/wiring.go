package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/sketchloom/sessionengine/internal/config"
	"github.com/sketchloom/sessionengine/internal/llmadapter"
	"github.com/sketchloom/sessionengine/internal/sessionmgr"
	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/version"
)

// buildManager loads configuration for workDir and wires a Session Manager
// against the shared on-disk state store, the same components sessiond
// assembles for the HTTP server.
func buildManager(ctx context.Context, workDir string) (*sessionmgr.Manager, error) {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if m := GetGlobalModel(); m != "" {
		cfg.Model = m
	}

	s, err := openStateStore(cfg, paths)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	versions := version.New(s)

	chatModel, err := resolveChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing LLM backend: %w", err)
	}
	adapter := llmadapter.New(chatModel, cfg.LLMTimeout, cfg.LLMMaxRetries)

	return sessionmgr.New(s, versions, adapter, sessionmgr.Limits{
		EditBudget:  cfg.EditBudget,
		LockTimeout: cfg.LockTimeout,
	}), nil
}

// resolveChatModel picks the LLM backend from cfg.Model's family and looks
// up matching credentials in cfg.Provider. "claude"-prefixed models use
// Anthropic; everything else falls back to OpenAI.
func resolveChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	if strings.HasPrefix(cfg.Model, "claude") {
		return llmadapter.NewClaudeBackend(ctx, cfg.Provider["anthropic"], cfg.Model)
	}
	return llmadapter.NewOpenAIBackend(ctx, cfg.Provider["openai"], cfg.Model)
}

// openStateStore selects the State Store backend named by
// cfg.StoreBackend: "sqlite" opens a single database under the storage
// root, anything else (including the default "file") uses the file-per-key
// JSON tree.
func openStateStore(cfg *config.Config, paths *config.Paths) (*store.Store, error) {
	if cfg.StoreBackend == "sqlite" {
		return store.NewSQLite(paths.StateDBPath())
	}
	return store.New(paths.StoragePath()), nil
}
