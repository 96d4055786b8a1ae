// Command sessiond runs the design session engine's HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/sketchloom/sessionengine/internal/config"
	"github.com/sketchloom/sessionengine/internal/httpapi"
	"github.com/sketchloom/sessionengine/internal/janitor"
	"github.com/sketchloom/sessionengine/internal/llmadapter"
	"github.com/sketchloom/sessionengine/internal/logging"
	"github.com/sketchloom/sessionengine/internal/sessionmgr"
	"github.com/sketchloom/sessionengine/internal/store"
	"github.com/sketchloom/sessionengine/internal/version"
)

var (
	port      = flag.Int("port", 8080, "Server port")
	directory = flag.String("directory", "", "Project directory to load config from")
	versionFl = flag.Bool("version", false, "Print version and exit")
)

const (
	buildVersion = "0.1.0"
	buildTime    = "dev"
)

func main() {
	flag.Parse()

	if *versionFl {
		fmt.Printf("sessiond %s (%s)\n", buildVersion, buildTime)
		os.Exit(0)
	}

	logging.Init(logging.DefaultConfig())

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			log.Fatalf("failed to get working directory: %v", err)
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		log.Fatalf("failed to create data directories: %v", err)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	s, err := openStateStore(cfg, paths)
	if err != nil {
		log.Fatalf("failed to open state store: %v", err)
	}
	defer s.Close()

	counters, err := store.OpenCounterStore(paths.CountersDBPath())
	if err != nil {
		log.Fatalf("failed to open counter store: %v", err)
	}
	defer counters.Close()

	versions := version.New(s)

	ctx := context.Background()
	chatModel, err := resolveChatModel(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize LLM backend: %v", err)
	}
	adapter := llmadapter.New(chatModel, cfg.LLMTimeout, cfg.LLMMaxRetries)

	mgr := sessionmgr.New(s, versions, adapter, sessionmgr.Limits{
		EditBudget:  cfg.EditBudget,
		LockTimeout: cfg.LockTimeout,
	})

	j := janitor.New(s, versions, counters, cfg.SessionTTL, cfg.RetentionWindow, cfg.JanitorInterval)
	stopCounters := j.Start()
	defer stopCounters()

	janitorCtx, cancelJanitor := context.WithCancel(context.Background())
	go j.Run(janitorCtx)
	defer cancelJanitor()

	serverConfig := httpapi.DefaultConfig()
	serverConfig.Port = *port
	srv := httpapi.New(serverConfig, mgr)

	go func() {
		log.Printf("sessiond listening on http://localhost:%d", *port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down sessiond...")
	cancelJanitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("sessiond stopped")
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
