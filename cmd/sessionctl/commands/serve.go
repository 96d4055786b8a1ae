package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

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
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the design session engine's HTTP server",
	Long: `Start the design session engine as a server that exposes an HTTP API
for creating and editing wireframe design sessions.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Project directory to load config from")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	logging.Info().Str("version", buildVersion).Msg("starting sessiond")
	logging.Info().Str("directory", workDir).Msg("working directory")

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if m := GetGlobalModel(); m != "" {
		cfg.Model = m
	}

	s, err := openStateStore(cfg, paths)
	if err != nil {
		return err
	}
	defer s.Close()

	counters, err := store.OpenCounterStore(paths.CountersDBPath())
	if err != nil {
		return err
	}
	defer counters.Close()

	versions := version.New(s)

	ctx := context.Background()
	chatModel, err := resolveChatModel(ctx, cfg)
	if err != nil {
		return err
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
	defer cancelJanitor()
	go j.Run(janitorCtx)

	serverConfig := httpapi.DefaultConfig()
	serverConfig.Port = servePort
	srv := httpapi.New(serverConfig, mgr)

	go func() {
		logging.Info().Int("port", servePort).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server...")
	cancelJanitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}

	logging.Info().Msg("server stopped")
	return nil
}
