package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig holds credentials and connection options for one LLM
// backend (anthropic, openai, ...).
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// Config holds every tunable governing session lifecycle, the edit
// pipeline, and LLM backend selection.
type Config struct {
	// SessionTTL is the duration after last activity before a session is
	// reclaimed by the Janitor.
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	// ContextWindow is the number of EditContext entries retained per
	// session. It is fixed at 10 and not user-configurable; it is kept
	// on Config so callers have a single place to read it from.
	ContextWindow int `mapstructure:"-" yaml:"-"`

	// RetentionWindow is the number of versions kept with full wireframe
	// bodies before the Version Manager compacts older ones.
	RetentionWindow int `mapstructure:"retention_window" yaml:"retention_window"`

	// EditBudget is the end-to-end deadline for ApplyEdit, from prompt
	// receipt through version commit.
	EditBudget time.Duration `mapstructure:"edit_budget_ms" yaml:"edit_budget_ms"`

	// LLMTimeout bounds a single call to the LLM Adapter.
	LLMTimeout time.Duration `mapstructure:"llm_timeout_ms" yaml:"llm_timeout_ms"`

	// LLMMaxRetries is the number of retries the LLM Adapter attempts on
	// transient failures before surfacing ModelError.
	LLMMaxRetries int `mapstructure:"llm_max_retries" yaml:"llm_max_retries"`

	// LockTimeout bounds acquisition of a session's advisory lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout_ms" yaml:"lock_timeout_ms"`

	// JanitorInterval is the sweep period of the background Janitor.
	JanitorInterval time.Duration `mapstructure:"janitor_interval_ms" yaml:"janitor_interval_ms"`

	// Provider maps provider name ("anthropic", "openai") to credentials.
	Provider map[string]ProviderConfig `mapstructure:"provider" yaml:"provider"`

	// Model is the default model identifier passed to the LLM Adapter,
	// e.g. "claude-sonnet-4-5" or "gpt-4o".
	Model string `mapstructure:"model" yaml:"model"`

	// StoreBackend selects the State Store implementation: "file" (default)
	// or "sqlite".
	StoreBackend string `mapstructure:"store_backend" yaml:"store_backend"`
}

const contextWindowSize = 10

// Default returns a Config populated with the defaults from the design
// session engine's tunable table.
func Default() *Config {
	return &Config{
		SessionTTL:      24 * time.Hour,
		ContextWindow:   contextWindowSize,
		RetentionWindow: 20,
		EditBudget:      5000 * time.Millisecond,
		LLMTimeout:      3000 * time.Millisecond,
		LLMMaxRetries:   2,
		LockTimeout:     30000 * time.Millisecond,
		JanitorInterval: 60000 * time.Millisecond,
		Provider:        make(map[string]ProviderConfig),
		Model:           "claude-sonnet-4-5",
		StoreBackend:    "file",
	}
}

// Load resolves configuration from, in ascending priority order:
//  1. built-in defaults
//  2. the global config file (~/.config/sessionengine/config.yaml)
//  3. a project config file (<directory>/.sessionengine/config.yaml)
//  4. environment variables prefixed SESSIONENGINE_
//
// Millisecond-suffixed keys (edit_budget_ms, llm_timeout_ms, lock_timeout_ms,
// janitor_interval_ms) and session_ttl are read as integers/duration strings
// and converted; everything else binds directly via viper.
func Load(directory string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("sessionengine")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v, def)

	globalPath := filepath.Join(GetPaths().Config, "config.yaml")
	if err := mergeConfigFile(v, globalPath); err != nil {
		return nil, fmt.Errorf("config: loading global config: %w", err)
	}

	if directory != "" {
		projectPath := filepath.Join(directory, ".sessionengine", "config.yaml")
		if err := mergeConfigFile(v, projectPath); err != nil {
			return nil, fmt.Errorf("config: loading project config: %w", err)
		}
	}

	cfg := &Config{}
	cfg.SessionTTL = v.GetDuration("session_ttl")
	cfg.ContextWindow = contextWindowSize
	cfg.RetentionWindow = v.GetInt("retention_window")
	cfg.EditBudget = time.Duration(v.GetInt64("edit_budget_ms")) * time.Millisecond
	cfg.LLMTimeout = time.Duration(v.GetInt64("llm_timeout_ms")) * time.Millisecond
	cfg.LLMMaxRetries = v.GetInt("llm_max_retries")
	cfg.LockTimeout = time.Duration(v.GetInt64("lock_timeout_ms")) * time.Millisecond
	cfg.JanitorInterval = time.Duration(v.GetInt64("janitor_interval_ms")) * time.Millisecond
	cfg.Model = v.GetString("model")
	cfg.StoreBackend = v.GetString("store_backend")
	cfg.Provider = loadProviders(v)

	applyEnvOverrides(cfg)

	return cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("session_ttl", def.SessionTTL)
	v.SetDefault("retention_window", def.RetentionWindow)
	v.SetDefault("edit_budget_ms", int64(def.EditBudget/time.Millisecond))
	v.SetDefault("llm_timeout_ms", int64(def.LLMTimeout/time.Millisecond))
	v.SetDefault("llm_max_retries", def.LLMMaxRetries)
	v.SetDefault("lock_timeout_ms", int64(def.LockTimeout/time.Millisecond))
	v.SetDefault("janitor_interval_ms", int64(def.JanitorInterval/time.Millisecond))
	v.SetDefault("model", def.Model)
	v.SetDefault("store_backend", def.StoreBackend)
}

// mergeConfigFile merges a YAML file into v if it exists. A missing file is
// not an error; a malformed one is.
func mergeConfigFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return v.MergeConfig(strings.NewReader(string(data)))
}

func loadProviders(v *viper.Viper) map[string]ProviderConfig {
	providers := make(map[string]ProviderConfig)
	raw := v.GetStringMap("provider")
	for name := range raw {
		providers[name] = ProviderConfig{
			APIKey:  v.GetString(fmt.Sprintf("provider.%s.api_key", name)),
			BaseURL: v.GetString(fmt.Sprintf("provider.%s.base_url", name)),
		}
	}
	return providers
}

// applyEnvOverrides fills in provider API keys from the conventional
// environment variables where the config files left them empty, so a
// deployment can keep credentials out of config files entirely. A key set
// in a config file takes precedence over the environment variable.
func applyEnvOverrides(cfg *Config) {
	providerEnvMap := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			continue
		}
		p := cfg.Provider[provider]
		if p.APIKey == "" {
			p.APIKey = apiKey
			cfg.Provider[provider] = p
		}
	}

	if model := os.Getenv("SESSIONENGINE_MODEL"); model != "" {
		cfg.Model = model
	}
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("session_ttl", cfg.SessionTTL.String())
	v.Set("retention_window", cfg.RetentionWindow)
	v.Set("edit_budget_ms", int64(cfg.EditBudget/time.Millisecond))
	v.Set("llm_timeout_ms", int64(cfg.LLMTimeout/time.Millisecond))
	v.Set("llm_max_retries", cfg.LLMMaxRetries)
	v.Set("lock_timeout_ms", int64(cfg.LockTimeout/time.Millisecond))
	v.Set("janitor_interval_ms", int64(cfg.JanitorInterval/time.Millisecond))
	v.Set("model", cfg.Model)
	v.Set("store_backend", cfg.StoreBackend)
	v.Set("provider", cfg.Provider)

	return v.WriteConfigAs(path)
}
