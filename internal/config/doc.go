// Package config provides layered configuration loading and XDG path
// management for the session engine.
//
// # Configuration Loading
//
// Load resolves configuration from, in ascending priority order:
//
//  1. Built-in defaults (see Default)
//  2. Global config (~/.config/sessionengine/config.yaml)
//  3. Project config (<directory>/.sessionengine/config.yaml)
//  4. Environment variables (SESSIONENGINE_*)
//
// Each source only overrides the keys it sets; everything else falls
// through to the next-lower-priority source. ANTHROPIC_API_KEY and
// OPENAI_API_KEY are the exception: they only fill in a provider's API key
// that no config file set, so a key from a config file wins over them.
//
// # Tunables
//
// Config owns every tunable governing session lifecycle and the edit
// pipeline: session_ttl, retention_window, edit_budget_ms, llm_timeout_ms,
// llm_max_retries, lock_timeout_ms, and janitor_interval_ms. ContextWindow
// is fixed at 10 and is not configurable.
//
// # Path Management
//
// GetPaths returns XDG Base Directory Specification compliant paths:
//   - Data: ~/.local/share/sessionengine (XDG_DATA_HOME)
//   - Config: ~/.config/sessionengine (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/sessionengine (XDG_CACHE_HOME)
//   - State: ~/.local/state/sessionengine (XDG_STATE_HOME)
//
// On Windows these paths fall back to APPDATA.
//
// # Usage Example
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	paths := config.GetPaths()
//	if err := paths.EnsurePaths(); err != nil {
//	    log.Fatal(err)
//	}
package config
