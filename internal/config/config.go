// Package config provides configuration loading for the sourcing agent,
// merging JSON config files over environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultResultsDir = "results"
	DefaultPort       = 8000
)

// Config holds every credential and knob the agent needs. All fields are
// optional at load time; each entry point validates what it actually uses.
type Config struct {
	// Credentials
	GeminiAPIKey   string `json:"gemini_api_key,omitempty"`
	GoogleAPIKey   string `json:"google_api_key,omitempty"`
	SearchEngineID string `json:"custom_search_engine_id,omitempty"`
	SessionCookie  string `json:"linkedin_session_cookie,omitempty"`
	DatabaseURL    string `json:"database_url,omitempty"`

	// Behavior
	ResultsDir string `json:"results_dir,omitempty"` // Directory for saved job results
	DebugDir   string `json:"debug_dir,omitempty"`   // Directory for scraper screenshots
	Port       int    `json:"port,omitempty"`        // HTTP listen port
	Verbose    bool   `json:"verbose,omitempty"`     // Print detailed debug information
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GoogleAPIKey:   os.Getenv("GOOGLE_API_KEY"),
		SearchEngineID: os.Getenv("CUSTOM_SEARCH_ENGINE_ID"),
		SessionCookie:  os.Getenv("LINKEDIN_SESSION_COOKIE"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ResultsDir:     os.Getenv("RESULTS_DIR"),
		DebugDir:       os.Getenv("DEBUG_DIR"),
	}
	if cfg.GeminiAPIKey == "" {
		// The original deployment used either name.
		cfg.GeminiAPIKey = os.Getenv("GOOGLE_GEMINI_API_KEY")
	}
	return cfg
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults, then from package defaults. File values win over environment.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.GoogleAPIKey == "" {
		result.GoogleAPIKey = defaults.GoogleAPIKey
	}
	if result.SearchEngineID == "" {
		result.SearchEngineID = defaults.SearchEngineID
	}
	if result.SessionCookie == "" {
		result.SessionCookie = defaults.SessionCookie
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ResultsDir == "" {
		result.ResultsDir = defaults.ResultsDir
	}
	if result.ResultsDir == "" {
		result.ResultsDir = DefaultResultsDir
	}
	if result.DebugDir == "" {
		result.DebugDir = defaults.DebugDir
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.Port == 0 {
		result.Port = DefaultPort
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Validate checks value ranges; required credentials are checked by each
// entry point since the serve and run paths need different subsets.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	return nil
}
