package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synapse-ai/sourcing-agent/internal/config"
	"github.com/synapse-ai/sourcing-agent/internal/pipeline"
	"github.com/synapse-ai/sourcing-agent/internal/server"
)

var (
	serveConfigPath string
	servePort       int
	serveVerbose    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for running sourcing jobs and retrieving stored results.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = serveVerbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	srv, err := server.New(server.Config{
		Port:       cfg.Port,
		ResultsDir: cfg.ResultsDir,
		Pipeline: pipeline.Config{
			GeminiAPIKey:   cfg.GeminiAPIKey,
			GoogleAPIKey:   cfg.GoogleAPIKey,
			SearchEngineID: cfg.SearchEngineID,
			SessionCookie:  cfg.SessionCookie,
			DatabaseURL:    cfg.DatabaseURL,
			DebugDir:       cfg.DebugDir,
			Verbose:        cfg.Verbose,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// resolveConfig merges an optional JSON config file over environment
// variables and package defaults.
func resolveConfig(_ *cobra.Command, path string) (config.Config, error) {
	fromEnv := config.FromEnv()
	if path == "" {
		merged := (&config.Config{}).MergeWithDefaults(fromEnv)
		return merged, nil
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return loaded.MergeWithDefaults(fromEnv), nil
}
