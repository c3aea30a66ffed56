package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/synapse-ai/sourcing-agent/internal/observability"
	"github.com/synapse-ai/sourcing-agent/internal/pipeline"
	"github.com/synapse-ai/sourcing-agent/internal/ranking"
	"github.com/synapse-ai/sourcing-agent/internal/store"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one sourcing job end-to-end",
	Long: `Orchestrates the full sourcing process: query generation -> profile discovery -> scraping -> fit scoring -> optional outreach.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runSourcingCmd,
}

var (
	runConfigPath     string
	runJobFile        string
	runJobDescription string
	runSearchQuery    string
	runSendOutreach   bool
	runMaxCandidates  int
	runResultsDir     string
	runDebugDir       string
	runVerbose        bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runJobFile, "job", "j", "", "Path to job description text file (mutually exclusive with --job-description)")
	runCommand.Flags().StringVarP(&runJobDescription, "job-description", "d", "", "Job description text (mutually exclusive with --job)")
	runCommand.Flags().StringVarP(&runSearchQuery, "search-query", "q", "", "Search query (optional, generated from the job description if omitted)")
	runCommand.Flags().BoolVar(&runSendOutreach, "send-outreach", false, "Send connection requests to scored candidates")
	runCommand.Flags().IntVar(&runMaxCandidates, "max-candidates", 0, "Maximum candidates to process (default 10)")
	runCommand.Flags().StringVar(&runResultsDir, "results-dir", "", "Directory to store result JSON files")
	runCommand.Flags().StringVar(&runDebugDir, "debug-dir", "", "Directory for scraper debug screenshots")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCommand)
}

func runSourcingCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd, runConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("results-dir") {
		cfg.ResultsDir = runResultsDir
	}
	if cmd.Flags().Changed("debug-dir") {
		cfg.DebugDir = runDebugDir
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Resolve the job description
	if runJobFile != "" && runJobDescription != "" {
		return fmt.Errorf("--job and --job-description are mutually exclusive; provide only one")
	}
	jobDescription := runJobDescription
	if runJobFile != "" {
		data, err := os.ReadFile(runJobFile)
		if err != nil {
			return fmt.Errorf("failed to read job file: %w", err)
		}
		jobDescription = strings.TrimSpace(string(data))
	}
	if jobDescription == "" {
		return fmt.Errorf("either --job or --job-description must be provided")
	}

	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	req := types.JobRequest{
		JobDescription: jobDescription,
		SearchQuery:    runSearchQuery,
		SendOutreach:   runSendOutreach,
		MaxCandidates:  runMaxCandidates,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	req.Normalize()

	p, err := pipeline.New(ctx, pipeline.Config{
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GoogleAPIKey:   cfg.GoogleAPIKey,
		SearchEngineID: cfg.SearchEngineID,
		SessionCookie:  cfg.SessionCookie,
		DatabaseURL:    cfg.DatabaseURL,
		DebugDir:       cfg.DebugDir,
		Verbose:        cfg.Verbose,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	result, err := p.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("sourcing run failed: %w", err)
	}

	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintSearchQuery(result.SearchQueryUsed)
		printer.PrintRunSummary(ranking.Rank(result.Results, req.MaxCandidates))
		printer.PrintFailures(result.Results)
	}

	formatted := store.FormatResult(result, jobDescription, time.Since(start), req.MaxCandidates)

	results, err := store.NewResultStore(cfg.ResultsDir)
	if err != nil {
		return err
	}
	if err := results.Save(formatted); err != nil {
		return err
	}

	out, err := json.MarshalIndent(formatted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
