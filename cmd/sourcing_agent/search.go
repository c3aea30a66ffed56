package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synapse-ai/sourcing-agent/internal/observability"
	"github.com/synapse-ai/sourcing-agent/internal/pipeline"
	"github.com/synapse-ai/sourcing-agent/internal/types"
)

var searchCommand = &cobra.Command{
	Use:   "search",
	Short: "Discover candidate profile URLs without scraping them",
	RunE:  runSearchCmd,
}

var (
	searchConfigPath     string
	searchJobDescription string
	searchQuery          string
	searchNumResults     int
	searchVerbose        bool
)

func init() {
	searchCommand.Flags().StringVar(&searchConfigPath, "config", "", "Path to config.json file")
	searchCommand.Flags().StringVarP(&searchJobDescription, "job-description", "d", "", "Job description text")
	searchCommand.Flags().StringVarP(&searchQuery, "search-query", "q", "", "Search query (optional, generated if omitted)")
	searchCommand.Flags().IntVar(&searchNumResults, "num-results", 0, "Maximum profiles to discover (default 10)")
	searchCommand.Flags().BoolVarP(&searchVerbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.AddCommand(searchCommand)
}

func runSearchCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(cmd, searchConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = searchVerbose
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	req := types.CandidateSearchRequest{
		JobDescription: searchJobDescription,
		SearchQuery:    searchQuery,
		NumResults:     searchNumResults,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	req.Normalize()

	searcher, err := pipeline.NewSearcher(ctx, pipeline.Config{
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GoogleAPIKey:   cfg.GoogleAPIKey,
		SearchEngineID: cfg.SearchEngineID,
		Verbose:        cfg.Verbose,
	})
	if err != nil {
		return err
	}
	defer searcher.Close()

	queryUsed, urls := searcher.Search(ctx, req.JobDescription, req.SearchQuery, req.NumResults)

	observability.NewPrinter(os.Stdout).PrintSearchQuery(queryUsed)
	if len(urls) == 0 {
		fmt.Println("No profiles found. Check GOOGLE_API_KEY and CUSTOM_SEARCH_ENGINE_ID.")
		return nil
	}
	for _, url := range urls {
		fmt.Println(url)
	}
	return nil
}
