// Package discovery finds candidate profile URLs through Google Custom Search.
package discovery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// ProfileSiteFilter restricts search results to public profile pages.
const ProfileSiteFilter = "site:linkedin.com/in/"

// maxResultsPerCall is the Custom Search API page-size ceiling.
const maxResultsPerCall = 10

// searchService is the slice of the Custom Search API the discoverer needs.
// It exists so tests can substitute a stub for the real service.
type searchService interface {
	Search(ctx context.Context, query string, num int64) ([]string, error)
}

// customSearchService implements searchService over the real API.
type customSearchService struct {
	svc *customsearch.Service
	cx  string
}

func (s *customSearchService) Search(ctx context.Context, query string, num int64) ([]string, error) {
	resp, err := s.svc.Cse.List().Context(ctx).Cx(s.cx).Q(query).Num(num).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	urls := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		urls = append(urls, item.Link)
	}
	return urls, nil
}

// Discoverer finds candidate profile URLs for a search query.
// A Discoverer constructed without credentials is inert: Discover returns an
// empty list instead of failing, so the pipeline degrades to zero candidates.
type Discoverer struct {
	service searchService
	verbose bool
}

// NewDiscoverer creates a Discoverer backed by the Google Custom Search API.
// Missing credentials do not produce an error; they produce a Discoverer
// whose searches come back empty.
func NewDiscoverer(ctx context.Context, apiKey, searchEngineID string, verbose bool) *Discoverer {
	if apiKey == "" || searchEngineID == "" {
		if verbose {
			log.Printf("[DISCOVERY] missing GOOGLE_API_KEY or CUSTOM_SEARCH_ENGINE_ID, discovery disabled")
		}
		return &Discoverer{verbose: verbose}
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		if verbose {
			log.Printf("[DISCOVERY] failed to create customsearch service: %v", err)
		}
		return &Discoverer{verbose: verbose}
	}

	return &Discoverer{
		service: &customSearchService{svc: svc, cx: searchEngineID},
		verbose: verbose,
	}
}

// newDiscovererWithService wires a custom search backend, for tests.
func newDiscovererWithService(service searchService, verbose bool) *Discoverer {
	return &Discoverer{service: service, verbose: verbose}
}

// Discover returns up to maxResults profile URLs matching the query, in the
// API's relevance order with duplicates removed. Any API or network error
// degrades to an empty result rather than an error: discovery failure means
// "no candidates found," not a pipeline crash.
func (d *Discoverer) Discover(ctx context.Context, searchQuery string, maxResults int) []string {
	if d.service == nil {
		return nil
	}
	if maxResults < 1 {
		return nil
	}

	query := searchQuery
	if !strings.Contains(query, ProfileSiteFilter) {
		query = fmt.Sprintf("%s %s", query, ProfileSiteFilter)
	}

	num := int64(maxResults)
	if num > maxResultsPerCall {
		num = maxResultsPerCall
	}

	urls, err := d.service.Search(ctx, query, num)
	if err != nil {
		if d.verbose {
			log.Printf("[DISCOVERY] search failed: %v", err)
		}
		return nil
	}

	deduped := dedupe(urls)
	if len(deduped) > maxResults {
		deduped = deduped[:maxResults]
	}

	if d.verbose {
		log.Printf("[DISCOVERY] found %d potential profile URLs", len(deduped))
	}
	return deduped
}

// dedupe removes duplicate URLs, keeping the first occurrence of each.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}
	return unique
}
