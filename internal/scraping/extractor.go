package scraping

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// AuthWallReason marks profiles that redirected to the platform login page.
const AuthWallReason = "authentication required - hit auth wall"

const (
	maxExperienceEntries = 5
	maxEducationEntries  = 3
)

// renderer is the browser capability the extractor needs. *Session satisfies
// it; tests substitute a stub.
type renderer interface {
	Render(ctx context.Context, url string) (html string, finalURL string, err error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Extractor converts rendered profile pages into structured fields.
// Every failure mode surfaces as a marked ExtractedProfile, never an error.
type Extractor struct {
	browser renderer
	// debugDir, when set, receives a screenshot per scraped profile.
	debugDir string
	verbose  bool
}

// NewExtractor creates an extractor bound to a browsing session.
func NewExtractor(session *Session, debugDir string, verbose bool) *Extractor {
	return &Extractor{browser: session, debugDir: debugDir, verbose: verbose}
}

func newExtractorWithRenderer(r renderer, verbose bool) *Extractor {
	return &Extractor{browser: r, verbose: verbose}
}

// Extract renders a profile page and pulls out name, headline, experience,
// and education. Navigation errors, auth walls, and selector misses all
// degrade to a profile carrying a failure marker or Unknown fields.
func (e *Extractor) Extract(ctx context.Context, profileURL string) *types.ExtractedProfile {
	html, finalURL, err := e.browser.Render(ctx, profileURL)
	if err != nil {
		return failedProfile(profileURL, err.Error())
	}

	if hitAuthWall(finalURL) {
		if e.verbose {
			log.Printf("[SCRAPE] auth wall at %s", finalURL)
		}
		return failedProfile(profileURL, AuthWallReason)
	}

	e.saveDebugScreenshot(ctx, profileURL)

	profile, err := parseProfileHTML(html, profileURL)
	if err != nil {
		return failedProfile(profileURL, err.Error())
	}

	if e.verbose {
		log.Printf("[SCRAPE] %s: %d experience entries, %d education entries",
			profile.Name, len(profile.Experience), len(profile.Education))
	}
	return profile
}

func failedProfile(profileURL, reason string) *types.ExtractedProfile {
	return &types.ExtractedProfile{
		ProfileURL: profileURL,
		Name:       types.Unknown,
		Headline:   types.Unknown,
		Experience: []types.ExperienceEntry{},
		Education:  []types.EducationEntry{},
		Error:      reason,
	}
}

// hitAuthWall reports whether navigation was redirected to a login page.
func hitAuthWall(finalURL string) bool {
	return strings.Contains(finalURL, "authwall") || strings.Contains(finalURL, "login")
}

func (e *Extractor) saveDebugScreenshot(ctx context.Context, profileURL string) {
	if e.debugDir == "" {
		return
	}

	buf, err := e.browser.Screenshot(ctx)
	if err != nil {
		if e.verbose {
			log.Printf("[SCRAPE] could not capture screenshot: %v", err)
		}
		return
	}

	slug := profileURL[strings.LastIndex(strings.TrimSuffix(profileURL, "/"), "/")+1:]
	slug = strings.TrimSuffix(slug, "/")
	path := filepath.Join(e.debugDir, fmt.Sprintf("debug_%s.png", slug))
	if err := os.WriteFile(path, buf, 0o644); err != nil && e.verbose {
		log.Printf("[SCRAPE] could not save screenshot: %v", err)
	}
}

// nameSelectors are tried in order; profile page markup drifts often, so
// several generations of selectors are kept.
var nameSelectors = []string{
	"h1.text-heading-xlarge",
	"h1[data-test='profile-title']",
	".profile-info__name",
	"h1.top-card-layout__title",
	".top-card-layout__title",
	".pv-text-details__title",
	".artdeco-entity-lockup__title",
	"h1",
}

var headlineSelectors = []string{
	".top-card-layout__headline",
	".pv-text-details__title-text",
	".profile-info__headline",
	".text-body-medium.break-words",
	"div.text-body-medium",
}

// entryClassMarkers identify list items that hold one experience or
// education record across profile markup generations.
var entryClassMarkers = []string{"pvs-entity", "experience-item", "education-item", "entity-result", "profile-section-card"}

var titleKeywords = []string{"engineer", "developer", "manager", "analyst", "director", "ceo", "founder", "lead"}

var companyKeywords = []string{"inc", "corp", "company", "ltd", "llc"}

var degreeKeywords = []string{"bachelor", "master", "phd", "degree", "engineering", "science", "arts"}

var schoolKeywords = []string{"university", "college", "institute", "school"}

// parseProfileHTML extracts structured fields from rendered profile HTML.
// Fields the selectors cannot resolve come back as Unknown.
func parseProfileHTML(html, profileURL string) (*types.ExtractedProfile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile HTML: %w", err)
	}

	profile := &types.ExtractedProfile{
		ProfileURL: profileURL,
		Name:       firstText(doc, nameSelectors),
		Headline:   firstText(doc, headlineSelectors),
		Experience: []types.ExperienceEntry{},
		Education:  []types.EducationEntry{},
	}

	for _, item := range sectionEntries(doc, "experience", maxExperienceEntries) {
		entry := classifyExperience(item)
		if entry.Title != types.Unknown && len(entry.Title) > 2 {
			profile.Experience = append(profile.Experience, entry)
		}
	}

	for _, item := range sectionEntries(doc, "education", maxEducationEntries) {
		entry := classifyEducation(item)
		if entry.School != types.Unknown && len(entry.School) > 2 {
			profile.Education = append(profile.Education, entry)
		}
	}

	return profile, nil
}

// firstText returns the text of the first selector that matches a non-empty
// element, or Unknown when none do.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return types.Unknown
}

// sectionEntries finds the profile section for the given topic (by element
// id, falling back to section text) and returns the text lines of up to
// limit entry items within it.
func sectionEntries(doc *goquery.Document, topic string, limit int) [][]string {
	sections := doc.Find("section").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if id, ok := s.Attr("id"); ok && strings.Contains(strings.ToLower(id), topic) {
			return true
		}
		return false
	})
	if sections.Length() == 0 {
		// Layout drift fallback: any section whose text mentions the topic.
		sections = doc.Find("section").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.Text()), topic)
		})
	}

	var entries [][]string
	sections.EachWithBreak(func(_ int, section *goquery.Selection) bool {
		section.Find("li, div").EachWithBreak(func(_ int, item *goquery.Selection) bool {
			if !hasEntryClass(item) {
				return true
			}
			lines := textLines(item)
			if len(lines) > 0 {
				entries = append(entries, lines)
			}
			return len(entries) < limit
		})
		return len(entries) < limit
	})
	return entries
}

func hasEntryClass(item *goquery.Selection) bool {
	class, ok := item.Attr("class")
	if !ok {
		return false
	}
	class = strings.ToLower(class)
	for _, marker := range entryClassMarkers {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}

// textLines collects the trimmed text of leaf elements inside an entry,
// collapsing the duplicates profile markup produces for visually-hidden spans.
func textLines(item *goquery.Selection) []string {
	var lines []string
	item.Find("span, div, a, p, h3, h4").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if len(lines) > 0 && lines[len(lines)-1] == text {
			return
		}
		lines = append(lines, text)
	})
	return lines
}

// classifyExperience maps an entry's text lines onto title/company/duration
// using positional and keyword heuristics.
func classifyExperience(lines []string) types.ExperienceEntry {
	entry := types.ExperienceEntry{Title: types.Unknown, Company: types.Unknown, Duration: types.Unknown}

	for i, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case entry.Title == types.Unknown && (i == 0 || containsAny(lower, titleKeywords)):
			entry.Title = line
		case entry.Company == types.Unknown && (containsAny(lower, companyKeywords) || i == 1):
			entry.Company = line
		case entry.Duration == types.Unknown && looksLikeDuration(lower):
			entry.Duration = line
		}
	}
	return entry
}

// classifyEducation maps an entry's text lines onto school/degree/duration.
func classifyEducation(lines []string) types.EducationEntry {
	entry := types.EducationEntry{School: types.Unknown, Degree: types.Unknown, Duration: types.Unknown}

	for i, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case entry.School == types.Unknown && (i == 0 || containsAny(lower, schoolKeywords)):
			entry.School = line
		case entry.Degree == types.Unknown && containsAny(lower, degreeKeywords):
			entry.Degree = line
		case entry.Duration == types.Unknown && looksLikeDuration(lower):
			entry.Duration = line
		}
	}
	return entry
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// looksLikeDuration matches the date-range strings profile entries carry
// ("Jan 2021 - Present · 3 yrs").
func looksLikeDuration(s string) bool {
	if strings.Contains(s, "present") || strings.Contains(s, "year") || strings.Contains(s, "month") || strings.Contains(s, "yrs") || strings.Contains(s, "mos") {
		return true
	}
	for year := 2000; year <= 2030; year++ {
		if strings.Contains(s, fmt.Sprintf("%d", year)) {
			return true
		}
	}
	return false
}
