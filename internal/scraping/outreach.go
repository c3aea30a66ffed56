package scraping

import (
	"context"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// PacingDelay is the deliberate pause between consecutive profile cycles.
// Hammering the platform gets the session flagged by abuse detection.
const PacingDelay = 2 * time.Second

// Button search expressions for the connection-request flow. XPath text
// search because the platform does not expose stable ids on these controls.
const (
	connectButtonXPath = `//button[contains(., 'Invite') and contains(., 'to connect')]`
	addNoteXPath       = `//button[contains(., 'Add a note')]`
	sendNowXPath       = `//button[contains(., 'Send now')]`
	dismissSelector    = `button[aria-label='Dismiss']`
	noteFieldSelector  = `#custom-message`
)

// Dispatcher delivers outreach messages through the profile platform's
// native connection-request flow.
type Dispatcher struct {
	session *Session
	verbose bool
}

// NewDispatcher creates a dispatcher bound to a browsing session.
func NewDispatcher(session *Session, verbose bool) *Dispatcher {
	return &Dispatcher{session: session, verbose: verbose}
}

// Dispatch attempts to send a connection request with the given note.
// Returns whether the request was sent. UI misses, timeouts, and navigation
// errors all come back as false; dispatch failure never invalidates the
// candidate's evaluation or blocks the rest of the run.
func (d *Dispatcher) Dispatch(ctx context.Context, profileURL, message string) bool {
	err := d.session.run(ctx,
		chromedp.Navigate(profileURL),
		chromedp.WaitReady("body"),
		chromedp.Click(connectButtonXPath, chromedp.BySearch),
		chromedp.Click(addNoteXPath, chromedp.BySearch),
		chromedp.WaitVisible(noteFieldSelector, chromedp.ByQuery),
		chromedp.SendKeys(noteFieldSelector, message, chromedp.ByQuery),
		chromedp.Click(sendNowXPath, chromedp.BySearch),
	)
	if err != nil {
		if d.verbose {
			log.Printf("[OUTREACH] failed to send connection request to %s: %v", profileURL, err)
		}
		// Close any half-open modal so the next profile starts clean.
		_ = d.session.run(ctx, chromedp.Click(dismissSelector, chromedp.ByQuery))
		return false
	}

	if d.verbose {
		log.Printf("[OUTREACH] sent connection request to %s", profileURL)
	}
	return true
}
