package capture

import "strings"

// Snapshot freezes one settled selection. It is derived from the host
// page's live range, owned exclusively by the agent, and lives only until
// the next selection-clearing event or toolbar action. It is never shared
// across contexts: what crosses the channel is the CaptureRecord built
// from it.
type Snapshot struct {
	// Text is the selection as plain text.
	Text string `json:"text"`
	// HTML is the selection's cloned markup, untrusted until sanitized.
	HTML string `json:"html"`
	// PageTitle and PageURL identify the host document.
	PageTitle string `json:"title"`
	PageURL   string `json:"url"`
	// Rect is the selection's bounding box in viewport coordinates.
	Rect Rect `json:"rect"`
	// Viewport is the page viewport at selection time.
	Viewport Size `json:"viewport"`
}

// Empty reports whether the snapshot holds no selectable content.
func (s *Snapshot) Empty() bool {
	return s == nil || strings.TrimSpace(s.Text) == ""
}
