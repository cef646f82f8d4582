package carousel

import (
	"fmt"

	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// PrimaryLabel is the label of the designated position-1 media item. Its
// presence in the registry is the pipeline's hard invariant.
const PrimaryLabel = "Profile Photo 1"

// Label returns the semantic label for a carousel position.
func Label(position int) string {
	return fmt.Sprintf("Profile Photo %d", position)
}

// Registry assigns stable labels to recovered URLs, keeps insertion order,
// and collapses duplicate URLs onto their first-seen label. State is scoped
// to one pipeline run.
type Registry struct {
	entries []models.LabeledURL
	byURL   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byURL: make(map[string]int)}
}

// Register records a URL recovered at a position and returns the entry that
// now represents it. The second return value is false when the URL was a
// duplicate and kept its earlier label.
//
// Position 1 is registered unconditionally: the primary entry bypasses
// deduplication so that no later collapse can drop it.
func (r *Registry) Register(position int, url string) (models.LabeledURL, bool) {
	if position == 1 {
		e := models.LabeledURL{Label: PrimaryLabel, URL: url, Position: 1}
		r.entries = append(r.entries, e)
		if _, seen := r.byURL[url]; !seen {
			r.byURL[url] = len(r.entries) - 1
		}
		return e, true
	}

	if idx, seen := r.byURL[url]; seen {
		return r.entries[idx], false
	}

	e := models.LabeledURL{Label: Label(position), URL: url, Position: position}
	r.entries = append(r.entries, e)
	r.byURL[url] = len(r.entries) - 1
	return e, true
}

// Entries returns the registered URLs in insertion order.
func (r *Registry) Entries() []models.LabeledURL {
	out := make([]models.LabeledURL, len(r.entries))
	copy(out, r.entries)
	return out
}

// Primary returns the primary entry, if present.
func (r *Registry) Primary() (models.LabeledURL, bool) {
	for _, e := range r.entries {
		if e.Label == PrimaryLabel {
			return e, true
		}
	}
	return models.LabeledURL{}, false
}

// RequirePrimary returns the primary entry or the pipeline's single fatal
// invariant violation. No other image may be substituted as primary.
func (r *Registry) RequirePrimary() (models.LabeledURL, error) {
	if e, ok := r.Primary(); ok {
		return e, nil
	}
	return models.LabeledURL{}, models.NewScrapeError(
		models.ErrCodePrimaryMediaMissing,
		"no media registered under the primary label; refusing to relabel another image",
		nil,
	)
}
