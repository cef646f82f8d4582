package carousel

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// stateLabelRe tolerantly matches accessible labels of the form
// "<position> of <total>", including "Photo 2 of 5" and "2/5" variants.
var stateLabelRe = regexp.MustCompile(`(?i)(\d+)\s*(?:of|/)\s*(\d+)`)

// ParseStateLabel extracts a carousel state from an accessible-label string.
// The second return value is false when the label carries no parseable state.
func ParseStateLabel(label string) (models.CarouselState, bool) {
	m := stateLabelRe.FindStringSubmatch(label)
	if m == nil {
		return models.CarouselState{}, false
	}
	active, err1 := strconv.Atoi(m[1])
	total, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return models.CarouselState{}, false
	}
	st := models.CarouselState{TotalPositions: total, ActivePosition: active}
	if !st.Valid() {
		return models.CarouselState{}, false
	}
	return st, true
}

// StateReader discovers the carousel's total item count and active position
// from the currently-visible item's accessible label.
type StateReader struct {
	page      Page
	container cascadia.Sel
}

// NewStateReader compiles the container selector. An empty selector scopes
// the search to the whole document.
func NewStateReader(page Page, containerSelector string) (*StateReader, error) {
	r := &StateReader{page: page}
	if containerSelector != "" {
		sel, err := cascadia.Parse(containerSelector)
		if err != nil {
			return nil, fmt.Errorf("carousel container selector %q: %w", containerSelector, err)
		}
		r.container = sel
	}
	return r, nil
}

// Read snapshots the page and parses the active item's label. Failure means
// the carousel cannot be sized: callers must abort the extraction rather
// than assume a single image.
func (r *StateReader) Read(ctx context.Context) (models.CarouselState, error) {
	raw, err := r.page.HTML(ctx)
	if err != nil {
		return models.CarouselState{}, models.NewScrapeError(
			models.ErrCodeCarouselUnreadable,
			"failed to snapshot page for carousel state",
			err,
		)
	}
	return ReadStateHTML(raw, r.container)
}

// ReadStateHTML parses a carousel state out of a rendered HTML snapshot.
func ReadStateHTML(rawHTML string, container cascadia.Sel) (models.CarouselState, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return models.CarouselState{}, models.NewScrapeError(
			models.ErrCodeCarouselUnreadable,
			"failed to parse page HTML",
			err,
		)
	}

	root := doc
	if container != nil {
		if n := cascadia.Query(doc, container); n != nil {
			root = n
		}
	}

	// The visible item is the one whose state label parses and that is not
	// hidden; hidden siblings carry the labels of the other positions.
	var found *models.CarouselState
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		label := attr(n, "aria-label")
		if label == "" {
			label = attr(n, "aria-valuetext")
		}
		if label == "" {
			return true
		}
		st, ok := ParseStateLabel(label)
		if !ok || isHidden(n) {
			return true
		}
		found = &st
		return false
	})
	if found == nil {
		return models.CarouselState{}, models.NewScrapeError(
			models.ErrCodeCarouselUnreadable,
			"no visible carousel item exposes a parseable position label",
			nil,
		)
	}
	return *found, nil
}

// walk runs fn over n and its descendants in document order; fn returning
// false prunes descent.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// attr returns the value of the named attribute on an element node.
func attr(n *html.Node, name string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// isHidden reports whether the node is excluded from the accessibility tree
// or styled out of view.
func isHidden(n *html.Node) bool {
	if attr(n, "aria-hidden") == "true" {
		return true
	}
	style := strings.ToLower(attr(n, "style"))
	return strings.Contains(style, "display: none") ||
		strings.Contains(style, "display:none") ||
		strings.Contains(style, "visibility: hidden") ||
		strings.Contains(style, "visibility:hidden")
}
