package carousel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// Extraction is the outcome of one successful slide extraction. Strategy and
// Pattern name the locator/parse combination that produced the URL, which the
// pipeline logs so markup drift shows up in the field.
type Extraction struct {
	URL      string
	Strategy string
	Pattern  string
}

// parsePattern is one URL-parse form tried against a style string. The order
// of parsePatterns is a contract: quoted forms are more specific than the
// unquoted catch-all and must be tried first.
type parsePattern struct {
	name string
	re   *regexp.Regexp
}

var parsePatterns = []parsePattern{
	{"double-quoted", regexp.MustCompile(`url\(\s*"([^"]+)"\s*\)`)},
	{"single-quoted", regexp.MustCompile(`url\(\s*'([^']+)'\s*\)`)},
	{"entity-quoted", regexp.MustCompile(`url\(\s*&quot;?(.+?)&quot;?\s*\)`)},
	{"unquoted", regexp.MustCompile(`url\(\s*([^)"']+?)\s*\)`)},
}

// tryParse runs the ordered parse patterns against a style string and returns
// the first non-empty match.
func tryParse(style string) (url, pattern string, ok bool) {
	for _, p := range parsePatterns {
		if m := p.re.FindStringSubmatch(style); m != nil && m[1] != "" {
			return m[1], p.name, true
		}
	}
	return "", "", false
}

// locatorStrategy finds the element that should carry the media URL for a
// position. Strategies are ordered specific-to-generic; the first strategy
// whose element yields a parseable URL wins.
type locatorStrategy struct {
	name   string
	locate func(root *html.Node, pos int) *html.Node
}

// Extractor recovers one media URL per carousel position from rendered HTML
// snapshots. The remote markup varies across observed profiles, so extraction
// walks an ordered strategy chain instead of trusting a single selector.
type Extractor struct {
	container  cascadia.Sel
	urlHint    string
	strategies []locatorStrategy
}

// roleImgSel matches elements announcing themselves as images.
var roleImgSel = mustSel(`[role="img"]`)

func mustSel(s string) cascadia.Sel {
	sel, err := cascadia.Parse(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// NewExtractor compiles the container selector and builds the strategy chain.
// urlHint, when non-empty, rejects candidate URLs not containing it.
func NewExtractor(containerSelector, urlHint string) (*Extractor, error) {
	e := &Extractor{urlHint: urlHint}
	if containerSelector != "" {
		sel, err := cascadia.Parse(containerSelector)
		if err != nil {
			return nil, fmt.Errorf("carousel container selector %q: %w", containerSelector, err)
		}
		e.container = sel
	}
	e.strategies = []locatorStrategy{
		{"position-label", locateByPositionLabel},
		{"image-role", locateByImageRole},
		{"inline-background", locateByInlineBackground},
		{"first-styled-child", locateFirstStyledChild},
	}
	return e, nil
}

// Extract recovers the media URL for the given position from a snapshot.
// Failure is reported, not thrown: the caller decides whether it is fatal
// (position 1) or skippable.
func (e *Extractor) Extract(rawHTML string, pos int) (Extraction, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return Extraction{}, models.NewScrapeError(
			models.ErrCodeSlideExtraction,
			fmt.Sprintf("position %d: failed to parse snapshot", pos),
			err,
		)
	}

	root := doc
	if e.container != nil {
		if n := cascadia.Query(doc, e.container); n != nil {
			root = n
		}
	}

	for _, strat := range e.strategies {
		node := strat.locate(root, pos)
		if node == nil {
			continue
		}
		style := styleSource(node)
		if style == "" {
			continue
		}
		raw, pattern, ok := tryParse(style)
		if !ok {
			continue
		}
		u := Normalize(raw)
		if u == "" || (e.urlHint != "" && !strings.Contains(u, e.urlHint)) {
			continue
		}
		return Extraction{URL: u, Strategy: strat.name, Pattern: pattern}, nil
	}

	return Extraction{}, models.NewScrapeError(
		models.ErrCodeSlideExtraction,
		fmt.Sprintf("position %d: no locator/pattern combination matched", pos),
		nil,
	)
}

// positionLabels are the accessible-label spellings observed for a slide.
func positionLabels(pos int) []string {
	return []string{
		fmt.Sprintf("Profile Photo %d", pos),
		fmt.Sprintf("Profile Image %d", pos),
	}
}

// locateByPositionLabel finds the element whose accessible label names the
// position explicitly. This is the most specific marker and always wins when
// present; for position 1 it is the primary-photo marker.
func locateByPositionLabel(root *html.Node, pos int) *html.Node {
	labels := positionLabels(pos)
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		label := attr(n, "aria-label")
		for _, want := range labels {
			if strings.EqualFold(strings.TrimSpace(label), want) {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// locateByImageRole finds the first visible element with an image role.
func locateByImageRole(root *html.Node, _ int) *html.Node {
	for _, n := range cascadia.QueryAll(root, roleImgSel) {
		if !isHidden(n) {
			return n
		}
	}
	return nil
}

// locateByInlineBackground finds the first visible element whose inline style
// carries a background-image.
func locateByInlineBackground(root *html.Node, _ int) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if strings.Contains(attr(n, "style"), "background-image") && !isHidden(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// locateFirstStyledChild is the last resort: the first element under the
// container carrying any inline style at all.
func locateFirstStyledChild(root *html.Node, _ int) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n != root && attr(n, "style") != "" {
			found = n
			return false
		}
		return true
	})
	return found
}

// styleSource returns the style string to parse for a located element: its
// own inline style, or the first descendant style mentioning background-image
// when the located element is only a labeled wrapper.
func styleSource(n *html.Node) string {
	if s := attr(n, "style"); strings.Contains(s, "background-image") {
		return s
	}
	var style string
	walk(n, func(c *html.Node) bool {
		if style != "" {
			return false
		}
		if s := attr(c, "style"); strings.Contains(s, "background-image") {
			style = s
			return false
		}
		return true
	})
	if style != "" {
		return style
	}
	return attr(n, "style")
}
