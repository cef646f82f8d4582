package carousel

import (
	"context"
	"testing"

	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

func TestParseStateLabel(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		want   models.CarouselState
		wantOK bool
	}{
		{"plain", "3 of 5", models.CarouselState{TotalPositions: 5, ActivePosition: 3}, true},
		{"prefixed", "Photo 1 of 6", models.CarouselState{TotalPositions: 6, ActivePosition: 1}, true},
		{"slash form", "2/4", models.CarouselState{TotalPositions: 4, ActivePosition: 2}, true},
		{"uppercase", "1 OF 1", models.CarouselState{TotalPositions: 1, ActivePosition: 1}, true},
		{"extra whitespace", "4   of   9", models.CarouselState{TotalPositions: 9, ActivePosition: 4}, true},
		{"no numbers", "profile photo", models.CarouselState{}, false},
		{"empty", "", models.CarouselState{}, false},
		{"active beyond total", "6 of 5", models.CarouselState{}, false},
		{"zero active", "0 of 5", models.CarouselState{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStateLabel(tt.label)
			if ok != tt.wantOK {
				t.Fatalf("ParseStateLabel(%q) ok = %v, want %v", tt.label, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseStateLabel(%q) = %+v, want %+v", tt.label, got, tt.want)
			}
		})
	}
}

func TestParseStateLabel_ValidStatesAreWithinBounds(t *testing.T) {
	labels := []string{"1 of 1", "1 of 9", "9 of 9", "5/7"}
	for _, label := range labels {
		st, ok := ParseStateLabel(label)
		if !ok {
			t.Fatalf("ParseStateLabel(%q) unexpectedly failed", label)
		}
		if !st.Valid() {
			t.Errorf("ParseStateLabel(%q) produced out-of-bounds state %+v", label, st)
		}
	}
}

// fakePage serves a canned HTML snapshot.
type fakePage struct {
	html string
	err  error
}

func (f *fakePage) HTML(context.Context) (string, error) { return f.html, f.err }

const carouselHTML = `<html><body>
<div aria-roledescription="carousel">
  <div aria-label="1 of 3" aria-hidden="true" style="display: none"></div>
  <div aria-label="2 of 3" style="background-image: url(&quot;https://cdn.example.com/b.jpg&quot;)"></div>
  <div aria-label="3 of 3" aria-hidden="true" style="display: none"></div>
</div>
</body></html>`

func TestStateReader_Read(t *testing.T) {
	r, err := NewStateReader(&fakePage{html: carouselHTML}, `[aria-roledescription="carousel"]`)
	if err != nil {
		t.Fatalf("NewStateReader: %v", err)
	}

	st, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := models.CarouselState{TotalPositions: 3, ActivePosition: 2}
	if st != want {
		t.Errorf("Read = %+v, want %+v", st, want)
	}
}

func TestStateReader_ReadNoLabel(t *testing.T) {
	r, err := NewStateReader(&fakePage{html: `<html><body><div>no carousel here</div></body></html>`}, "")
	if err != nil {
		t.Fatalf("NewStateReader: %v", err)
	}

	_, err = r.Read(context.Background())
	if err == nil {
		t.Fatal("Read succeeded on a page without a carousel label")
	}
	if models.ErrorCode(err) != models.ErrCodeCarouselUnreadable {
		t.Errorf("error code = %q, want %q", models.ErrorCode(err), models.ErrCodeCarouselUnreadable)
	}
	if !models.IsFatal(err) {
		t.Error("CarouselUnreadable must be fatal")
	}
}

func TestStateReader_HiddenLabelsAreSkipped(t *testing.T) {
	// Every candidate hidden: the carousel cannot be sized.
	const hidden = `<html><body>
<div aria-label="1 of 2" aria-hidden="true"></div>
<div aria-label="2 of 2" style="visibility: hidden"></div>
</body></html>`

	r, _ := NewStateReader(&fakePage{html: hidden}, "")
	if _, err := r.Read(context.Background()); err == nil {
		t.Fatal("Read succeeded although all labeled items are hidden")
	}
}
