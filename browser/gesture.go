package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
)

// Tap issues one synthetic pointer tap at the given screen fractions of the
// current viewport. Fractions are clamped to (0, 1) edges so a tap never
// lands outside the page.
func (s *Session) Tap(ctx context.Context, xFrac, yFrac float64) error {
	p := s.page.Context(ctx)

	w, h, err := s.viewport(ctx)
	if err != nil {
		return fmt.Errorf("tap: read viewport: %w", err)
	}

	pt := tapPoint(w, h, xFrac, yFrac)
	if err := p.Mouse.MoveTo(pt); err != nil {
		return fmt.Errorf("tap: move to (%.0f, %.0f): %w", pt.X, pt.Y, err)
	}
	if err := p.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("tap: click at (%.0f, %.0f): %w", pt.X, pt.Y, err)
	}
	return nil
}

// viewport reads the page's inner dimensions.
func (s *Session) viewport(ctx context.Context) (int, int, error) {
	p := s.page.Context(ctx)
	res, err := p.Eval(`() => [window.innerWidth, window.innerHeight]`)
	if err != nil {
		return 0, 0, err
	}
	arr := res.Value.Arr()
	if len(arr) != 2 {
		return 0, 0, fmt.Errorf("unexpected viewport eval result")
	}
	return arr[0].Int(), arr[1].Int(), nil
}

// tapPoint converts screen fractions into a concrete point on a w×h viewport.
func tapPoint(w, h int, xFrac, yFrac float64) proto.Point {
	return proto.Point{
		X: clampToViewport(float64(w)*xFrac, float64(w)),
		Y: clampToViewport(float64(h)*yFrac, float64(h)),
	}
}

func clampToViewport(v, max float64) float64 {
	if v < 1 {
		return 1
	}
	if v > max-1 {
		return max - 1
	}
	return v
}
