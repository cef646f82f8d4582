package carousel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RomanSlack/FirstChat-BackEnd/config"
)

// Navigator drives the carousel with synthetic taps. It tracks the last known
// position to compute minimal gesture counts, and it never inspects content:
// reading what a position shows is the extractor's job.
//
// Gestures are strictly sequential. The navigator must not be used
// concurrently with itself or with extraction, because both act on the one
// shared remote-session page.
type Navigator struct {
	g   Gesturer
	cfg config.CarouselConfig
	pos int
}

// NewNavigator creates a navigator whose last known position is startPos
// (the active position read from the carousel before any gesture).
func NewNavigator(g Gesturer, cfg config.CarouselConfig, startPos int) *Navigator {
	return &Navigator{g: g, cfg: cfg, pos: startPos}
}

// Position returns the last known carousel position.
func (n *Navigator) Position() int { return n.pos }

// Advance issues one forward tap and waits for the carousel to settle.
func (n *Navigator) Advance(ctx context.Context) error {
	if err := n.g.Tap(ctx, n.cfg.AdvanceFraction, n.cfg.VerticalFraction); err != nil {
		return fmt.Errorf("advance from position %d: %w", n.pos, err)
	}
	n.pos++
	return n.settle(ctx)
}

// Retreat issues one backward tap and waits for the carousel to settle.
func (n *Navigator) Retreat(ctx context.Context) error {
	if err := n.g.Tap(ctx, n.cfg.RetreatFraction, n.cfg.VerticalFraction); err != nil {
		return fmt.Errorf("retreat from position %d: %w", n.pos, err)
	}
	n.pos--
	return n.settle(ctx)
}

// GotoPosition issues the minimal number of advance/retreat gestures to move
// from the last known position to target.
func (n *Navigator) GotoPosition(ctx context.Context, target int) error {
	if target < 1 {
		return fmt.Errorf("goto position %d: positions start at 1", target)
	}
	for n.pos < target {
		if err := n.Advance(ctx); err != nil {
			return err
		}
	}
	for n.pos > target {
		if err := n.Retreat(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Restore returns the carousel to the configured resting position (or the
// last position if the carousel is shorter), so subsequent unrelated
// interactions on the page start from a known place.
func (n *Navigator) Restore(ctx context.Context, total int) error {
	target := n.cfg.RestorePosition
	if target > total {
		target = total
	}
	if target < 1 {
		target = 1
	}
	slog.Debug("restoring carousel position", "from", n.pos, "to", target)
	return n.GotoPosition(ctx, target)
}

// settle blocks for the configured settle delay so the remote UI finishes its
// transition before the next read.
func (n *Navigator) settle(ctx context.Context) error {
	if n.cfg.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(n.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
