// Package pipeline wires the scrape end to end: open the page, size the
// carousel, walk every position, download the media and persist the record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/cascadia"

	"github.com/RomanSlack/FirstChat-BackEnd/carousel"
	"github.com/RomanSlack/FirstChat-BackEnd/config"
	"github.com/RomanSlack/FirstChat-BackEnd/download"
	"github.com/RomanSlack/FirstChat-BackEnd/firstchat"
	"github.com/RomanSlack/FirstChat-BackEnd/models"
	"github.com/RomanSlack/FirstChat-BackEnd/profile"
)

// Status is the overall outcome of one run.
type Status string

const (
	// StatusSuccess means every position was extracted and every download
	// produced its binary.
	StatusSuccess Status = "success"

	// StatusDegraded means a complete record was persisted, but one or more
	// positions or downloads fell short.
	StatusDegraded Status = "degraded"

	// StatusFatal means no complete record exists; only a diagnostic partial
	// record was written.
	StatusFatal Status = "fatal"
)

// MessageFile is the artifact holding the generated opening message.
const MessageFile = "message.txt"

// Session is the single browser page the pipeline drives. All calls are
// strictly sequential.
type Session interface {
	Open(ctx context.Context, targetURL string) error
	HTML(ctx context.Context) (string, error)
	Tap(ctx context.Context, xFrac, yFrac float64) error
}

// MessageGenerator produces the opening message from an assembled request.
type MessageGenerator interface {
	Generate(ctx context.Context, req firstchat.GenerateRequest) (*firstchat.GenerateResponse, error)
}

// Result is what one run produced.
type Result struct {
	Status  Status
	Record  models.ProfileRecord
	RunDir  string
	Message string

	// FatalErr carries the cause when Status is StatusFatal.
	FatalErr error
}

// Pipeline runs one scrape against one page.
type Pipeline struct {
	cfg     *config.Config
	session Session
	fetcher download.Fetcher

	// MsgGen, when non-nil, is called after persistence to generate the
	// opening message. Its failure degrades the run, never aborts it.
	MsgGen MessageGenerator

	// OnDownloadProgress is forwarded to the download manager.
	OnDownloadProgress func(done, total int)

	now func() time.Time
}

// New creates a pipeline over an already-launched session.
func New(cfg *config.Config, session Session, fetcher download.Fetcher) *Pipeline {
	return &Pipeline{cfg: cfg, session: session, fetcher: fetcher, now: time.Now}
}

// Run executes the scrape. A non-nil error means the run could not even be
// attempted (bad configuration, unreachable page); fatal extraction outcomes
// come back as a StatusFatal result instead.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.now()

	var containerSel cascadia.Sel
	if s := p.cfg.Target.CarouselSelector; s != "" {
		sel, err := cascadia.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("carousel selector %q: %w", s, err)
		}
		containerSel = sel
	}

	// ── 1. Open the target page ──────────────────────────────────────
	if err := p.session.Open(ctx, p.cfg.Target.URL); err != nil {
		return nil, fmt.Errorf("open target page: %w", err)
	}
	slog.Info("page opened", "url", p.cfg.Target.URL)

	// ── 2. Identity fields from the initial snapshot ─────────────────
	raw, err := p.session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	identity, err := profile.ParseIdentity(raw, p.cfg.Target)
	if err != nil {
		slog.Warn("identity extraction failed, continuing with empty identity", "error", err)
		identity = models.Identity{Interests: []string{}}
	}
	slog.Info("identity extracted", "name", identity.Name, "interests", len(identity.Interests))

	runDir := profile.RunDir(p.cfg.Output.Dir, identity.Name, start)

	// ── 3. Size the carousel ─────────────────────────────────────────
	state, err := carousel.ReadStateHTML(raw, containerSel)
	if err != nil {
		return p.fatal(runDir, identity, nil, nil, err)
	}
	total := state.TotalPositions
	if limit := p.cfg.Carousel.MaxPositions; limit > 0 && total > limit {
		slog.Warn("carousel reports more positions than allowed, clamping",
			"reported", total, "max", limit)
		total = limit
	}
	slog.Info("carousel sized", "total", total, "active", state.ActivePosition)

	// ── 4. Walk every position and collect URLs ──────────────────────
	extractor, err := carousel.NewExtractor(p.cfg.Target.CarouselSelector, p.cfg.Target.MediaURLHint)
	if err != nil {
		return nil, err
	}
	nav := carousel.NewNavigator(p.session, p.cfg.Carousel, state.ActivePosition)
	registry := carousel.NewRegistry()
	degraded := false

	for pos := 1; pos <= total; pos++ {
		if err := nav.GotoPosition(ctx, pos); err != nil {
			slog.Error("navigation failed, stopping traversal", "position", pos, "error", err)
			degraded = true
			break
		}
		snap, err := p.session.HTML(ctx)
		if err != nil {
			slog.Error("snapshot failed, stopping traversal", "position", pos, "error", err)
			degraded = true
			break
		}
		if st, stErr := carousel.ReadStateHTML(snap, containerSel); stErr == nil && st.ActivePosition != pos {
			slog.Warn("carousel position drifted", "expected", pos, "reported", st.ActivePosition)
		}

		ext, err := extractor.Extract(snap, pos)
		if err != nil {
			slog.Warn("no media recovered at position", "position", pos, "error", err)
			if pos != 1 {
				degraded = true
			}
			continue
		}
		entry, fresh := registry.Register(pos, ext.URL)
		slog.Debug("media recovered",
			"position", pos, "label", entry.Label,
			"strategy", ext.Strategy, "pattern", ext.Pattern, "duplicate", !fresh)
	}

	// ── 5. Return the carousel to its resting position ───────────────
	if err := nav.Restore(ctx, total); err != nil {
		slog.Warn("failed to restore carousel position", "error", err)
	}

	// ── 6. The primary entry is non-negotiable ───────────────────────
	if _, err := registry.RequirePrimary(); err != nil {
		return p.fatal(runDir, identity, registry.Entries(), &state, err)
	}
	entries := registry.Entries()
	if len(entries) < total {
		degraded = true
	}

	// ── 7. Download the media ────────────────────────────────────────
	manager := download.NewManager(p.fetcher, p.cfg.Download, runDir)
	manager.OnProgress = p.OnDownloadProgress
	downloads, err := manager.FetchAll(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("downloads aborted: %w", err)
	}
	for _, d := range downloads {
		if !d.Succeeded {
			degraded = true
		}
	}

	// ── 8. Assemble and persist the record ───────────────────────────
	rec, err := profile.Assemble(identity, entries, downloads, p.now())
	if err != nil {
		return p.fatal(runDir, identity, entries, &state, err)
	}
	summarizer := profile.NewSummarizer()
	summary := summarizer.Render(rec, summarizer.SectionsMarkdown(raw, p.cfg.Target.SectionSelector))
	if err := profile.Persist(runDir, rec, summary); err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}

	res := &Result{Record: rec, RunDir: runDir, Status: StatusSuccess}
	if degraded {
		res.Status = StatusDegraded
	}

	// ── 9. Optional opening message ──────────────────────────────────
	if p.MsgGen != nil {
		msg, err := p.generateMessage(ctx, rec, runDir)
		if err != nil {
			slog.Warn("message generation failed", "error", err)
			res.Status = StatusDegraded
		} else {
			res.Message = msg
		}
	}

	slog.Info("run finished",
		"status", string(res.Status),
		"media", len(rec.Media),
		"elapsed", p.now().Sub(start).Round(time.Millisecond))
	return res, nil
}

// generateMessage builds the request from the persisted record, calls the
// API and writes the message artifact.
func (p *Pipeline) generateMessage(ctx context.Context, rec models.ProfileRecord, runDir string) (string, error) {
	req, err := firstchat.BuildRequest(rec, p.cfg.Message)
	if err != nil {
		return "", err
	}
	resp, err := p.MsgGen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	msg := resp.Data.GeneratedMessage
	if err := os.WriteFile(filepath.Join(runDir, MessageFile), []byte(msg+"\n"), 0o644); err != nil {
		slog.Warn("failed to write message artifact", "error", err)
	}
	slog.Info("opening message generated", "chars", len(msg))
	return msg, nil
}

// fatal persists the diagnostic partial record, carrying the last-known
// carousel state when one was read, and reports the fatal outcome.
func (p *Pipeline) fatal(runDir string, id models.Identity, media []models.LabeledURL, state *models.CarouselState, cause error) (*Result, error) {
	slog.Error("fatal scrape condition", "code", models.ErrorCode(cause), "error", cause)
	rec := profile.AssemblePartial(id, media, state, cause, p.now())
	if err := profile.PersistPartial(runDir, rec); err != nil {
		slog.Error("failed to persist partial record", "error", err)
	}
	return &Result{Status: StatusFatal, Record: rec, RunDir: runDir, FatalErr: cause}, nil
}
