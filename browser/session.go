package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/RomanSlack/FirstChat-BackEnd/config"
	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// Session owns one browser and the single page every carousel operation acts
// on. Gesture timing and DOM settling on the shared page are inherently racy,
// so Session is NOT safe for concurrent use; callers must serialize access.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     config.BrowserConfig
	router  *rod.HijackRouter
}

// NewSession launches a browser and opens one blank page.
func NewSession(cfg config.BrowserConfig) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.MustClose()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}

	return &Session{browser: browser, page: page, cfg: cfg}, nil
}

// Open navigates the session page to the target URL and waits for the DOM to
// stabilise.
//
// Order matters: stealth JS and the resource hijack only take effect for
// navigations that happen after they are installed, so both are mounted
// before Navigate.
func (s *Session) Open(ctx context.Context, targetURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if s.cfg.Stealth {
		if _, evalErr := s.page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if s.router == nil {
		s.router = setupHijack(s.page, s.cfg.BlockedResourceTypes)
	}

	// A plausible Referer keeps some CDNs from flagging the first visit.
	if u, parseErr := url.Parse(targetURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer":         "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
				"Accept-Language": "en-US,en;q=0.9",
			}),
		}.Call(s.page)
	}

	p := s.page.Context(navCtx)
	if err := p.Navigate(targetURL); err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}
	return nil
}

// HTML returns the rendered HTML of the session page.
func (s *Session) HTML(ctx context.Context) (string, error) {
	raw, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return raw, nil
}

// FinalURL returns the page's current location (best-effort).
func (s *Session) FinalURL(ctx context.Context) string {
	return evalStringOrEmpty(s.page.Context(ctx), `() => window.location.href`)
}

// Close stops the hijack router and kills the browser process. Call this on
// shutdown to prevent zombie Chrome processes.
func (s *Session) Close() {
	if s.router != nil {
		_ = s.router.Stop()
	}
	slog.Info("session shutting down: closing browser")
	s.browser.MustClose()
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw rod errors into typed ScrapeErrors.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "operation canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
