package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/RomanSlack/FirstChat-BackEnd/carousel"
	"github.com/RomanSlack/FirstChat-BackEnd/config"
	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// statusError is an HTTP-level failure. Only 5xx codes are retryable; 401/403
// mean the URL needs the browser's session and other 4xx codes are final.
type statusError struct {
	Code int
}

func (e *statusError) Error() string { return fmt.Sprintf("http status %d", e.Code) }

func (e *statusError) authRequired() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// contentTypeError marks a 2xx response whose payload is not an image.
type contentTypeError struct {
	ContentType string
	Size        int
}

func (e *contentTypeError) Error() string {
	return fmt.Sprintf("content type %q (%d bytes), expected image/*", e.ContentType, e.Size)
}

// signedURLRe matches query parameters of URL-signing schemes. A signed URL is
// bound to the browser session and cannot be fetched out of band, so the
// manager records it instead of burning retries on a guaranteed 403.
var signedURLRe = regexp.MustCompile(`(?i)[?&](x-amz-signature|x-goog-signature|signature|key-pair-id|policy|token)=`)

// IsSignedURL reports whether the URL carries a signature query parameter.
func IsSignedURL(u string) bool {
	return signedURLRe.MatchString(u)
}

// Manager downloads labeled media URLs into a directory. Fetches run in
// batches of cfg.BatchSize and are paced by a shared rate limiter; one URL's
// failure never aborts the others.
type Manager struct {
	fetcher Fetcher
	cfg     config.DownloadConfig
	dir     string
	limiter *rate.Limiter

	// OnProgress, when set, is called after each URL completes with the
	// number done so far and the total. Calls are serialized.
	OnProgress func(done, total int)
}

// NewManager creates a download manager writing into dir.
func NewManager(fetcher Fetcher, cfg config.DownloadConfig, dir string) *Manager {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Manager{
		fetcher: fetcher,
		cfg:     cfg,
		dir:     dir,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FetchAll downloads every entry and returns one result per entry, in entry
// order. The only error it returns is context cancellation; everything else
// is absorbed into the results.
func (m *Manager) FetchAll(ctx context.Context, entries []models.LabeledURL) ([]models.DownloadResult, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	results := make([]models.DownloadResult, len(entries))

	var mu sync.Mutex
	done := 0

	// Fixed batches, each awaited in full before the next starts. A slow URL
	// holds its whole batch; later entries never jump the queue.
	for batchStart := 0; batchStart < len(entries); batchStart += m.cfg.BatchSize {
		batchEnd := min(batchStart+m.cfg.BatchSize, len(entries))

		g, gctx := errgroup.WithContext(ctx)
		for i := batchStart; i < batchEnd; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = m.downloadOne(gctx, entries[i])
				mu.Lock()
				done++
				if m.OnProgress != nil {
					m.OnProgress(done, len(entries))
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// downloadOne fetches a single entry with bounded retries and classifies the
// outcome. It never returns an error: failures become structured results.
func (m *Manager) downloadOne(ctx context.Context, entry models.LabeledURL) models.DownloadResult {
	// Registry entries arrive normalized, but URLs can reach the manager from
	// other callers too. Normalizing again is idempotent and keeps an
	// entity-encoded URL from going out on the wire as-is.
	entry.URL = carousel.Normalize(entry.URL)
	res := models.DownloadResult{LabeledURL: entry, FailureKind: models.FailureNone}

	if IsSignedURL(entry.URL) {
		slog.Info("signed URL, recording for in-session retrieval",
			"label", entry.Label)
		res.FailureKind = models.FailureAuthRequired
		res.LocalPath = m.writeSidecar(entry)
		return res
	}

	var body []byte
	var contentType string
	badTypeRetried := false

	policy := Policy{
		MaxRetries: m.cfg.MaxRetries,
		Delay:      m.cfg.RetryDelay,
		Retryable: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.Code >= 500
			}
			var cte *contentTypeError
			if errors.As(err, &cte) {
				// A small non-image payload is usually an error page served
				// with 200; one fresh attempt is worth it.
				if cte.Size < m.cfg.MinImageBytes && !badTypeRetried {
					badTypeRetried = true
					return true
				}
				return false
			}
			return true // transport errors
		},
	}

	err := policy.Do(ctx, func() error {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		fr, err := m.fetcher.Fetch(ctx, entry.URL)
		if err != nil {
			return err
		}
		if fr.StatusCode < 200 || fr.StatusCode >= 300 {
			return &statusError{Code: fr.StatusCode}
		}
		if !strings.HasPrefix(fr.ContentType, "image/") {
			return &contentTypeError{ContentType: fr.ContentType, Size: len(fr.Body)}
		}
		body = fr.Body
		contentType = fr.ContentType
		return nil
	})
	if err != nil {
		res.FailureKind = classify(err)
		if res.FailureKind == models.FailureAuthRequired {
			res.LocalPath = m.writeSidecar(entry)
		}
		slog.Warn("download failed",
			"label", entry.Label, "kind", string(res.FailureKind), "error", err)
		return res
	}

	path := filepath.Join(m.dir, fileName(entry.Label, entry.URL, contentType))
	if err := writeAtomic(path, body); err != nil {
		slog.Warn("download could not be persisted", "label", entry.Label, "error", err)
		res.FailureKind = models.FailureNetworkError
		return res
	}

	slog.Debug("downloaded", "label", entry.Label, "path", path, "bytes", len(body))
	res.Succeeded = true
	res.LocalPath = path
	return res
}

// classify maps a final download error onto a failure kind.
func classify(err error) models.FailureKind {
	var se *statusError
	if errors.As(err, &se) {
		if se.authRequired() {
			return models.FailureAuthRequired
		}
		return models.FailureServerError
	}
	var cte *contentTypeError
	if errors.As(err, &cte) {
		return models.FailureBadContentType
	}
	return models.FailureNetworkError
}

// writeSidecar persists the URL itself next to where the binary would live,
// so an authenticated caller can retrieve the media later. Returns the
// sidecar path, or "" if even that failed.
func (m *Manager) writeSidecar(entry models.LabeledURL) string {
	path := filepath.Join(m.dir, baseName(entry.Label)+".url")
	if err := writeAtomic(path, []byte(entry.URL+"\n")); err != nil {
		slog.Warn("sidecar write failed", "label", entry.Label, "error", err)
		return ""
	}
	return path
}

// writeAtomic writes via a temp file and rename so a crashed run never leaves
// a truncated file behind.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// baseName turns a label into a filesystem-safe stem ("Profile Photo 1" ->
// "profile_photo_1").
func baseName(label string) string {
	stem := strings.ToLower(strings.TrimSpace(label))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, stem)
	return strings.Trim(stem, "_")
}

// fileName picks the stem from the label and the extension from the URL,
// falling back to the content type, then to .jpg.
func fileName(label, mediaURL, contentType string) string {
	return baseName(label) + extFor(mediaURL, contentType)
}

func extFor(mediaURL, contentType string) string {
	lower := strings.ToLower(mediaURL)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range []string{".webp", ".jpeg", ".jpg", ".png", ".gif", ".avif"} {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	switch {
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/gif"):
		return ".gif"
	case strings.HasPrefix(contentType, "image/avif"):
		return ".avif"
	}
	return ".jpg"
}
