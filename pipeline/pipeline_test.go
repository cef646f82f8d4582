package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RomanSlack/FirstChat-BackEnd/config"
	"github.com/RomanSlack/FirstChat-BackEnd/download"
	"github.com/RomanSlack/FirstChat-BackEnd/firstchat"
	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// fakeSession simulates the page: a carousel of slides plus identity markup.
// Taps on the right 80% advance, taps on the left 20% retreat.
type fakeSession struct {
	slides  []string // background URL per position; "" renders a bare slide
	pos     int      // 1-based
	opened  string
	tapErr  error
	htmlErr error
}

func (f *fakeSession) Open(_ context.Context, targetURL string) error {
	f.opened = targetURL
	return nil
}

func (f *fakeSession) Tap(_ context.Context, xFrac, _ float64) error {
	if f.tapErr != nil {
		return f.tapErr
	}
	if xFrac > 0.5 {
		if f.pos < len(f.slides) {
			f.pos++
		}
	} else if f.pos > 1 {
		f.pos--
	}
	return nil
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	if f.htmlErr != nil {
		return "", f.htmlErr
	}
	var b strings.Builder
	b.WriteString(`<html><body>
<h1 class="profile-name">Jane, 27</h1>
<p class="profile-bio">Coffee first.</p>
<div class="profile-interests"><span class="interest">Jazz</span></div>
<div class="profile-section"><h3>Looking for</h3><p>Bad puns.</p></div>
<div aria-roledescription="carousel">`)
	for i, u := range f.slides {
		hidden := ""
		if i+1 != f.pos {
			hidden = ` aria-hidden="true" style="display: none"`
		}
		style := ""
		if u != "" && i+1 == f.pos {
			style = fmt.Sprintf(` style="background-image: url('%s')"`, u)
		}
		fmt.Fprintf(&b, `<div aria-label="%d of %d"%s%s></div>`, i+1, len(f.slides), hidden, style)
	}
	b.WriteString(`</div></body></html>`)
	return b.String(), nil
}

func pipelineConfig(outputDir string) *config.Config {
	return &config.Config{
		Target: config.TargetConfig{
			URL:               "http://profile.test",
			NameSelector:      ".profile-name",
			BioSelector:       ".profile-bio",
			InterestsSelector: ".profile-interests .interest",
			SectionSelector:   ".profile-section",
			CarouselSelector:  `[aria-roledescription="carousel"]`,
		},
		Carousel: config.CarouselConfig{
			AdvanceFraction:  0.80,
			RetreatFraction:  0.20,
			VerticalFraction: 0.50,
			RestorePosition:  3,
			MaxPositions:     9,
			SettleDelay:      0,
		},
		Download: config.DownloadConfig{
			BatchSize:         2,
			FetchTimeout:      5 * time.Second,
			MaxRetries:        1,
			RetryDelay:        0,
			RequestsPerSecond: 1000,
			MinImageBytes:     16,
		},
		Output:  config.OutputConfig{Dir: outputDir},
		Message: config.MessageConfig{SentenceCount: 2, Tone: "friendly", Creativity: 0.7, SecondarySeed: 1},
	}
}

// plainFetcher fetches without TLS fingerprinting, for httptest servers.
type plainFetcher struct{}

func (plainFetcher) Fetch(ctx context.Context, mediaURL string) (*download.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &download.FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, 1024))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_FullSuccess(t *testing.T) {
	srv := imageServer(t)
	sess := &fakeSession{
		slides: []string{srv.URL + "/1.jpg", srv.URL + "/2.jpg", srv.URL + "/3.jpg"},
		pos:    1,
	}

	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", res.Status, StatusSuccess)
	}
	if sess.opened != "http://profile.test" {
		t.Errorf("opened %q", sess.opened)
	}
	if res.Record.Name != "Jane" {
		t.Errorf("Name = %q", res.Record.Name)
	}
	if len(res.Record.Media) != 3 {
		t.Fatalf("media = %d, want 3", len(res.Record.Media))
	}
	if res.Record.Media[0].Label != "Profile Photo 1" {
		t.Errorf("first label = %q", res.Record.Media[0].Label)
	}
	for _, d := range res.Record.Downloads {
		if !d.Succeeded {
			t.Errorf("download %q failed: %+v", d.LabeledURL.Label, d)
		}
	}

	// Carousel rests at the configured position after the run.
	if sess.pos != 3 {
		t.Errorf("carousel left at position %d, want 3", sess.pos)
	}

	// All artifacts exist.
	for _, f := range []string{"profile_data.json", "labeled_image_urls.txt", "image_urls_backup.txt", "summary.txt"} {
		if _, err := os.Stat(filepath.Join(res.RunDir, f)); err != nil {
			t.Errorf("artifact %s missing: %v", f, err)
		}
	}
}

func TestRun_SinglePositionCarousel(t *testing.T) {
	srv := imageServer(t)
	sess := &fakeSession{slides: []string{srv.URL + "/only.jpg"}, pos: 1}

	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", res.Status, StatusSuccess)
	}
	if len(res.Record.Media) != 1 {
		t.Fatalf("media = %d, want 1", len(res.Record.Media))
	}
	if res.Record.Media[0].Label != "Profile Photo 1" {
		t.Errorf("label = %q", res.Record.Media[0].Label)
	}
	if sess.pos != 1 {
		t.Errorf("carousel left at %d, want 1", sess.pos)
	}
}

func TestRun_MissingPrimaryIsFatal(t *testing.T) {
	srv := imageServer(t)
	// Position 1 renders without any media; the others are fine.
	sess := &fakeSession{slides: []string{"", srv.URL + "/2.jpg"}, pos: 1}

	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusFatal {
		t.Fatalf("Status = %q, want %q", res.Status, StatusFatal)
	}
	if models.ErrorCode(res.FatalErr) != models.ErrCodePrimaryMediaMissing {
		t.Errorf("fatal code = %q, want %q", models.ErrorCode(res.FatalErr), models.ErrCodePrimaryMediaMissing)
	}
	if !res.Record.Partial {
		t.Error("fatal run must persist a partial record")
	}
	st := res.Record.CarouselState
	if st == nil || st.TotalPositions != 2 || st.ActivePosition != 1 {
		t.Errorf("CarouselState = %+v, want the last-known snapshot", st)
	}

	// Only the diagnostic record exists.
	if _, err := os.Stat(filepath.Join(res.RunDir, "profile_data.json")); err != nil {
		t.Errorf("partial record missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(res.RunDir, "summary.txt")); !os.IsNotExist(err) {
		t.Error("summary written for a fatal run")
	}
}

func TestRun_UnreadableCarouselIsFatal(t *testing.T) {
	sess := &fakeSession{slides: nil, pos: 0} // renders an empty carousel

	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusFatal {
		t.Fatalf("Status = %q, want %q", res.Status, StatusFatal)
	}
	if models.ErrorCode(res.FatalErr) != models.ErrCodeCarouselUnreadable {
		t.Errorf("fatal code = %q, want %q", models.ErrorCode(res.FatalErr), models.ErrCodeCarouselUnreadable)
	}
	if res.Record.CarouselState != nil {
		t.Errorf("CarouselState = %+v, but no snapshot was ever read", res.Record.CarouselState)
	}
}

func TestRun_SkippedPositionDegrades(t *testing.T) {
	srv := imageServer(t)
	// Position 2 renders bare; 1 and 3 carry media.
	sess := &fakeSession{slides: []string{srv.URL + "/1.jpg", "", srv.URL + "/3.jpg"}, pos: 1}

	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusDegraded {
		t.Errorf("Status = %q, want %q", res.Status, StatusDegraded)
	}
	if len(res.Record.Media) != 2 {
		t.Errorf("media = %d, want 2", len(res.Record.Media))
	}
}

func TestRun_FailedDownloadDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "2.jpg") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	sess := &fakeSession{slides: []string{srv.URL + "/1.jpg", srv.URL + "/2.jpg"}, pos: 1}
	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusDegraded {
		t.Errorf("Status = %q, want %q", res.Status, StatusDegraded)
	}
	var failed *models.DownloadResult
	for i := range res.Record.Downloads {
		if !res.Record.Downloads[i].Succeeded {
			failed = &res.Record.Downloads[i]
		}
	}
	if failed == nil {
		t.Fatal("no failed download recorded")
	}
	if failed.FailureKind != models.FailureAuthRequired {
		t.Errorf("failure kind = %q, want %q", failed.FailureKind, models.FailureAuthRequired)
	}
}

// fakeGenerator returns a canned message.
type fakeGenerator struct {
	err error
	got firstchat.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req firstchat.GenerateRequest) (*firstchat.GenerateResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	var resp firstchat.GenerateResponse
	resp.Status = "success"
	resp.Data.GeneratedMessage = "Hi Jane!"
	return &resp, nil
}

func TestRun_GeneratesMessage(t *testing.T) {
	srv := imageServer(t)
	sess := &fakeSession{slides: []string{srv.URL + "/1.jpg", srv.URL + "/2.jpg"}, pos: 1}

	gen := &fakeGenerator{}
	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	p.MsgGen = gen

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Message != "Hi Jane!" {
		t.Errorf("Message = %q", res.Message)
	}
	if gen.got.MatchBio.Name != "Jane" {
		t.Errorf("generator saw %+v", gen.got.MatchBio)
	}
	if !strings.HasPrefix(gen.got.Image1, "data:image;base64,") {
		t.Error("Image1 is not a data URI")
	}

	data, err := os.ReadFile(filepath.Join(res.RunDir, MessageFile))
	if err != nil {
		t.Fatalf("message artifact: %v", err)
	}
	if strings.TrimSpace(string(data)) != "Hi Jane!" {
		t.Errorf("message artifact holds %q", data)
	}
}

func TestRun_MessageFailureDegradesOnly(t *testing.T) {
	srv := imageServer(t)
	sess := &fakeSession{slides: []string{srv.URL + "/1.jpg"}, pos: 1}

	p := New(pipelineConfig(t.TempDir()), sess, plainFetcher{})
	p.MsgGen = &fakeGenerator{err: models.NewScrapeError(models.ErrCodeMessageGen, "api down", nil)}

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusDegraded {
		t.Errorf("Status = %q, want %q", res.Status, StatusDegraded)
	}
	if res.Message != "" {
		t.Errorf("Message = %q, want empty", res.Message)
	}
}
