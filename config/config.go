package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Target   TargetConfig
	Browser  BrowserConfig
	Carousel CarouselConfig
	Download DownloadConfig
	Output   OutputConfig
	Message  MessageConfig
	Log      LogConfig
}

// TargetConfig identifies the page under scrape and the selectors for the
// identity fields. The selectors are overridable because the remote markup
// is not controlled by this system.
type TargetConfig struct {
	// URL of the profile page.
	URL string // default: "http://localhost:3000"

	// NameSelector matches the element holding "Name, Age".
	NameSelector string // default: ".profile-name"

	// BioSelector matches the free-text bio element.
	BioSelector string // default: ".profile-bio"

	// InterestsSelector matches each interest chip.
	InterestsSelector string // default: ".profile-interests .interest"

	// SectionSelector matches each titled bio section.
	SectionSelector string // default: ".profile-section"

	// CarouselSelector matches the carousel container.
	CarouselSelector string // default: `[aria-roledescription="carousel"]`

	// MediaURLHint, when non-empty, restricts recovered URLs to ones
	// containing this substring (e.g. the CDN host).
	MediaURLHint string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// UserDataDir persists the browser profile between runs so an existing
	// login survives. Empty means a throwaway profile.
	UserDataDir string

	// NavigationTimeout is the max time for the initial page load.
	NavigationTimeout time.Duration // default: 30s

	// Stealth toggles stealth JS injection before navigation.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types the page is not allowed to
	// fetch. Background-image URLs stay in the DOM either way, so blocking
	// heavy resources saves bandwidth without hiding anything we read.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// CarouselConfig controls carousel navigation and extraction.
type CarouselConfig struct {
	// SettleDelay is the fixed wait after each navigation gesture.
	SettleDelay time.Duration // default: 1500ms

	// AdvanceFraction is the horizontal screen fraction tapped to advance.
	AdvanceFraction float64 // default: 0.80

	// RetreatFraction is the horizontal screen fraction tapped to retreat.
	RetreatFraction float64 // default: 0.20

	// VerticalFraction is the vertical screen fraction of every tap.
	VerticalFraction float64 // default: 0.50

	// RestorePosition is the position the navigator returns to after a full
	// traversal (or the last position if fewer exist).
	RestorePosition int // default: 3

	// MaxPositions caps traversal as a safety bound against a lying DOM.
	MaxPositions int // default: 9
}

// DownloadConfig controls the download manager.
type DownloadConfig struct {
	// BatchSize is the number of concurrent fetches per batch.
	BatchSize int // default: 3

	// FetchTimeout is the per-fetch deadline.
	FetchTimeout time.Duration // default: 30s

	// MaxRetries bounds retry attempts per URL (total attempts <= MaxRetries+1).
	MaxRetries int // default: 3

	// RetryDelay is the base backoff delay between attempts.
	RetryDelay time.Duration // default: 1s

	// RequestsPerSecond paces outbound fetches across batches.
	RequestsPerSecond float64 // default: 4

	// MinImageBytes is the payload size below which a wrong content-type is
	// treated as a disguised error page.
	MinImageBytes int // default: 2048
}

// OutputConfig controls persisted artifacts.
type OutputConfig struct {
	// Dir is the root output directory; each run writes into a profile
	// subdirectory beneath it.
	Dir string // default: "output"
}

// MessageConfig controls the message-generation collaborator.
type MessageConfig struct {
	// Endpoint of the message-generation API. Empty disables the call.
	Endpoint string // default: ""

	// UserBio is the bio of the person running the scraper.
	UserBio string

	// SentenceCount requested for the generated message.
	SentenceCount int // default: 2

	// Tone must be one of: friendly, witty, flirty, casual, confident.
	Tone string // default: "friendly"

	// Creativity in [0.0, 1.0].
	Creativity float64 // default: 0.7

	// SecondarySeed seeds the secondary-image choice. 0 means time-based
	// (non-deterministic); any other value makes runs reproducible.
	SecondarySeed int64 // default: 0
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"

	// File, when non-empty, duplicates logs into a rotating file.
	File string

	// FileMaxSizeMB is the rotation threshold for the log file.
	FileMaxSizeMB int // default: 10
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Target: TargetConfig{
			URL:               envOr("FIRSTCHAT_TARGET_URL", "http://localhost:3000"),
			NameSelector:      envOr("FIRSTCHAT_NAME_SELECTOR", ".profile-name"),
			BioSelector:       envOr("FIRSTCHAT_BIO_SELECTOR", ".profile-bio"),
			InterestsSelector: envOr("FIRSTCHAT_INTERESTS_SELECTOR", ".profile-interests .interest"),
			SectionSelector:   envOr("FIRSTCHAT_SECTION_SELECTOR", ".profile-section"),
			CarouselSelector:  envOr("FIRSTCHAT_CAROUSEL_SELECTOR", `[aria-roledescription="carousel"]`),
			MediaURLHint:      os.Getenv("FIRSTCHAT_MEDIA_URL_HINT"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("FIRSTCHAT_HEADLESS", true),
			NoSandbox:         envBoolOr("FIRSTCHAT_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("FIRSTCHAT_BROWSER_BIN"),
			Proxy:             os.Getenv("FIRSTCHAT_PROXY"),
			UserDataDir:       envOr("FIRSTCHAT_USER_DATA_DIR", "browser_sessions"),
			NavigationTimeout: envDurationOr("FIRSTCHAT_NAV_TIMEOUT", 30*time.Second),
			Stealth:           envBoolOr("FIRSTCHAT_STEALTH", true),
			BlockedResourceTypes: envSliceOr("FIRSTCHAT_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
		},
		Carousel: CarouselConfig{
			SettleDelay:      envDurationOr("FIRSTCHAT_SETTLE_DELAY", 1500*time.Millisecond),
			AdvanceFraction:  envFloatOr("FIRSTCHAT_ADVANCE_FRACTION", 0.80),
			RetreatFraction:  envFloatOr("FIRSTCHAT_RETREAT_FRACTION", 0.20),
			VerticalFraction: envFloatOr("FIRSTCHAT_VERTICAL_FRACTION", 0.50),
			RestorePosition:  envIntOr("FIRSTCHAT_RESTORE_POSITION", 3),
			MaxPositions:     envIntOr("FIRSTCHAT_MAX_POSITIONS", 9),
		},
		Download: DownloadConfig{
			BatchSize:         envIntOr("FIRSTCHAT_BATCH_SIZE", 3),
			FetchTimeout:      envDurationOr("FIRSTCHAT_FETCH_TIMEOUT", 30*time.Second),
			MaxRetries:        envIntOr("FIRSTCHAT_MAX_RETRIES", 3),
			RetryDelay:        envDurationOr("FIRSTCHAT_RETRY_DELAY", time.Second),
			RequestsPerSecond: envFloatOr("FIRSTCHAT_FETCH_RPS", 4.0),
			MinImageBytes:     envIntOr("FIRSTCHAT_MIN_IMAGE_BYTES", 2048),
		},
		Output: OutputConfig{
			Dir: envOr("FIRSTCHAT_OUTPUT_DIR", "output"),
		},
		Message: MessageConfig{
			Endpoint:      os.Getenv("FIRSTCHAT_API_ENDPOINT"),
			UserBio:       os.Getenv("FIRSTCHAT_USER_BIO"),
			SentenceCount: envIntOr("FIRSTCHAT_SENTENCE_COUNT", 2),
			Tone:          envOr("FIRSTCHAT_TONE", "friendly"),
			Creativity:    envFloatOr("FIRSTCHAT_CREATIVITY", 0.7),
			SecondarySeed: envInt64Or("FIRSTCHAT_SECONDARY_SEED", 0),
		},
		Log: LogConfig{
			Level:         envOr("FIRSTCHAT_LOG_LEVEL", "info"),
			Format:        envOr("FIRSTCHAT_LOG_FORMAT", "text"),
			File:          os.Getenv("FIRSTCHAT_LOG_FILE"),
			FileMaxSizeMB: envIntOr("FIRSTCHAT_LOG_MAX_SIZE_MB", 10),
		},
	}
}

// allowedTones mirrors the message-generation API contract.
var allowedTones = map[string]struct{}{
	"friendly": {}, "witty": {}, "flirty": {}, "casual": {}, "confident": {},
}

// Validate rejects values the downstream components cannot work with.
func (c *Config) Validate() error {
	if c.Download.BatchSize < 1 {
		return errInvalid("download batch size must be >= 1")
	}
	if c.Download.MaxRetries < 0 {
		return errInvalid("max retries must be >= 0")
	}
	if c.Carousel.AdvanceFraction <= 0 || c.Carousel.AdvanceFraction >= 1 ||
		c.Carousel.RetreatFraction <= 0 || c.Carousel.RetreatFraction >= 1 {
		return errInvalid("gesture fractions must be in (0, 1)")
	}
	if c.Message.Creativity < 0 || c.Message.Creativity > 1 {
		return errInvalid("creativity must be between 0.0 and 1.0")
	}
	if _, ok := allowedTones[strings.ToLower(c.Message.Tone)]; !ok {
		return errInvalid("tone must be one of: friendly, witty, flirty, casual, confident")
	}
	return nil
}

type errInvalid string

func (e errInvalid) Error() string { return string(e) }

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
