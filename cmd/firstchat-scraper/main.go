package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/RomanSlack/FirstChat-BackEnd/browser"
	"github.com/RomanSlack/FirstChat-BackEnd/config"
	"github.com/RomanSlack/FirstChat-BackEnd/download"
	"github.com/RomanSlack/FirstChat-BackEnd/firstchat"
	"github.com/RomanSlack/FirstChat-BackEnd/pipeline"
)

var Version = "dev"

// Flags that override the environment configuration. Empty/zero means "keep
// the env value".
var (
	envFile      string
	targetURL    string
	outputDir    string
	headless     bool
	headlessSet  bool
	userBio      string
	apiEndpoint  string
	tone         string
	seed         int64
	maxPositions int
	logLevel     string
	logFormat    string
	noProgress   bool
)

var rootCmd = &cobra.Command{
	Use:     "firstchat-scraper",
	Short:   "Scrape a dating profile page and generate an opening message",
	Version: Version,
	Long: `firstchat-scraper drives a real browser against a profile page, walks the
photo carousel, downloads every photo under a stable label, and writes a
structured profile record. With an API endpoint configured it also requests
an opening message for the profile.

Configuration comes from FIRSTCHAT_* environment variables (a .env file is
loaded when present); flags override the environment.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "path to a .env file (default: ./.env when present)")
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "profile page URL")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output root directory")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	rootCmd.Flags().StringVar(&userBio, "user-bio", "", "your bio, sent with the message request")
	rootCmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "message-generation endpoint (empty disables the call)")
	rootCmd.Flags().StringVar(&tone, "tone", "", "message tone (friendly|witty|flirty|casual|confident)")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "seed for the secondary-image choice (0 = random)")
	rootCmd.Flags().IntVar(&maxPositions, "max-positions", 0, "cap on carousel positions to walk")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "log format (text|json)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the download progress bar")
}

func run(cmd *cobra.Command, _ []string) error {
	headlessSet = cmd.Flags().Changed("headless")

	// ── 1. Load configuration ───────────────────────────────────────
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load() // ./.env, optional
	}
	cfg := config.Load()
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("firstchat-scraper starting",
		"version", Version,
		"url", cfg.Target.URL,
		"output", cfg.Output.Dir,
		"headless", cfg.Browser.Headless,
	)

	// ── 3. Signal-aware context ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 4. Launch the browser session ───────────────────────────────
	session, err := browser.NewSession(cfg.Browser)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer session.Close()

	// ── 5. Build and run the pipeline ───────────────────────────────
	fetcher := download.NewChromeFetcher(cfg.Target.URL, cfg.Browser.Proxy, cfg.Download.FetchTimeout)
	p := pipeline.New(cfg, session, fetcher)
	if cfg.Message.Endpoint != "" {
		p.MsgGen = firstchat.NewClient(cfg.Message.Endpoint, nil)
	}
	if !noProgress {
		var bar *progressbar.ProgressBar
		p.OnDownloadProgress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("downloading"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	// ── 6. Report the outcome ───────────────────────────────────────
	switch res.Status {
	case pipeline.StatusFatal:
		slog.Error("scrape aborted", "reason", res.FatalErr, "partial", res.RunDir)
		return fmt.Errorf("scrape failed: %w", res.FatalErr)
	case pipeline.StatusDegraded:
		slog.Warn("scrape finished with gaps", "dir", res.RunDir)
	default:
		slog.Info("scrape finished", "dir", res.RunDir)
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	return nil
}

// applyFlags overlays non-empty flag values onto the env-derived config.
func applyFlags(cfg *config.Config) {
	if targetURL != "" {
		cfg.Target.URL = targetURL
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if headlessSet {
		cfg.Browser.Headless = headless
	}
	if userBio != "" {
		cfg.Message.UserBio = userBio
	}
	if apiEndpoint != "" {
		cfg.Message.Endpoint = apiEndpoint
	}
	if tone != "" {
		cfg.Message.Tone = tone
	}
	if seed != 0 {
		cfg.Message.SecondarySeed = seed
	}
	if maxPositions > 0 {
		cfg.Carousel.MaxPositions = maxPositions
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
}

// initLogger configures slog from the LogConfig. When a log file is set the
// output is duplicated into it with rotation.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.FileMaxSizeMB,
			MaxBackups: 3,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
