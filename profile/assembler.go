package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RomanSlack/FirstChat-BackEnd/carousel"
	"github.com/RomanSlack/FirstChat-BackEnd/models"
)

// Artifact file names inside a run directory.
const (
	RecordFile      = "profile_data.json"
	LabeledURLsFile = "labeled_image_urls.txt"
	BackupURLsFile  = "image_urls_backup.txt"
	SummaryFile     = "summary.txt"
)

// Assemble builds the immutable record from the run's parts. It refuses to
// build a complete record without the primary media entry; no other image is
// ever relabeled to stand in for it.
func Assemble(id models.Identity, media []models.LabeledURL, downloads []models.DownloadResult, now time.Time) (models.ProfileRecord, error) {
	hasPrimary := false
	for _, m := range media {
		if m.Label == carousel.PrimaryLabel {
			hasPrimary = true
			break
		}
	}
	if !hasPrimary {
		return models.ProfileRecord{}, models.NewScrapeError(
			models.ErrCodePrimaryMediaMissing,
			"cannot assemble a complete record without the primary media entry",
			nil,
		)
	}

	return models.ProfileRecord{
		Name:        id.Name,
		Age:         id.Age,
		Bio:         id.Bio,
		BioSections: id.BioSections,
		Interests:   id.Interests,
		Media:       media,
		Downloads:   downloads,
		CreatedAt:   now.UTC(),
	}, nil
}

// AssemblePartial builds the diagnostic record written on a fatal abort. It
// carries whatever was recovered before the abort, including the last-known
// carousel state when one was read, and is marked so readers never mistake it
// for a complete record.
func AssemblePartial(id models.Identity, media []models.LabeledURL, state *models.CarouselState, reason error, now time.Time) models.ProfileRecord {
	return models.ProfileRecord{
		Name:          id.Name,
		Age:           id.Age,
		Bio:           id.Bio,
		BioSections:   id.BioSections,
		Interests:     id.Interests,
		Media:         media,
		CreatedAt:     now.UTC(),
		Partial:       true,
		FatalReason:   reason.Error(),
		CarouselState: state,
	}
}

// RunDir returns the per-run artifact directory beneath root, named after the
// profile and the run time so successive runs never collide.
func RunDir(root, name string, now time.Time) string {
	stem := strings.ToLower(strings.TrimSpace(name))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, stem)
	stem = strings.Trim(stem, "_")
	if stem == "" {
		stem = "profile"
	}
	return filepath.Join(root, fmt.Sprintf("%s_%s", stem, now.Format("20060102_150405")))
}

// Persist writes the complete record and its companion artifacts into dir.
// The record JSON is the source of truth; the text files are convenience
// views of the same data.
func Persist(dir string, rec models.ProfileRecord, summary string) error {
	if rec.Partial {
		return models.NewScrapeError(models.ErrCodeInvalidInput,
			"refusing to persist a partial record as complete", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	if err := writeRecord(dir, rec); err != nil {
		return err
	}

	var labeled, backup strings.Builder
	for _, m := range rec.Media {
		fmt.Fprintf(&labeled, "%s: %s\n", m.Label, m.URL)
		fmt.Fprintf(&backup, "%s\n", m.URL)
	}
	if err := os.WriteFile(filepath.Join(dir, LabeledURLsFile), []byte(labeled.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", LabeledURLsFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, BackupURLsFile), []byte(backup.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", BackupURLsFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryFile), []byte(summary), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", SummaryFile, err)
	}

	slog.Info("record persisted", "dir", dir, "media", len(rec.Media))
	return nil
}

// PersistPartial writes only the diagnostic record. Companion artifacts are
// skipped so a partial run directory is visibly incomplete.
func PersistPartial(dir string, rec models.ProfileRecord) error {
	if !rec.Partial {
		return models.NewScrapeError(models.ErrCodeInvalidInput,
			"record is not partial", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	return writeRecord(dir, rec)
}

func writeRecord(dir string, rec models.ProfileRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, RecordFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", RecordFile, err)
	}
	return nil
}
