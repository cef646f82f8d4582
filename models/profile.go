package models

import "time"

// CarouselState is a read-only snapshot of the remote carousel. It is re-read
// after every navigation step; the remote UI is the source of truth, so a
// state must never be cached across navigations.
type CarouselState struct {
	TotalPositions int `json:"total_positions"`
	ActivePosition int `json:"active_position"`
}

// Valid reports whether the snapshot satisfies 0 < active <= total.
func (s CarouselState) Valid() bool {
	return s.ActivePosition > 0 && s.ActivePosition <= s.TotalPositions
}

// LabeledURL is a normalized media URL tagged with its semantic label and the
// carousel position it was recovered from.
type LabeledURL struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// FailureKind classifies why a download did not produce a binary file.
type FailureKind string

const (
	FailureNone           FailureKind = "none"
	FailureAuthRequired   FailureKind = "auth_required"
	FailureServerError    FailureKind = "server_error"
	FailureBadContentType FailureKind = "bad_content_type"
	FailureNetworkError   FailureKind = "network_error"
)

// DownloadResult records the outcome of fetching one labeled URL.
type DownloadResult struct {
	LabeledURL  LabeledURL  `json:"labeled_url"`
	LocalPath   string      `json:"local_path,omitempty"`
	Succeeded   bool        `json:"succeeded"`
	FailureKind FailureKind `json:"failure_kind"`
}

// Identity holds the fields supplied by the identity/section extractor,
// independent of media extraction.
type Identity struct {
	Name        string         `json:"name"`
	Age         *int           `json:"age,omitempty"`
	Bio         string         `json:"bio,omitempty"`
	BioSections map[string]any `json:"bio_sections,omitempty"`
	Interests   []string       `json:"interests"`
}

// ProfileRecord is the immutable output of one scrape. It is owned by the
// record assembler, serialized to durable storage exactly once at the end of
// the run, and never mutated after persistence.
type ProfileRecord struct {
	Name        string           `json:"name"`
	Age         *int             `json:"age,omitempty"`
	Bio         string           `json:"bio,omitempty"`
	BioSections map[string]any   `json:"bio_sections,omitempty"`
	Interests   []string         `json:"interests"`
	Media       []LabeledURL     `json:"media"`
	Downloads   []DownloadResult `json:"downloads"`
	CreatedAt   time.Time        `json:"created_at"`

	// Partial marks a diagnostic record written on a fatal abort. A complete
	// record is never persisted with Partial set.
	Partial     bool   `json:"partial,omitempty"`
	FatalReason string `json:"fatal_reason,omitempty"`

	// CarouselState is the last carousel snapshot read before a fatal abort.
	// Nil on complete records, and on aborts where no snapshot was ever read.
	CarouselState *CarouselState `json:"carousel_state,omitempty"`
}
