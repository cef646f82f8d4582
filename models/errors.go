package models

import (
	"errors"
	"fmt"
)

// Error codes used across the pipeline. The two fatal codes abort the run;
// everything else is absorbed into structured result entries.
const (
	ErrCodeCarouselUnreadable  = "CAROUSEL_UNREADABLE"
	ErrCodePrimaryMediaMissing = "PRIMARY_MEDIA_MISSING"

	ErrCodeSlideExtraction        = "SLIDE_EXTRACTION_FAILED"
	ErrCodeDownloadAuthRequired   = "DOWNLOAD_AUTH_REQUIRED"
	ErrCodeDownloadServerError    = "DOWNLOAD_SERVER_ERROR"
	ErrCodeDownloadNetwork        = "DOWNLOAD_NETWORK_ERROR"
	ErrCodeDownloadBadContentType = "DOWNLOAD_BAD_CONTENT_TYPE"

	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeMessageGen   = "MESSAGE_GENERATION_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ErrorCode extracts the code from an error chain, or "" if the chain
// contains no ScrapeError.
func ErrorCode(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsFatal reports whether the error is one of the two conditions that must
// abort the whole pipeline rather than degrade it.
func IsFatal(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeCarouselUnreadable, ErrCodePrimaryMediaMissing:
		return true
	}
	return false
}
