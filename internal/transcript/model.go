// Package transcript downloads caption tracks for a video and renders them as plain
// text, subtitles or JSON.
package transcript

import (
	"context"
	"errors"
)

// TranscriptError is a failure reported by a CaptionSource.
type TranscriptError string

func (e TranscriptError) Error() string {
	return string(e)
}

const (
	// ErrNoTranscript means none of the requested languages has a caption track.
	ErrNoTranscript = TranscriptError("no transcript found")

	// ErrTranscriptsDisabled means the video has no caption tracks at all.
	ErrTranscriptsDisabled = TranscriptError("transcripts are disabled")

	// ErrFetchFailed wraps every other caption service failure.
	ErrFetchFailed = TranscriptError("transcript fetch failed")
)

// ErrMissingVideoID is returned by Resolve for a watch URL without a v parameter.
var ErrMissingVideoID = errors.New("missing video id")

// CaptionEntry is one timed caption line.
type CaptionEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns the time the entry stops being shown.
func (e CaptionEntry) End() float64 {
	return e.Start + e.Duration
}

// CaptionSource retrieves the caption entries of a video in the first available
// language of langs.
type CaptionSource interface {
	FetchCaptions(ctx context.Context, videoID string, langs []string) ([]CaptionEntry, error)
}
