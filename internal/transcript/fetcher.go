package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Yates-Labs/scribe/internal/logging"
	"go.uber.org/zap"
)

// DefaultLanguages is used when no language is requested.
var DefaultLanguages = []string{"en"}

// Fetcher retrieves a video's captions and reports failures as user-facing messages.
// It never returns an error: any failure yields a nil transcript.
type Fetcher struct {
	source CaptionSource
	report io.Writer
	logger *zap.Logger
}

// NewFetcher creates a fetcher. report receives the failure messages (stdout when nil).
func NewFetcher(source CaptionSource, report io.Writer, logger *zap.Logger) *Fetcher {
	if report == nil {
		report = os.Stdout
	}
	logger = logging.OrNop(logger)
	return &Fetcher{
		source: source,
		report: report,
		logger: logger,
	}
}

// Fetch returns the transcript of videoID in the first available language of langs, or
// nil after printing the reason it could not be fetched. An empty transcript is nil too.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, langs []string) []CaptionEntry {
	if len(langs) == 0 {
		langs = DefaultLanguages
	}

	entries, err := f.source.FetchCaptions(ctx, videoID, langs)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoTranscript):
		fmt.Fprintf(f.report, "No transcript found for video %s in the specified languages.\n", videoID)
		f.logger.Debug("no transcript", zap.String("id", videoID), zap.Strings("languages", langs), zap.Error(err))
		return nil
	case errors.Is(err, ErrTranscriptsDisabled):
		fmt.Fprintf(f.report, "Transcripts are disabled for video %s.\n", videoID)
		return nil
	default:
		fmt.Fprintf(f.report, "An error occurred: %v\n", err)
		f.logger.Debug("transcript fetch failed", zap.String("id", videoID), zap.Error(err))
		return nil
	}

	if len(entries) == 0 {
		return nil
	}
	return entries
}
