package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Yates-Labs/scribe/internal/logging"
	"github.com/Yates-Labs/scribe/internal/transcript"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	transcriptLanguages []string
	transcriptFormat    string
	transcriptOutput    string
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript [url|id]",
	Short: "Download a video transcript",
	Long: `Download the captions of a YouTube video and save them as text, SRT subtitles or JSON.

The video may be given as a youtu.be link, a youtube.com/watch link or a bare video ID.
Languages are tried in the order given; the first one with captions is used. Repeat -l
or separate codes with commas to give several.

Examples:
  scribe transcript https://youtu.be/dQw4w9WgXcQ
  scribe transcript "https://www.youtube.com/watch?v=dQw4w9WgXcQ" -f srt
  scribe transcript dQw4w9WgXcQ -l de -l en -f json -o talk.json
  scribe transcript dQw4w9WgXcQ -l de,en -f json`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscript,
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
	transcriptCmd.Flags().StringSliceVarP(&transcriptLanguages, "language", "l", []string{"en"}, "Transcript language code(s) in priority order (repeat -l or use commas: -l de,en)")
	transcriptCmd.Flags().StringVarP(&transcriptFormat, "format", "f", string(transcript.KindPlain), "Output format: text, srt or json")
	transcriptCmd.Flags().StringVarP(&transcriptOutput, "output", "o", "", "Output file (default: transcript.txt/srt/json)")
}

func runTranscript(cmd *cobra.Command, args []string) error {
	kind, err := transcript.ParseKind(transcriptFormat)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	langs := transcriptLanguages
	if !cmd.Flags().Changed("language") {
		langs = cfg.Transcript.Languages
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	source := transcript.NewYouTubeSource("", time.Duration(cfg.Transcript.TimeoutSeconds)*time.Second, logger)
	downloadTranscript(ctx, cmd.OutOrStdout(), source, logger, transcriptRequest{
		Input:     args[0],
		Languages: langs,
		Kind:      kind,
		Output:    transcriptOutput,
	})
	return nil
}

type transcriptRequest struct {
	Input     string
	Languages []string
	Kind      transcript.Kind
	Output    string
}

// downloadTranscript resolves, fetches, formats and saves one transcript. Every failure
// is reported on out; it returns whether a file was written.
func downloadTranscript(ctx context.Context, out io.Writer, source transcript.CaptionSource, logger *zap.Logger, req transcriptRequest) bool {
	videoID, err := transcript.Resolve(req.Input)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", errorStyle.Render("Error:"), err)
		return false
	}
	fmt.Fprintf(out, "Extracting transcript for video ID: %s\n", videoID)

	entries := transcript.NewFetcher(source, out, logger).Fetch(ctx, videoID, req.Languages)
	if entries == nil {
		return false
	}

	content, err := transcript.Format(entries, req.Kind)
	if err != nil {
		fmt.Fprintf(out, "An error occurred: %v\n", err)
		return false
	}

	path := req.Output
	if path == "" {
		path = req.Kind.DefaultOutputFile()
	}
	return transcript.NewWriter(out).Write(content, path)
}
