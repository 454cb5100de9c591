package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Yates-Labs/scribe/internal/transcript"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	entries []transcript.CaptionEntry
	err     error
	gotID   string
}

func (s *stubSource) FetchCaptions(ctx context.Context, videoID string, langs []string) ([]transcript.CaptionEntry, error) {
	s.gotID = videoID
	return s.entries, s.err
}

func TestDownloadTranscript_WritesFile(t *testing.T) {
	src := &stubSource{entries: []transcript.CaptionEntry{
		{Text: "one", Start: 0, Duration: 1},
		{Text: "two", Start: 1, Duration: 1},
	}}
	path := filepath.Join(t.TempDir(), "out.srt")
	var out bytes.Buffer

	ok := downloadTranscript(context.Background(), &out, src, nil, transcriptRequest{
		Input:     "https://youtu.be/abc123?t=5",
		Languages: []string{"en"},
		Kind:      transcript.KindSubtitle,
		Output:    path,
	})
	require.True(t, ok)
	assert.Equal(t, "abc123", src.gotID)
	assert.Contains(t, out.String(), "Extracting transcript for video ID: abc123\n")
	assert.Contains(t, out.String(), "Transcript saved to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,000\none\n\n2\n00:00:01,000 --> 00:00:02,000\ntwo\n\n", string(data))
}

func TestDownloadTranscript_DefaultOutputFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	src := &stubSource{entries: []transcript.CaptionEntry{{Text: "hello", Start: 0, Duration: 1}}}
	ok := downloadTranscript(context.Background(), &bytes.Buffer{}, src, nil, transcriptRequest{
		Input: "abc123",
		Kind:  transcript.KindStructured,
	})
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "transcript.json"))
}

func TestDownloadTranscript_MissingVideoID(t *testing.T) {
	src := &stubSource{}
	var out bytes.Buffer

	ok := downloadTranscript(context.Background(), &out, src, nil, transcriptRequest{
		Input: "https://www.youtube.com/watch?list=PL1",
		Kind:  transcript.KindPlain,
	})
	assert.False(t, ok)
	assert.Empty(t, src.gotID)
	assert.Contains(t, out.String(), "missing video id")
	assert.NotContains(t, out.String(), "Extracting transcript")
}

func TestDownloadTranscript_NoTranscriptWritesNothing(t *testing.T) {
	src := &stubSource{err: transcript.ErrNoTranscript}
	path := filepath.Join(t.TempDir(), "out.txt")
	var out bytes.Buffer

	ok := downloadTranscript(context.Background(), &out, src, nil, transcriptRequest{
		Input:     "abc123",
		Languages: []string{"fr"},
		Kind:      transcript.KindPlain,
		Output:    path,
	})
	assert.False(t, ok)
	assert.Contains(t, out.String(), "No transcript found for video abc123 in the specified languages.")
	assert.NoFileExists(t, path)
}

func TestTranscriptLanguageFlag(t *testing.T) {
	flag := transcriptCmd.Flags().Lookup("language")
	require.NotNil(t, flag)
	slice, ok := flag.Value.(pflag.SliceValue)
	require.True(t, ok)
	t.Cleanup(func() {
		_ = slice.Replace([]string{"en"})
		flag.Changed = false
		transcriptFormat = string(transcript.KindPlain)
	})

	tests := []struct {
		name string
		args []string
	}{
		{name: "repeated flag", args: []string{"dQw4w9WgXcQ", "-l", "de", "-l", "en", "-f", "json"}},
		{name: "comma separated", args: []string{"dQw4w9WgXcQ", "-l", "de,en", "-f", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, slice.Replace(nil))

			require.NoError(t, transcriptCmd.ParseFlags(tt.args))
			assert.Equal(t, []string{"de", "en"}, transcriptLanguages)

			positional := transcriptCmd.Flags().Args()
			assert.Equal(t, []string{"dQw4w9WgXcQ"}, positional)
			assert.NoError(t, transcriptCmd.ValidateArgs(positional))
		})
	}
}
