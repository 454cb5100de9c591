package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource is a CaptionSource driven by a function field.
type mockSource struct {
	fetchFunc func(ctx context.Context, videoID string, langs []string) ([]CaptionEntry, error)
	gotLangs  []string
}

func (m *mockSource) FetchCaptions(ctx context.Context, videoID string, langs []string) ([]CaptionEntry, error) {
	m.gotLangs = langs
	return m.fetchFunc(ctx, videoID, langs)
}

func sourceReturning(entries []CaptionEntry, err error) *mockSource {
	return &mockSource{fetchFunc: func(context.Context, string, []string) ([]CaptionEntry, error) {
		return entries, err
	}}
}

func TestFetcherFetch(t *testing.T) {
	src := sourceReturning(sampleEntries, nil)
	var report bytes.Buffer

	got := NewFetcher(src, &report, nil).Fetch(context.Background(), "abc", []string{"de", "en"})
	assert.Equal(t, sampleEntries, got)
	assert.Equal(t, []string{"de", "en"}, src.gotLangs)
	assert.Empty(t, report.String())
}

func TestFetcherDefaultsToEnglish(t *testing.T) {
	src := sourceReturning(sampleEntries, nil)
	NewFetcher(src, &bytes.Buffer{}, nil).Fetch(context.Background(), "abc", nil)
	assert.Equal(t, []string{"en"}, src.gotLangs)
}

func TestFetcherReportsFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "no transcript",
			err:  fmt.Errorf("%w: requested [fr]", ErrNoTranscript),
			want: "No transcript found for video abc in the specified languages.\n",
		},
		{
			name: "disabled",
			err:  ErrTranscriptsDisabled,
			want: "Transcripts are disabled for video abc.\n",
		},
		{
			name: "other failure",
			err:  errors.New("connection reset"),
			want: "An error occurred: connection reset\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var report bytes.Buffer
			got := NewFetcher(sourceReturning(nil, tt.err), &report, nil).Fetch(context.Background(), "abc", []string{"fr"})
			assert.Nil(t, got)
			assert.Equal(t, tt.want, report.String())
		})
	}
}

func TestFetcherEmptyTranscriptIsNil(t *testing.T) {
	var report bytes.Buffer
	got := NewFetcher(sourceReturning([]CaptionEntry{}, nil), &report, nil).Fetch(context.Background(), "abc", nil)
	require.Nil(t, got)
	assert.Empty(t, report.String())
}
