package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind selects an output format.
type Kind string

const (
	KindPlain      Kind = "text"
	KindSubtitle   Kind = "srt"
	KindStructured Kind = "json"
)

// Kinds lists the accepted format names in the order they are documented.
var Kinds = []Kind{KindPlain, KindSubtitle, KindStructured}

// ParseKind validates a format name.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid format %q (choose from text, srt, json)", name)
}

// Extension returns the file extension used for the default output file.
func (k Kind) Extension() string {
	if k == KindPlain {
		return "txt"
	}
	return string(k)
}

// DefaultOutputFile is the file written when no output path is given.
func (k Kind) DefaultOutputFile() string {
	return "transcript." + k.Extension()
}

// Formatter renders a transcript.
type Formatter interface {
	Format(entries []CaptionEntry) (string, error)
}

// PlainFormatter joins entry texts with newlines.
type PlainFormatter struct{}

func (PlainFormatter) Format(entries []CaptionEntry) (string, error) {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	return strings.Join(texts, "\n"), nil
}

// SubtitleFormatter writes numbered SRT cues.
type SubtitleFormatter struct{}

func (SubtitleFormatter) Format(entries []CaptionEntry) (string, error) {
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(e.Start), FormatTimestamp(e.End()), e.Text)
	}
	return b.String(), nil
}

// JSONFormatter writes the entries as an indented JSON array.
type JSONFormatter struct{}

func (JSONFormatter) Format(entries []CaptionEntry) (string, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(data), nil
}

// NewFormatter returns the formatter for kind. Unknown kinds get the plain formatter.
func NewFormatter(kind Kind) Formatter {
	switch kind {
	case KindSubtitle:
		return SubtitleFormatter{}
	case KindStructured:
		return JSONFormatter{}
	default:
		return PlainFormatter{}
	}
}

// Format renders entries as kind. An empty transcript renders as "".
func Format(entries []CaptionEntry, kind Kind) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	return NewFormatter(kind).Format(entries)
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Milliseconds are truncated and hours
// are not capped.
func FormatTimestamp(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int(math.Mod(seconds, 3600) / 60)
	secs := math.Mod(seconds, 60)
	millis := int((secs - math.Trunc(secs)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, int(secs), millis)
}
