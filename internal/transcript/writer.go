package transcript

import (
	"fmt"
	"io"
	"os"
)

// Writer saves rendered transcripts and reports the outcome.
type Writer struct {
	report io.Writer
}

// NewWriter creates a writer reporting to report (stdout when nil).
func NewWriter(report io.Writer) *Writer {
	if report == nil {
		report = os.Stdout
	}
	return &Writer{report: report}
}

// Write stores content at path as UTF-8, replacing any existing file.
func (w *Writer) Write(content, path string) bool {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		fmt.Fprintf(w.report, "Error saving transcript: %v\n", err)
		return false
	}
	fmt.Fprintf(w.report, "Transcript saved to %s\n", path)
	return true
}
