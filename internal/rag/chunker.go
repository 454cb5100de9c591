package rag

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// separators are tried in order when looking for a natural place to end a chunk.
var separators = []string{"\n\n", "\n", " "}

// Splitter cuts text into overlapping rune windows. A window ends at the last paragraph,
// line or word break found in its second half; if there is none it is cut at the size limit.
// Every rune of the input is covered by at least one chunk.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter creates a splitter. Non-positive sizes fall back to the defaults and an
// overlap that would stall progress is clamped below half the chunk size.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize/2 {
		chunkOverlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split returns the chunks of text in document order.
func (s *Splitter) Split(text string) []DocumentChunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	chunks := make([]DocumentChunk, 0, n/(s.chunkSize-s.chunkOverlap)+1)
	start := 0
	for {
		end := start + s.chunkSize
		if end >= n {
			end = n
		} else {
			end = s.breakPoint(runes, start, end)
		}

		chunks = append(chunks, DocumentChunk{
			Text:          string(runes[start:end]),
			SourceOffset:  start,
			SequenceIndex: len(chunks),
		})
		if end == n {
			break
		}

		next := end - s.chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint returns the end of the window [start, limit), preferring to end right after a
// separator in the second half of the window.
func (s *Splitter) breakPoint(runes []rune, start, limit int) int {
	floor := start + s.chunkSize/2
	for _, sep := range separators {
		sepRunes := []rune(sep)
		for i := limit - len(sepRunes); i >= floor; i-- {
			if hasRunesAt(runes, i, sepRunes) {
				return i + len(sepRunes)
			}
		}
	}
	return limit
}

func hasRunesAt(runes []rune, at int, want []rune) bool {
	if at+len(want) > len(runes) {
		return false
	}
	for j, r := range want {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}
