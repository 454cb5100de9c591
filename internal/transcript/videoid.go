package transcript

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	shortLinkMarker = "youtu.be"
	watchLinkMarker = "youtube.com/watch"
)

// VideoRef is the recognized shape of a video reference. It is one of ShortLink,
// WatchLink or Unrecognized.
type VideoRef interface {
	videoRef()
}

// ShortLink is a youtu.be link; ID is the last path segment without any query.
type ShortLink struct {
	ID string
}

// WatchLink is a youtube.com/watch link with its parsed query.
type WatchLink struct {
	Query url.Values
}

// Unrecognized input is passed through as the video id.
type Unrecognized struct {
	Raw string
}

func (ShortLink) videoRef()    {}
func (WatchLink) videoRef()    {}
func (Unrecognized) videoRef() {}

// ParseVideoRef classifies input. Short links are checked before watch links.
func ParseVideoRef(input string) VideoRef {
	switch {
	case strings.Contains(input, shortLinkMarker):
		last := input[strings.LastIndex(input, "/")+1:]
		id, _, _ := strings.Cut(last, "?")
		return ShortLink{ID: id}
	case strings.Contains(input, watchLinkMarker):
		var query url.Values
		if u, err := url.Parse(input); err == nil {
			query = u.Query()
		} else if _, rawQuery, ok := strings.Cut(input, "?"); ok {
			query, _ = url.ParseQuery(rawQuery)
		}
		return WatchLink{Query: query}
	default:
		return Unrecognized{Raw: input}
	}
}

// Resolve extracts the video id from a URL or returns input unchanged when it is not a
// recognized link. The id shape is not validated.
func Resolve(input string) (string, error) {
	switch ref := ParseVideoRef(input).(type) {
	case ShortLink:
		return ref.ID, nil
	case WatchLink:
		if ids := ref.Query["v"]; len(ids) > 0 && ids[0] != "" {
			return ids[0], nil
		}
		return "", fmt.Errorf("%w: %s", ErrMissingVideoID, input)
	case Unrecognized:
		return ref.Raw, nil
	default:
		return "", fmt.Errorf("unsupported video reference %T", ref)
	}
}
