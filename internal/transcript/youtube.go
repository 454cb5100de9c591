package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Yates-Labs/scribe/internal/httpretry"
	"github.com/Yates-Labs/scribe/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// YouTube Innertube constants for the ANDROID client, which returns caption tracks
// without a browser session.
const (
	DefaultYouTubeURL = "https://www.youtube.com"

	ytPlayerPath     = "/youtubei/v1/player"
	ytAndroidVersion = "20.10.38"
	ytAndroidUA      = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
)

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type innertubePlayerResp struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// timedText is the default (srv1) timedtext XML document.
type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Text     string `xml:",chardata"`
		Start    string `xml:"start,attr"`
		Duration string `xml:"dur,attr"`
	} `xml:"text"`
}

// YouTubeSource implements CaptionSource with the Innertube player endpoint and the
// timedtext XML of the chosen caption track.
type YouTubeSource struct {
	baseURL    string
	httpClient *http.Client
	retry      httpretry.Config
	logger     *zap.Logger
}

// NewYouTubeSource creates a source against baseURL (DefaultYouTubeURL when empty).
func NewYouTubeSource(baseURL string, timeout time.Duration, logger *zap.Logger) *YouTubeSource {
	if baseURL == "" {
		baseURL = DefaultYouTubeURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger = logging.OrNop(logger)
	return &YouTubeSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      httpretry.DefaultConfig,
		logger:     logger,
	}
}

// FetchCaptions returns the caption entries of videoID in the first language of langs
// that has a track.
func (s *YouTubeSource) FetchCaptions(ctx context.Context, videoID string, langs []string) ([]CaptionEntry, error) {
	tracks, err := s.captionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	track, err := pickTrack(tracks, langs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("youtube: selected caption track",
		zap.String("id", videoID),
		zap.String("lang", track.LanguageCode),
		zap.Bool("generated", track.Kind == "asr"),
	)

	return s.fetchTimedText(ctx, track.BaseURL)
}

func (s *YouTubeSource) captionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := httpretry.HTTP(ctx, s.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+ytPlayerPath+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return s.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: android innertube: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%w: player HTTP %d: %s", ErrFetchFailed, resp.StatusCode, snippet)
	}

	var playerResp innertubePlayerResp
	if err := json.NewDecoder(resp.Body).Decode(&playerResp); err != nil {
		return nil, fmt.Errorf("%w: decode player: %v", ErrFetchFailed, err)
	}

	if playerResp.Captions == nil {
		if ps := playerResp.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
			reason := ps.Reason
			if reason == "" {
				reason = ps.Status
			}
			return nil, fmt.Errorf("%w: video unavailable: %s", ErrFetchFailed, reason)
		}
		return nil, ErrTranscriptsDisabled
	}

	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}
	return tracks, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack walks langs in priority order and, within a language, prefers a manually
// created track over an auto-generated one.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, error) {
	blocked := false
	for _, lang := range langs {
		var generated *captionTrack
		for i, t := range tracks {
			if t.LanguageCode != lang {
				continue
			}
			if needsPoToken(t.BaseURL) {
				blocked = true
				continue
			}
			if t.Kind != "asr" {
				return t, nil
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return *generated, nil
		}
	}

	if blocked {
		return captionTrack{}, fmt.Errorf("%w: caption tracks for %v require a PoToken", ErrFetchFailed, langs)
	}

	available := make([]string, 0, len(tracks))
	for _, t := range tracks {
		available = append(available, t.LanguageCode)
	}
	return captionTrack{}, fmt.Errorf("%w: requested %v, available %v", ErrNoTranscript, langs, available)
}

func (s *YouTubeSource) fetchTimedText(ctx context.Context, baseURL string) ([]CaptionEntry, error) {
	target, err := withoutFormat(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad caption URL: %v", ErrFetchFailed, err)
	}

	resp, err := httpretry.HTTP(ctx, s.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", ytAndroidUA)
		return s.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch timedtext: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: timedtext HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read timedtext: %v", ErrFetchFailed, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty timedtext response", ErrFetchFailed)
	}

	entries, err := parseTimedText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return entries, nil
}

// withoutFormat drops the fmt parameter so the service answers with the default XML format.
func withoutFormat(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if _, ok := q["fmt"]; !ok {
		return rawURL, nil
	}
	q.Del("fmt")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseTimedText extracts caption entries from timedtext XML. A missing or malformed dur
// attribute becomes a zero duration.
func parseTimedText(data []byte) ([]CaptionEntry, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	entries := make([]CaptionEntry, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		start, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			start = 0
		}
		duration, err := strconv.ParseFloat(t.Duration, 64)
		if err != nil {
			duration = 0
		}
		entries = append(entries, CaptionEntry{
			Text:     cleanCaptionText(t.Text),
			Start:    start,
			Duration: duration,
		})
	}
	return entries, nil
}

// cleanCaptionText strips markup such as <font> tags and decodes HTML entities.
func cleanCaptionText(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return b.String()
			}
			return html.UnescapeString(s)
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
