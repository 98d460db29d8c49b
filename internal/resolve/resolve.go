// Package resolve validates user-supplied links and, for song.link style
// aggregator pages, finds the underlying YouTube URL.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
)

var ErrInvalidURL = errors.New("invalid URL")

// Target is what gets handed to the downloader.
type Target struct {
	URL      string
	Title    string
	Artist   string
	Duration time.Duration
}

// Prober fetches metadata for a YouTube URL.
type Prober interface {
	Probe(ctx context.Context, url string) (title, author string, d time.Duration, err error)
}

type Resolver struct {
	HTTP      *http.Client
	OembedURL string
	Prober    Prober
	Logger    *zap.Logger
}

func New(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &http.Client{Timeout: 15 * time.Second}
	return &Resolver{
		HTTP:      hc,
		OembedURL: "https://song.link/oembed",
		Prober:    YouTubeProber{Client: &youtube.Client{HTTPClient: hc}},
		Logger:    logger,
	}
}

// Validate checks that raw is an absolute http(s) URL.
func Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return u, nil
}

// Resolve validates raw and enriches it. Lookup failures fall back to the
// original link; only an invalid URL is an error.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Target, error) {
	u, err := Validate(raw)
	if err != nil {
		return Target{}, err
	}
	t := Target{URL: u.String()}

	if IsSongLink(u) {
		t = r.resolveSongLink(ctx, u.String())
	}

	if r.Prober != nil {
		if yu, err := url.Parse(t.URL); err == nil && IsYouTube(yu) {
			title, author, d, err := r.Prober.Probe(ctx, t.URL)
			if err != nil {
				r.Logger.Debug("YouTube probe failed", zap.String("url", t.URL), zap.Error(err))
			} else {
				if t.Title == "" {
					t.Title = title
				}
				if t.Artist == "" {
					t.Artist = strings.TrimSuffix(author, " - Topic")
				}
				t.Duration = d
			}
		}
	}
	return t, nil
}

func (r *Resolver) resolveSongLink(ctx context.Context, link string) Target {
	t := Target{URL: link}
	info, err := r.oembed(ctx, link)
	if err != nil {
		r.Logger.Debug("oEmbed lookup failed", zap.String("url", link), zap.Error(err))
	} else {
		t.Title, t.Artist = info.Title, info.Artist
		if info.YouTubeURL != "" {
			t.URL = info.YouTubeURL
		}
	}
	if t.URL != link && (t.Title != "" || t.Artist != "") {
		return t
	}

	page, err := r.page(ctx, link)
	if err != nil {
		r.Logger.Debug("HTML fallback failed", zap.String("url", link), zap.Error(err))
		return t
	}
	if t.URL == link && page.YouTubeURL != "" {
		t.URL = page.YouTubeURL
	}
	if t.Title == "" && t.Artist == "" && page.RawTitle != "" {
		t.Title, t.Artist = splitRawTitle(page.RawTitle)
	}
	return t
}

var songLinkHosts = map[string]bool{
	"song.link":  true,
	"album.link": true,
	"odesli.co":  true,
	"pods.link":  true,
}

func IsSongLink(u *url.URL) bool {
	return songLinkHosts[strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")]
}

func IsYouTube(u *url.URL) bool {
	h := strings.ToLower(u.Hostname())
	return h == "youtu.be" || h == "youtube.com" || strings.HasSuffix(h, ".youtube.com")
}

// YouTubeProber reads title, channel and length without downloading.
type YouTubeProber struct {
	Client *youtube.Client
}

func (p YouTubeProber) Probe(ctx context.Context, u string) (string, string, time.Duration, error) {
	v, err := p.Client.GetVideoContext(ctx, u)
	if err != nil {
		return "", "", 0, err
	}
	return v.Title, v.Author, v.Duration, nil
}
