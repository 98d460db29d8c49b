package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

type oembedResponse struct {
	Title       string `json:"title"`
	AuthorName  string `json:"author_name"`
	ProviderURL string `json:"provider_url"`
	HTML        string `json:"html"`
}

type oembedInfo struct {
	Title      string
	Artist     string
	YouTubeURL string
}

var (
	embedSrcRe = regexp.MustCompile(`src="([^"]*youtube\.com[^"]*(?:embed/|watch\?v=)[a-zA-Z0-9_-]+[^"]*)"`)
	ytURLRe    = regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)[a-zA-Z0-9_-]{11}`)
)

// genericAuthors are provider names song.link reports instead of an artist.
var genericAuthors = []string{"youtube", "soundcloud", "spotify"}

func (r *Resolver) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}
	return body, nil
}

func (r *Resolver) oembed(ctx context.Context, link string) (oembedInfo, error) {
	params := url.Values{}
	params.Add("url", link)
	params.Add("format", "json")

	body, err := r.get(ctx, r.OembedURL+"?"+params.Encode())
	if err != nil {
		return oembedInfo{}, err
	}
	var resp oembedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return oembedInfo{}, fmt.Errorf("decode oembed: %w", err)
	}
	return parseOembed(resp), nil
}

func parseOembed(resp oembedResponse) oembedInfo {
	var info oembedInfo
	title := strings.TrimSpace(resp.Title)
	author := strings.TrimSpace(resp.AuthorName)

	if author != "" && !isGenericAuthor(author) && !strings.Contains(author, "Topic") {
		info.Artist = author
		info.Title = title
		if strings.Contains(title, author) {
			t := strings.TrimSpace(strings.ReplaceAll(title, author, ""))
			t = strings.TrimSpace(strings.Trim(t, "-"))
			if t != "" {
				info.Title = t
			}
		}
	} else if title != "" {
		info.Title, info.Artist = splitDash(title)
	}
	info.Artist = strings.TrimSuffix(info.Artist, " - Topic")

	if m := embedSrcRe.FindStringSubmatch(resp.HTML); len(m) > 1 {
		info.YouTubeURL = watchURL(m[1])
	}
	if info.YouTubeURL == "" && (strings.Contains(resp.ProviderURL, "youtube.com") || strings.Contains(resp.ProviderURL, "youtu.be")) {
		info.YouTubeURL = resp.ProviderURL
	}
	return info
}

func isGenericAuthor(author string) bool {
	for _, g := range genericAuthors {
		if strings.EqualFold(author, g) {
			return true
		}
	}
	return false
}

// watchURL turns an embed URL into a plain watch URL that keeps only the id.
func watchURL(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	_, rest, ok := strings.Cut(u.Path, "/embed/")
	if !ok {
		return src
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return src
	}
	return u.Scheme + "://" + u.Host + "/watch?v=" + id
}

type pageInfo struct {
	RawTitle   string
	YouTubeURL string
}

func (r *Resolver) page(ctx context.Context, link string) (pageInfo, error) {
	body, err := r.get(ctx, link)
	if err != nil {
		return pageInfo{}, err
	}
	info := parsePage(string(body))
	if info.RawTitle == "" && info.YouTubeURL == "" {
		return info, fmt.Errorf("no usable data in %s", link)
	}
	return info, nil
}

func parsePage(body string) pageInfo {
	var info pageInfo
	if doc, err := html.Parse(strings.NewReader(body)); err == nil {
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.ElementNode && n.Data == "meta" {
				var property, content string
				for _, a := range n.Attr {
					switch a.Key {
					case "property":
						property = a.Val
					case "content":
						content = a.Val
					}
				}
				switch {
				case content == "":
				case property == "og:title":
					info.RawTitle = content
				case property == "og:video:url" || property == "og:video:secure_url":
					if strings.Contains(content, "youtube.com") || strings.Contains(content, "youtu.be") {
						info.YouTubeURL = content
					}
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(doc)
	}
	if info.YouTubeURL == "" {
		info.YouTubeURL = ytURLRe.FindString(body)
	}
	return info
}

// splitRawTitle understands "Title by Artist" and "Artist - Title".
func splitRawTitle(raw string) (title, artist string) {
	if parts := strings.SplitN(raw, " by ", 2); len(parts) == 2 {
		title, artist = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	} else {
		title, artist = splitDash(raw)
	}
	return title, strings.TrimSpace(strings.TrimSuffix(artist, " - Topic"))
}

func splitDash(s string) (title, artist string) {
	if parts := strings.SplitN(s, " - ", 2); len(parts) == 2 {
		return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
	}
	return s, ""
}
