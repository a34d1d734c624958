package crawl

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; pathwise/1.0)"
	maxBodyBytes     = 2 << 20
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// Document is one fetched page.
type Document struct {
	URL   string
	Title string
	Body  string
	Links []string
}

// Fetcher downloads a page and converts it to markdown-like text.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &Fetcher{client: client, userAgent: defaultUserAgent}
}

// CloseIdleConnections releases pooled connections.
func (f *Fetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

// Fetch retrieves rawURL. Only HTML and plain text responses are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", rawURL, err)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/plain", "text/markdown":
		return Document{URL: final, Title: final, Body: strings.TrimSpace(string(body))}, nil
	case "", "text/html", "application/xhtml+xml":
	default:
		return Document{}, fmt.Errorf("fetch %s: unsupported content type %q", rawURL, mediaType)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	base, err := url.Parse(final)
	if err != nil {
		return Document{}, fmt.Errorf("parse url %s: %w", final, err)
	}

	w := &walker{base: base, seen: make(map[string]struct{})}
	w.walk(doc, 0)

	title := strings.TrimSpace(w.title.String())
	if title == "" {
		title = final
	}
	return Document{
		URL:   final,
		Title: title,
		Body:  cleanText(w.body.String()),
		Links: w.links,
	}, nil
}

type walker struct {
	base  *url.URL
	title strings.Builder
	body  strings.Builder
	links []string
	seen  map[string]struct{}
}

func (w *walker) walk(n *html.Node, depth int) {
	if depth > 64 {
		return
	}
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			w.body.WriteString(text)
			w.body.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "template":
			return
		case "title":
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					w.title.WriteString(c.Data)
				}
			}
			return
		case "a":
			w.addLink(attr(n, "href"))
		case "h1", "h2", "h3", "h4", "h5", "h6":
			w.body.WriteString("\n\n" + strings.Repeat("#", int(n.Data[1]-'0')) + " ")
		case "p", "div", "section", "article", "table", "tr":
			w.body.WriteString("\n\n")
		case "br":
			w.body.WriteString("\n")
		case "li":
			w.body.WriteString("\n- ")
		case "pre":
			w.body.WriteString("\n\n```\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			w.body.WriteString("\n\n")
		case "pre":
			w.body.WriteString("\n```\n\n")
		}
	}
}

func (w *walker) addLink(href string) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}
	ref, err := url.Parse(href)
	if err != nil {
		return
	}
	abs := w.base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return
	}
	abs.Fragment = ""
	s := abs.String()
	if _, ok := w.seen[s]; ok {
		return
	}
	w.seen[s] = struct{}{}
	w.links = append(w.links, s)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func cleanText(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
