// Package collect fetches web pages and writes their sentences as tagged
// word/POS/CHUNK lines, one "# source:" block per page, ready for annotation
// or extraction.
package collect

import (
	"bufio"
	"context"
	"crypto/md5"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/happyhackingspace/openie"
	"github.com/happyhackingspace/openie/internal/features"
	"github.com/happyhackingspace/openie/internal/htmlutil"
)

// maxBody caps how much of a response is read.
const maxBody = 5 * 1024 * 1024

// httpClient is the interface used for HTTP requests (allows testing).
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls a collection run.
type Config struct {
	Timeout    time.Duration
	Delay      time.Duration // pause between requests
	UserAgent  string
	MaxPerSite int // pages fetched per seed URL, following same-host links; 1 disables following
	MinWords   int // shorter sentences are dropped
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		Delay:      800 * time.Millisecond,
		UserAgent:  "Mozilla/5.0 (compatible; openie-collect/1.0)",
		MaxPerSite: 1,
		MinWords:   4,
	}
}

// Stats summarizes a collection run.
type Stats struct {
	Pages     int
	Sentences int
	Failed    int
}

// Collector fetches pages and writes their sentences.
type Collector struct {
	client httpClient
	config Config
	seen   map[[md5.Size]byte]bool
}

// New creates a collector.
func New(config Config) *Collector {
	return &Collector{client: newHTTPClient(config.Timeout), config: config, seen: make(map[[md5.Size]byte]bool)}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

// LoadLines reads the non-empty, non-comment lines of a file.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// Collect fetches every seed URL (and, with MaxPerSite > 1, same-host links
// found on it) and writes the tagged sentences of each page to w. Pages that
// fail are logged and counted. Sentences already written are skipped.
func (c *Collector) Collect(ctx context.Context, seeds []string, w io.Writer) (Stats, error) {
	var stats Stats
	bw := bufio.NewWriter(w)
	for _, seed := range seeds {
		if !strings.HasPrefix(seed, "http") {
			seed = "https://" + seed
		}
		if err := c.collectSite(ctx, seed, bw, &stats); err != nil {
			if ctx.Err() != nil {
				_ = bw.Flush()
				return stats, ctx.Err()
			}
			slog.Warn("Failed to collect site", "site", seed, "error", err)
		}
	}
	return stats, bw.Flush()
}

func (c *Collector) collectSite(ctx context.Context, seed string, w io.Writer, stats *Stats) error {
	base, err := url.Parse(seed)
	if err != nil {
		return err
	}
	queue := []string{seed}
	visited := map[string]bool{normalizeURL(seed): true}
	pages := 0
	for len(queue) > 0 && pages < max(c.config.MaxPerSite, 1) {
		target := queue[0]
		queue = queue[1:]
		if pages > 0 && c.config.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.Delay):
			}
		}

		html, status, err := c.fetch(ctx, target)
		if err != nil || status >= 400 {
			stats.Failed++
			slog.Debug("Failed to fetch", "url", target, "status", status, "error", err)
			if pages == 0 && err != nil {
				return err
			}
			continue
		}
		doc, err := htmlutil.LoadHTMLString(html)
		if err != nil {
			stats.Failed++
			continue
		}
		n, err := c.writePage(w, target, doc)
		if err != nil {
			return err
		}
		pages++
		stats.Pages++
		stats.Sentences += n
		slog.Info("Collected", "url", target, "sentences", n)

		if c.config.MaxPerSite > 1 {
			for _, link := range extractLinks(doc, base) {
				u, err := url.Parse(link)
				if err != nil || u.Hostname() != base.Hostname() || skipURL(u) {
					continue
				}
				if key := normalizeURL(link); !visited[key] {
					visited[key] = true
					queue = append(queue, link)
				}
			}
		}
	}
	return nil
}

// writePage writes the new sentences of one page and returns their number.
func (c *Collector) writePage(w io.Writer, source string, doc *goquery.Document) (int, error) {
	var lines []string
	for _, block := range htmlutil.DocumentBlocks(doc) {
		for _, words := range openie.Sentences(block) {
			if len(words) < c.config.MinWords {
				continue
			}
			tokens := features.GuessTags(words)
			parts := make([]string, len(tokens))
			for i, tok := range tokens {
				parts[i] = tok.String()
			}
			line := strings.Join(parts, " ")
			key := md5.Sum([]byte(line))
			if c.seen[key] {
				continue
			}
			c.seen[key] = true
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(w, "# source: %s\n", source); err != nil {
		return 0, err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return 0, err
		}
	}
	return len(lines), nil
}

func (c *Collector) fetch(ctx context.Context, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

// extractLinks returns the <a href> targets of a page, resolved against base.
func extractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u).String()
		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})
	return links
}

// skipURL filters out non-page URLs (images, scripts, etc.)
func skipURL(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, ext := range []string{".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".pdf", ".zip", ".xml", ".json", ".woff", ".woff2", ".ttf", ".mp4", ".mp3", ".webp", ".avif"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// normalizeURL strips fragment and trailing slash for dedup.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}
