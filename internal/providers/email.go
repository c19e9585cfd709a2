package providers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// maxPageBytes caps how much of a business site is read when hunting
// for a contact email.
const maxPageBytes = 2 << 20

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// placeholderFragments mark template addresses that sites ship without
// ever wiring up. A candidate containing any of them is rejected.
var placeholderFragments = []string{"example.com", "yourdomain", "domain.com", "email.com"}

// EmailDiscoverer performs best-effort contact email lookup by fetching
// a business website and scanning it for an email-shaped token. It is
// stateless and safe to share across provider instances.
type EmailDiscoverer struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewEmailDiscoverer(logger *slog.Logger) *EmailDiscoverer {
	return &EmailDiscoverer{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Discover returns the first acceptable email found on the site, or ""
// when nothing was found. If the page itself yields nothing and the URL
// does not already look like a contact page, a /contact subpage is
// tried once. Never fails: any error degrades to "".
func (d *EmailDiscoverer) Discover(ctx context.Context, websiteURL string) string {
	if websiteURL == "" {
		return ""
	}
	if email := d.scanPage(ctx, websiteURL); email != "" {
		return email
	}
	if !strings.Contains(strings.ToLower(websiteURL), "/contact") {
		return d.scanPage(ctx, strings.TrimRight(websiteURL, "/")+"/contact")
	}
	return ""
}

func (d *EmailDiscoverer) scanPage(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Debug("email discovery fetch failed", "url", pageURL, "error", err)
		return ""
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		d.logger.Debug("email discovery read failed", "url", pageURL, "error", err)
		return ""
	}

	// mailto links are the most reliable signal, so they win over
	// matches buried in page text.
	if email := scanMailtoLinks(body); email != "" {
		return email
	}
	for _, candidate := range emailPattern.FindAllString(string(body), -1) {
		if acceptableEmail(candidate) {
			return candidate
		}
	}
	return ""
}

func scanMailtoLinks(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var found string
	doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if emailPattern.MatchString(addr) && acceptableEmail(addr) {
			found = emailPattern.FindString(addr)
			return false
		}
		return true
	})
	return found
}

func acceptableEmail(addr string) bool {
	lower := strings.ToLower(addr)
	for _, fragment := range placeholderFragments {
		if strings.Contains(lower, fragment) {
			return false
		}
	}
	return true
}
