package crawl

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// DefaultJSPhrases are placeholder-page markers matched case-insensitively
// against the raw HTML.
var DefaultJSPhrases = []string{
	"enable javascript",
	"javascript is disabled",
	"javascript is required",
	"browser is not supported",
	"please turn on javascript",
	"requires javascript",
}

// DefaultJSHosts are platforms that serve a near-empty shell without an
// explicit "enable JS" message. Matched against the URL host, including
// subdomains.
var DefaultJSHosts = []string{
	"docs.google.com",
	"drive.google.com",
	"notion.so",
	"notion.site",
	"quip.com",
	"coda.io",
	"paper.dropbox.com",
	"canva.com",
}

// defaultMinTextLen is the extracted-text rune count below which a known
// JS-dependent host is assumed to have withheld its payload.
const defaultMinTextLen = 400

// Detector decides whether a fetched page is a JS-required placeholder that
// warrants a headless render.
type Detector struct {
	minTextLen int
	phrases    []string
	hosts      []string
}

// NewDetector builds a Detector. Zero or nil arguments fall back to the
// package defaults; the tables are copied so callers cannot mutate them later.
func NewDetector(minTextLen int, phrases, hosts []string) *Detector {
	if minTextLen <= 0 {
		minTextLen = defaultMinTextLen
	}
	if phrases == nil {
		phrases = DefaultJSPhrases
	}
	if hosts == nil {
		hosts = DefaultJSHosts
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Detector{
		minTextLen: minTextLen,
		phrases:    lowered,
		hosts:      append([]string(nil), hosts...),
	}
}

// NeedsRender reports whether the page looks like a JS-required placeholder.
// Either an explicit placeholder phrase in the raw HTML or a too-short
// extraction from a known JS-dependent host is enough.
func (d *Detector) NeedsRender(rawHTML, rawURL, extractedText string) bool {
	if d == nil {
		return false
	}
	lower := strings.ToLower(rawHTML)
	for _, phrase := range d.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	if utf8.RuneCountInString(extractedText) < d.minTextLen && d.isJSHost(rawURL) {
		return true
	}
	return false
}

func (d *Detector) isJSHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range d.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
