package crawl

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	const page = "https://example.com/docs/"

	tests := []struct {
		name           string
		html           string
		sameDomainOnly bool
		want           []Link
	}{
		{
			name: "relative links resolved against page",
			html: `<a href="guide">Guide</a><a href="/about">About</a>`,
			want: []Link{
				{URL: "https://example.com/docs/guide", Text: "Guide"},
				{URL: "https://example.com/about", Text: "About"},
			},
		},
		{
			name: "fragments mailto and javascript skipped",
			html: `<a href="#top">Top</a><a href="mailto:x@y.z">Mail</a><a href="javascript:void(0)">JS</a><a href="https://example.com/ok">OK</a>`,
			want: []Link{{URL: "https://example.com/ok", Text: "OK"}},
		},
		{
			name: "duplicates collapse to first occurrence",
			html: `<a href="/a">first</a><a href="/a">second</a>`,
			want: []Link{{URL: "https://example.com/a", Text: "first"}},
		},
		{
			name:           "same domain filter drops other hosts",
			html:           `<a href="https://example.com/in">In</a><a href="https://other.com/out">Out</a>`,
			sameDomainOnly: true,
			want:           []Link{{URL: "https://example.com/in", Text: "In"}},
		},
		{
			name: "empty anchor text falls back to the url",
			html: `<a href="/bare"></a>`,
			want: []Link{{URL: "https://example.com/bare", Text: "https://example.com/bare"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLinks(tt.html, page, tt.sameDomainOnly, 100, 200)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractLinksCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, `<a href="/p%d">link %d</a>`, i, i)
	}
	got := ExtractLinks(b.String(), "https://example.com/", false, 10, 200)
	require.Len(t, got, 10)
	assert.Equal(t, "https://example.com/p0", got[0].URL)
	assert.Equal(t, "https://example.com/p9", got[9].URL)
}

func TestExtractLinksTextTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := ExtractLinks(`<a href="/a">`+long+`</a>`, "https://example.com/", false, 10, 20)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Text, 20)
}

func TestExtractLinksBadPageURL(t *testing.T) {
	got := ExtractLinks(`<a href="/a">a</a>`, "://not a url", false, 10, 200)
	assert.Nil(t, got)
}
