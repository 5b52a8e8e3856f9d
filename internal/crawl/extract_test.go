package crawl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantTitle string
		wantText  string
	}{
		{
			name:      "title and body",
			html:      `<html><head><title>Hello</title></head><body><p>first</p><p>second</p></body></html>`,
			wantTitle: "Hello",
			wantText:  "first\nsecond",
		},
		{
			name:      "main preferred over body",
			html:      `<html><body><div>chrome</div><main><p>content</p></main></body></html>`,
			wantTitle: "",
			wantText:  "content",
		},
		{
			name:      "article preferred when no main",
			html:      `<html><body><div>chrome</div><article>story</article></body></html>`,
			wantTitle: "",
			wantText:  "story",
		},
		{
			name:      "script style nav footer aside removed",
			html:      `<html><body><script>var x=1;</script><style>.a{}</style><nav>menu</nav><footer>foot</footer><aside>side</aside><p>keep</p></body></html>`,
			wantTitle: "",
			wantText:  "keep",
		},
		{
			name:      "whitespace collapsed per node",
			html:      "<html><body><p>  spaced   out  </p></body></html>",
			wantTitle: "",
			wantText:  "spaced   out",
		},
		{
			name:      "bare text without body tag",
			html:      `just words`,
			wantTitle: "",
			wantText:  "just words",
		},
		{
			name:      "empty document",
			html:      "",
			wantTitle: "",
			wantText:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, text := ExtractText(tt.html, 0)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestExtractTextTruncation(t *testing.T) {
	body := strings.Repeat("a", 500)
	_, text := ExtractText("<html><body><p>"+body+"</p></body></html>", 100)
	assert.Len(t, []rune(text), 100)
}

func TestExtractTextTruncationIsRuneSafe(t *testing.T) {
	body := strings.Repeat("é", 50)
	_, text := ExtractText("<html><body><p>"+body+"</p></body></html>", 10)
	assert.Equal(t, strings.Repeat("é", 10), text)
}

func TestExtractTextEmptyMainFallsBackToWholeDocument(t *testing.T) {
	html := `<html><body><main></main><div>outside main</div></body></html>`
	_, text := ExtractText(html, 0)
	assert.Equal(t, "outside main", text)
}
