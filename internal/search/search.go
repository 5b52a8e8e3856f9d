// Package search resolves free-text queries against a cascade of keyless
// search backends. Strategies are tried strictly in order and the first one to
// produce a non-empty hit list wins; backends over the wall of rate limiting
// get a cooldown before the cascade moves on.
package search

// Hit is one normalized search result. Backends use their own raw field
// names (href, body); normalization maps them onto this shape before anything
// leaves the package.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// empty reports whether every field of the hit is blank. Fully-empty hits are
// dropped during normalization.
func (h Hit) empty() bool {
	return h.Title == "" && h.URL == "" && h.Snippet == ""
}
