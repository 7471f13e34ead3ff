package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	dashRuns     = regexp.MustCompile(`-+`)
)

const querySuffixLen = 8

// Slug maps a URL to a stable, filesystem-safe identifier derived from its
// path. The homepage maps to "index", nested paths join their segments with
// dashes, and the result is restricted to [a-z0-9-]. URLs that carry a query
// string get a short digest suffix so they never collide on disk with the
// bare path; URLs with identical paths and no query intentionally collapse
// to the same slug.
func Slug(rawURL string) string {
	var path, query string
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
		query = u.RawQuery
	}

	base := "index"
	if p := strings.Trim(path, "/"); p != "" {
		base = strings.Join(strings.Split(p, "/"), "-")
	}
	base = strings.ToLower(base)
	base = nonSlugChars.ReplaceAllString(base, "-")
	base = dashRuns.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "index"
	}
	if query != "" {
		base = base + "-" + shortHash(rawURL)
	}
	return base
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:querySuffixLen]
}
