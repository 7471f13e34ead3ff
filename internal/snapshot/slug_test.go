package snapshot

import "testing"

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		url  string
		want string
	}{
		{"homepage", "https://example.com", "index"},
		{"root path", "https://example.com/", "index"},
		{"plain path", "https://example.com/about", "about"},
		{"trailing slash collapses", "https://ex.com/a/b/", "a-b"},
		{"nested path", "https://ex.com/a/b", "a-b"},
		{"uppercase and punctuation", "https://ex.com/Blog/Hello_World!", "blog-hello-world"},
		{"consecutive separators", "https://ex.com/a//b", "a-b"},
		{"non-ascii squashed", "https://ex.com/café", "caf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Slug(tc.url); got != tc.want {
				t.Fatalf("Slug(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestSlugQueryDisambiguation(t *testing.T) {
	t.Parallel()

	plain := Slug("https://ex.com/about")
	q1 := Slug("https://ex.com/about?x=1")
	q2 := Slug("https://ex.com/about?x=2")

	if q1 == plain || q2 == plain {
		t.Fatalf("query slugs must differ from plain slug: plain=%q q1=%q q2=%q", plain, q1, q2)
	}
	if q1 == q2 {
		t.Fatalf("different queries must not collide: %q", q1)
	}
	if Slug("https://ex.com/about?x=1") != q1 {
		t.Fatal("slug must be deterministic across calls")
	}
}

func TestSlugIdenticalPathsCollapse(t *testing.T) {
	t.Parallel()

	// Relied on by the screenshot dedup check: same path, no query, same slug.
	if Slug("https://ex.com/a/b") != Slug("https://www.ex.com/a/b") {
		t.Fatal("identical paths without query must share a slug")
	}
}
