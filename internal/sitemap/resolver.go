// Package sitemap discovers the machine-readable sitemaps a site publishes.
// Resolution combines the robots.txt Sitemap directive with probing of
// conventional sitemap paths, sniffs gzip framing regardless of declared
// content-type, and expands sitemap indexes into their child sitemaps.
package sitemap

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/web-snapshot/internal/metrics"
	"github.com/JakeFAU/web-snapshot/internal/snapshot"
)

// Source identifies how a candidate sitemap URL was discovered.
type Source string

const (
	SourceRobots     Source = "robots"
	SourceCommonPath Source = "common-path"
)

// RootType classifies the document found at a candidate URL.
type RootType string

const (
	RootURLSet       RootType = "urlset"
	RootSitemapIndex RootType = "sitemapindex"
	RootPlainList    RootType = "plain"
	RootNone         RootType = "none"
)

// maxIndexDepth bounds recursive sitemap-index expansion. Depth 1 is the
// root index itself; depth 2 expands indexes listed inside it.
const maxIndexDepth = 2

// commonPaths is the ordered probe list, most conventional first. Order
// matters: the first classifying candidate decides FoundVia and RootSitemap.
var commonPaths = []string{
	"/sitemap.xml",
	"/sitemap.xml.gz",
	"/sitemap_index.xml",
	"/sitemap_index.xml.gz",
	"/sitemap-index.xml",
	"/sitemap-index.xml.gz",
	"/sitemapindex.xml",
	"/sitemaps.xml",
	"/sitemap1.xml",
	"/sitemap-1.xml",
	"/sitemap_1.xml",
	"/sitemap_1.xml.gz",
	"/sitemap-news.xml",
	"/news-sitemap.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
	"/product-sitemap.xml",
	"/category-sitemap.xml",
	"/tag-sitemap.xml",
	"/wp-sitemap.xml",
	"/sitemap/sitemap.xml",
	"/sitemap/sitemap-index.xml",
	"/sitemap/sitemap_index.xml",
	"/sitemap_index_1.xml",
	"/sitemap.xml?no_cache=1",
	"/sitemap.txt",
}

// ProbeResult records the outcome of classifying one candidate URL.
type ProbeResult struct {
	URL         string `json:"url"`
	Source      Source `json:"source"`
	HTTPStatus  int    `json:"http_status"`
	IsSitemap   bool   `json:"is_sitemap"`
	ContentType string `json:"content_type,omitempty"`
}

// Resolution is the full outcome of resolving one base URL.
type Resolution struct {
	Base        string        `json:"base"`
	FoundVia    Source        `json:"found_via,omitempty"`
	RootSitemap string        `json:"root_sitemap,omitempty"`
	RootType    RootType      `json:"root_type"`
	Sitemaps    []string      `json:"sitemaps"`
	Probes      []ProbeResult `json:"probes"`
}

// Resolver discovers sitemaps through a Fetcher.
type Resolver struct {
	fetcher snapshot.Fetcher
	logger  *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(fetcher snapshot.Fetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// NormalizeBase reduces a raw URL or bare domain to scheme+host. A missing
// scheme defaults to https. The path, query, and fragment are discarded.
func NormalizeBase(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url: missing host")
	}
	return u.Scheme + "://" + u.Host, nil
}

// Resolve discovers the sitemap set published under base. Candidates come
// from the robots.txt Sitemap directive and from the common-path probe list;
// every candidate is classified and reported. FoundVia and RootSitemap name
// the first candidate that classified as a sitemap. Only an unparseable base
// returns an error; network and parse failures degrade per candidate.
func (r *Resolver) Resolve(ctx context.Context, base string) (Resolution, error) {
	normalized, err := NormalizeBase(base)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		Base:     normalized,
		RootType: RootNone,
		Sitemaps: []string{},
		Probes:   []ProbeResult{},
	}

	type candidate struct {
		url    string
		source Source
	}
	var candidates []candidate
	seen := map[string]bool{}
	for _, u := range r.robotsCandidates(ctx, normalized) {
		if !seen[u] {
			seen[u] = true
			candidates = append(candidates, candidate{url: u, source: SourceRobots})
		}
	}
	for _, p := range commonPaths {
		u := normalized + p
		if !seen[u] {
			seen[u] = true
			candidates = append(candidates, candidate{url: u, source: SourceCommonPath})
		}
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		probe, body := r.classify(ctx, c.url, c.source)
		res.Probes = append(res.Probes, probe)
		metrics.ObserveSitemapProbe(string(c.source), probe.IsSitemap)
		if !probe.IsSitemap || res.RootSitemap != "" {
			continue
		}
		res.FoundVia = c.source
		res.RootSitemap = c.url
		res.RootType = body.rootType
		switch body.rootType {
		case RootSitemapIndex:
			visited := map[string]bool{c.url: true}
			res.Sitemaps = r.expandIndex(ctx, body.data, 1, visited)
		default:
			res.Sitemaps = []string{c.url}
		}
	}

	metrics.ObserveSitemapResolution(string(res.RootType))
	r.logger.Info("sitemap resolution finished",
		zap.String("base", normalized),
		zap.String("found_via", string(res.FoundVia)),
		zap.String("root_type", string(res.RootType)),
		zap.Int("sitemaps", len(res.Sitemaps)),
		zap.Int("probes", len(res.Probes)),
	)
	return res, nil
}

// robotsCandidates returns every URL declared by a Sitemap: directive in the
// site's robots.txt, in file order. Any failure yields no candidates.
func (r *Resolver) robotsCandidates(ctx context.Context, base string) []string {
	resp, err := r.fetcher.Fetch(ctx, base+"/robots.txt")
	if err != nil || resp.StatusCode != 200 || len(resp.Body) == 0 {
		return nil
	}
	var urls []string
	scanner := bufio.NewScanner(bytes.NewReader(resp.Body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		if u := strings.TrimSpace(line[len("sitemap:"):]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

type classifiedBody struct {
	rootType RootType
	data     []byte
}

// classify fetches one candidate and decides whether it is a sitemap. The
// decompressed body is returned alongside the probe record so an index can
// be expanded without a second fetch.
func (r *Resolver) classify(ctx context.Context, candidateURL string, source Source) (ProbeResult, classifiedBody) {
	probe := ProbeResult{URL: candidateURL, Source: source}
	resp, err := r.fetcher.Fetch(ctx, candidateURL)
	if err != nil {
		r.logger.Debug("candidate fetch failed",
			zap.String("url", candidateURL), zap.Error(err))
		return probe, classifiedBody{rootType: RootNone}
	}
	probe.HTTPStatus = resp.StatusCode
	probe.ContentType = resp.Headers.Get("Content-Type")
	if resp.StatusCode != 200 || len(resp.Body) == 0 {
		return probe, classifiedBody{rootType: RootNone}
	}

	data := gunzipIfFramed(resp.Body)
	rt := classifyBody(data)
	probe.IsSitemap = rt != RootNone
	return probe, classifiedBody{rootType: rt, data: data}
}

// expandIndex extracts child sitemap URLs from a sitemapindex document in
// document order. Children that are themselves indexes are expanded one more
// level; visited guards against cycles.
func (r *Resolver) expandIndex(ctx context.Context, data []byte, depth int, visited map[string]bool) []string {
	children := extractLocs(data)
	if depth >= maxIndexDepth {
		// Depth-capped children are not fetched, but still pass through
		// visited so a cyclic index cannot repeat URLs in the result.
		var capped []string
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			capped = append(capped, child)
		}
		return capped
	}
	var out []string
	for _, child := range children {
		if visited[child] {
			continue
		}
		visited[child] = true
		resp, err := r.fetcher.Fetch(ctx, child)
		if err != nil || resp.StatusCode != 200 || len(resp.Body) == 0 {
			out = append(out, child)
			continue
		}
		body := gunzipIfFramed(resp.Body)
		if classifyBody(body) == RootSitemapIndex {
			out = append(out, r.expandIndex(ctx, body, depth+1, visited)...)
		} else {
			out = append(out, child)
		}
	}
	return out
}

// gunzipIfFramed decompresses data when it carries the gzip magic bytes,
// regardless of any declared content-type. Decompression failure returns the
// raw bytes unchanged.
func gunzipIfFramed(data []byte) []byte {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return data
	}
	return plain
}

// classifyBody inspects a decompressed payload. XML with an urlset or
// sitemapindex root wins; otherwise a plain-text list of absolute URLs is
// accepted per the sitemaps.org text format.
func classifyBody(data []byte) RootType {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err == nil {
		if root := rootElement(doc); root != nil {
			switch root.Data {
			case "urlset":
				return RootURLSet
			case "sitemapindex":
				return RootSitemapIndex
			}
		}
	}
	if isPlainURLList(data) {
		return RootPlainList
	}
	return RootNone
}

// rootElement returns the document's root element node, skipping the XML
// declaration and any comments.
func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// extractLocs returns every <loc> value in document order.
func extractLocs(data []byte) []string {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	var urls []string
	for _, n := range xmlquery.Find(doc, "//loc") {
		if text := strings.TrimSpace(n.InnerText()); text != "" {
			urls = append(urls, text)
		}
	}
	return urls
}

// plainListProbeLines caps how many lines the text heuristic inspects.
const plainListProbeLines = 5

// isPlainURLList reports whether the first few non-empty lines are all
// absolute http(s) URLs, the sitemaps.org plain-text variant.
func isPlainURLList(data []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	checked := 0
	for scanner.Scan() && checked < plainListProbeLines {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return false
		}
		checked++
	}
	return checked > 0
}
