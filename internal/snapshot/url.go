package snapshot

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeOrigin extracts the grouping origin for a URL: the host
// lower-cased with a leading "www." label stripped. URLs without a host
// cannot be bucketed and return an error.
func NormalizeOrigin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return host, nil
}

// BucketByOrigin partitions URLs into per-origin buckets, preserving
// first-seen order of origins and of URLs within an origin. URLs whose
// origin cannot be determined are returned separately.
func BucketByOrigin(urls []string) (buckets []OriginBucket, invalid []string) {
	index := make(map[string]int)
	for _, raw := range urls {
		origin, err := NormalizeOrigin(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		i, ok := index[origin]
		if !ok {
			i = len(buckets)
			index[origin] = i
			buckets = append(buckets, OriginBucket{Origin: origin})
		}
		buckets[i].URLs = append(buckets[i].URLs, raw)
	}
	return buckets, invalid
}
