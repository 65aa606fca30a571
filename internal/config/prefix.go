package config

import (
	"path"
	"strings"
)

// NormalizePrefix cleans a bucket-level prefix: forward slashes only, no
// leading or trailing slash, no empty segments.
func NormalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	prefix = strings.ReplaceAll(prefix, "\\", "/")
	for strings.Contains(prefix, "//") {
		prefix = strings.ReplaceAll(prefix, "//", "/")
	}

	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return path.Clean(prefix)
}

// NormalizeKeyPrefix is for job input/output prefixes, which are joined to a
// date stamp verbatim. A trailing slash is significant and is kept.
func NormalizeKeyPrefix(prefix string) string {
	trailing := strings.HasSuffix(prefix, "/") || strings.HasSuffix(prefix, "\\")
	p := NormalizePrefix(prefix)
	if p != "" && trailing {
		p += "/"
	}
	return p
}
