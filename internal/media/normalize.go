package media

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters stripped during normalization; they
// vary per click without changing the content the URL names.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"igshid":  {},
	"mc_cid":  {},
	"mc_eid":  {},
	"msclkid": {},
}

// NormalizeURL canonicalizes an ingest URL for deduplication: lowercase
// scheme and host, default ports and fragments dropped, tracking parameters
// removed, remaining query sorted, trailing slash trimmed. Returns an empty
// string when the input does not parse as an absolute URL.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := parsed.EscapedPath()
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	query := parsed.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		if _, drop := trackingParams[strings.ToLower(key)]; drop {
			continue
		}
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var rebuilt strings.Builder
	rebuilt.WriteString(scheme)
	rebuilt.WriteString("://")
	rebuilt.WriteString(host)
	rebuilt.WriteString(path)
	for i, key := range keys {
		if i == 0 {
			rebuilt.WriteByte('?')
		} else {
			rebuilt.WriteByte('&')
		}
		values := append([]string{}, query[key]...)
		sort.Strings(values)
		for j, value := range values {
			if j > 0 {
				rebuilt.WriteByte('&')
			}
			rebuilt.WriteString(url.QueryEscape(key))
			rebuilt.WriteByte('=')
			rebuilt.WriteString(url.QueryEscape(value))
		}
	}
	return rebuilt.String()
}
