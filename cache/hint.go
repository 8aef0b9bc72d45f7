package cache

import (
	"regexp"
	"strconv"
	"strings"
)

// Hint is cache metadata extracted from a query comment.
type Hint struct {
	TTL   int    // seconds, 0 means no caching
	Query string // the query with the hint comment removed
}

// Match /* ttl:60 */ or /*ttl:60*/
var hintRegex = regexp.MustCompile(`/\*\s*ttl:(\d+)\s*\*/`)

// ParseHint extracts a ttl hint from a query. Queries without a hint come
// back with TTL 0 and the text untouched.
func ParseHint(query string) *Hint {
	h := &Hint{Query: query}
	matches := hintRegex.FindStringSubmatch(query)
	if matches == nil {
		return h
	}
	h.TTL, _ = strconv.Atoi(matches[1])
	h.Query = strings.TrimSpace(hintRegex.ReplaceAllString(query, ""))
	return h
}

// Cacheable reports whether the hint allows caching.
func (h *Hint) Cacheable() bool {
	return h.TTL > 0
}
