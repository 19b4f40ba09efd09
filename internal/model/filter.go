package model

import "strings"

// Filter holds the server-side filter parameters carried on the log stream
// and log query endpoints. Both fields empty means "everything".
type Filter struct {
	Types  []Category
	Search string
}

// Match reports whether a record passes the filter. Search matches
// case-insensitively against the message and username, and as a plain
// substring against the IP address; the type list is a membership test.
// Filtering here and in the console view share these exact semantics.
func (f Filter) Match(r LogRecord) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if r.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(r.Message), needle) {
		return true
	}
	if r.Username != "" && strings.Contains(strings.ToLower(r.Username), needle) {
		return true
	}
	if r.IPAddress != "" && strings.Contains(r.IPAddress, f.Search) {
		return true
	}
	return false
}

// ParseTypeList splits the comma-joined "type" query parameter, dropping
// values outside the known category set.
func ParseTypeList(raw string) []Category {
	if raw == "" {
		return nil
	}
	var out []Category
	for _, part := range strings.Split(raw, ",") {
		if c, ok := ParseCategory(strings.TrimSpace(part)); ok {
			out = append(out, c)
		}
	}
	return out
}

// TypeList renders the filter's categories as the comma-joined query value.
func (f Filter) TypeList() string {
	parts := make([]string, 0, len(f.Types))
	for _, t := range f.Types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ",")
}
