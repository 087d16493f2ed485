package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FilterAction defines the action to take on matched property keys
type FilterAction string

const (
	FilterActionRemove FilterAction = "remove"
	FilterActionHash   FilterAction = "hash"
	FilterActionMask   FilterAction = "mask"
)

// MetadataFilter scrubs secrets from entry properties before they are stored.
// Nested maps (for example the old/new halves of UpdateProperties) are
// filtered recursively.
type MetadataFilter struct {
	rules   map[string]FilterAction
	allowed map[string]bool
}

// Keys that must never reach the audit trail in clear text. Keys are
// matched case-insensitively; "*x*" matches any key containing x.
var defaultRules = map[string]FilterAction{
	"*password*":     FilterActionRemove,
	"*secret*":       FilterActionRemove,
	"*token*":        FilterActionRemove,
	"code":           FilterActionRemove,
	"otp":            FilterActionRemove,
	"recovery_code":  FilterActionRemove,
	"recovery_codes": FilterActionRemove,
	"api_key":        FilterActionRemove,
	"private_key":    FilterActionRemove,
	"ssh_key":        FilterActionMask,
	"phone":          FilterActionMask,
}

// FilterOption configures MetadataFilter behavior
type FilterOption func(*MetadataFilter)

// NewMetadataFilter creates a filter preloaded with the default rules.
func NewMetadataFilter(opts ...FilterOption) *MetadataFilter {
	f := &MetadataFilter{
		rules:   make(map[string]FilterAction, len(defaultRules)),
		allowed: make(map[string]bool),
	}
	for k, v := range defaultRules {
		f.rules[k] = v
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithFieldRule adds or overrides a rule. Wildcards follow the "*x*",
// "x.*" and "*.x" forms.
func WithFieldRule(field string, action FilterAction) FilterOption {
	return func(f *MetadataFilter) {
		f.rules[strings.ToLower(field)] = action
	}
}

// WithAllowedField lets a field through untouched even if a rule matches.
func WithAllowedField(field string) FilterOption {
	return func(f *MetadataFilter) {
		f.allowed[strings.ToLower(field)] = true
	}
}

// Filter returns a scrubbed copy of props. The input is never modified.
func (f *MetadataFilter) Filter(props Properties) Properties {
	if props == nil {
		return nil
	}
	return Properties(f.filterMap(props))
}

func (f *MetadataFilter) filterMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		lowerKey := strings.ToLower(key)

		if !f.allowed[lowerKey] {
			if action, ok := f.match(lowerKey); ok {
				if result, keep := apply(action, value); keep {
					out[key] = result
				}
				continue
			}
		}

		out[key] = f.filterValue(value)
	}
	return out
}

func (f *MetadataFilter) filterValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return f.filterMap(v)
	case Properties:
		return f.filterMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = f.filterValue(item)
		}
		return out
	default:
		return value
	}
}

func (f *MetadataFilter) match(key string) (FilterAction, bool) {
	if action, ok := f.rules[key]; ok {
		return action, true
	}
	for pattern, action := range f.rules {
		if strings.Contains(pattern, "*") && matchesPattern(key, pattern) {
			return action, true
		}
	}
	return "", false
}

func matchesPattern(key, pattern string) bool {
	switch {
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 2:
		return strings.Contains(key, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(key, pattern[2:])
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(key, pattern[:len(pattern)-2])
	}
	return false
}

func apply(action FilterAction, value any) (any, bool) {
	switch action {
	case FilterActionRemove:
		return nil, false
	case FilterActionHash:
		return hashValue(value), true
	case FilterActionMask:
		return maskValue(value), true
	default:
		return value, true
	}
}

func hashValue(value any) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%v", value)))
	return hex.EncodeToString(hash[:])
}

// maskValue keeps the first and last characters of longer values.
func maskValue(value any) string {
	str := fmt.Sprintf("%v", value)
	n := len(str)

	switch {
	case n <= 4:
		return strings.Repeat("*", n)
	case n <= 8:
		return str[:1] + strings.Repeat("*", n-2) + str[n-1:]
	default:
		return str[:2] + strings.Repeat("*", n-4) + str[n-2:]
	}
}
