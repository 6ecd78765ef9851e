// Package textfix repairs text that was stored after being decoded with the
// wrong character set (UTF-8 bytes read as Windows-1252, e.g. "AcciÃ³n").
package textfix

import (
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding/charmap"
)

// DefaultCacheSize bounds the number of memoised corrections.
const DefaultCacheSize = 2048

// maxPasses covers text that went through the wrong decoding twice.
const maxPasses = 2

// markers are the runes UTF-8 lead bytes turn into under Windows-1252.
const markers = "ÃÂâÅÆÐÑ"

// Fixer corrects mis-encoded strings and memoises the results. It is safe for
// concurrent use.
type Fixer struct {
	cache *lru.Cache[string, string]
}

// New constructs a Fixer keeping up to size corrections.
func New(size int) (*Fixer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Fixer{cache: cache}, nil
}

// String returns the repaired form of s, or s itself when it does not look
// mis-encoded.
func (f *Fixer) String(s string) string {
	if !strings.ContainsAny(s, markers) {
		return s
	}
	if f != nil && f.cache != nil {
		if fixed, ok := f.cache.Get(s); ok {
			return fixed
		}
	}

	fixed := repair(s)
	if f != nil && f.cache != nil {
		f.cache.Add(s, fixed)
	}
	return fixed
}

// Deep walks maps and slices produced by JSON decoding and repairs every
// string value in place, returning the updated value.
func (f *Fixer) Deep(value any) any {
	switch v := value.(type) {
	case string:
		return f.String(v)
	case []string:
		for i := range v {
			v[i] = f.String(v[i])
		}
		return v
	case []any:
		for i := range v {
			v[i] = f.Deep(v[i])
		}
		return v
	case map[string]any:
		for key, item := range v {
			v[key] = f.Deep(item)
		}
		return v
	default:
		return value
	}
}

func repair(s string) string {
	current := s
	encoder := charmap.Windows1252.NewEncoder()
	for pass := 0; pass < maxPasses; pass++ {
		if !strings.ContainsAny(current, markers) {
			break
		}
		raw, err := encoder.String(current)
		if err != nil || !utf8.ValidString(raw) || raw == current {
			break
		}
		current = raw
	}
	return current
}
