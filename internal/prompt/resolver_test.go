package prompt

import "github.com/benvon/saveprompt/internal/catalog"

// staticResolver serves fixed strings and falls back to the built-in catalog
type staticResolver map[catalog.Key]string

func (s staticResolver) String(key catalog.Key) string {
	if v, ok := s[key]; ok {
		return v
	}
	return catalog.Default().String(key)
}
