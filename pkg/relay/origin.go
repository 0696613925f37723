package relay

import (
	"strings"
	"sync/atomic"
)

// OriginPolicy checks the Origin of browser requests against
// a list of patterns, where * matches any sequence of characters.
// The list can be changed at runtime.
type OriginPolicy struct {
	patterns atomic.Pointer[[]string]
}

func NewOriginPolicy(patterns []string) *OriginPolicy {
	p := &OriginPolicy{}
	p.Set(patterns)
	return p
}

func (p *OriginPolicy) Set(patterns []string) {
	list := make([]string, 0, len(patterns))
	for _, s := range patterns {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, strings.TrimSuffix(s, "/"))
		}
	}
	p.patterns.Store(&list)
}

func (p *OriginPolicy) Patterns() []string { return *p.patterns.Load() }

// Allowed tells whether the origin matches any pattern.
func (p *OriginPolicy) Allowed(origin string) bool {
	origin = strings.TrimSuffix(origin, "/")
	for _, pattern := range *p.patterns.Load() {
		if wildcardMatch(pattern, origin) {
			return true
		}
	}
	return false
}

// wildcardMatch matches s against the pattern with * wildcards
// (case-insensitive).
func wildcardMatch(pattern, s string) bool {
	pattern, s = strings.ToLower(pattern), strings.ToLower(s)
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(s, part)
		if i < 0 {
			return false
		}
		s = s[i+len(part):]
	}
	return strings.HasSuffix(s, last)
}
