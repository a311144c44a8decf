// Package image resolves symbolic image aliases to concrete provider
// image references.
package image

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Pattern is a compiled, anchored glob matcher. Alias patterns compile
// once and are reused across every image-list entry they are tested
// against.
type Pattern struct {
	raw      string
	wildcard bool
	re       *regexp.Regexp
}

// Compile compiles a glob-style pattern ('*' wildcards, anchored at both
// ends).
func Compile(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty image pattern")
	}
	parts := strings.Split(raw, "*")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile("^" + strings.Join(quoted, ".*") + "$")
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", raw, err)
	}
	return &Pattern{
		raw:      raw,
		wildcard: len(parts) > 1,
		re:       re,
	}, nil
}

// String returns the source pattern
func (p *Pattern) String() string {
	return p.raw
}

// Wildcard reports whether the pattern contains any '*'
func (p *Pattern) Wildcard() bool {
	return p.wildcard
}

// Match tests a name against the pattern
func (p *Pattern) Match(name string) bool {
	return p.re.MatchString(name)
}

// patternCache holds compiled patterns keyed by source text
type patternCache struct {
	mu       sync.RWMutex
	compiled map[string]*Pattern
}

func newPatternCache() *patternCache {
	return &patternCache{compiled: make(map[string]*Pattern)}
}

func (c *patternCache) get(raw string) (*Pattern, error) {
	c.mu.RLock()
	p, ok := c.compiled[raw]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := Compile(raw)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.compiled[raw] = p
	c.mu.Unlock()
	return p, nil
}

// versionToken finds version-like digit runs in an image name
var versionToken = regexp.MustCompile(`\d+(?:[._-]\d+)*`)

// versionSuffix extracts the last version-like token of a name as a
// numeric sequence, for "highest version-like suffix wins" ordering.
// Names without any digits sort below all versioned names.
func versionSuffix(name string) []int {
	tokens := versionToken.FindAllString(name, -1)
	if len(tokens) == 0 {
		return nil
	}
	last := tokens[len(tokens)-1]
	fields := strings.FieldsFunc(last, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}

// compareVersionSuffix orders two version sequences; a missing component
// counts as zero so "9.4" < "9.4.1".
func compareVersionSuffix(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
