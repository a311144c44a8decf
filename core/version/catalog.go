// Package version validates platform versions against a live-or-cached
// catalog of supported versions.
package version

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultTTL is how long a fetched version catalog stays fresh
const DefaultTTL = time.Hour

// Snapshot is one immutable, point-in-time view of a platform's
// supported versions, sorted ascending.
type Snapshot struct {
	// Platform the snapshot belongs to
	Platform string

	// FetchedAt is when the list was retrieved
	FetchedAt time.Time

	parsed []*semver.Version
	raw    []string
}

// newSnapshot parses and sorts a raw version list
func newSnapshot(platform string, versions []string, fetchedAt time.Time) (*Snapshot, error) {
	if len(versions) == 0 {
		return nil, fmt.Errorf("platform %s returned an empty version list", platform)
	}
	type pair struct {
		parsed *semver.Version
		raw    string
	}
	pairs := make([]pair, 0, len(versions))
	for _, raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("platform %s: unparseable version %q: %w", platform, raw, err)
		}
		pairs = append(pairs, pair{parsed: v, raw: raw})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].parsed.LessThan(pairs[j].parsed)
	})

	snap := &Snapshot{Platform: platform, FetchedAt: fetchedAt}
	for _, p := range pairs {
		snap.parsed = append(snap.parsed, p.parsed)
		snap.raw = append(snap.raw, p.raw)
	}
	return snap, nil
}

// Supported returns the version strings, ascending
func (s *Snapshot) Supported() []string {
	out := make([]string, len(s.raw))
	copy(out, s.raw)
	return out
}

// Latest returns the newest supported version
func (s *Snapshot) Latest() string {
	return s.raw[len(s.raw)-1]
}

// Stable returns the newest non-pre-release version, or Latest when every
// entry is a pre-release.
func (s *Snapshot) Stable() string {
	for i := len(s.parsed) - 1; i >= 0; i-- {
		if s.parsed[i].Prerelease() == "" {
			return s.raw[i]
		}
	}
	return s.Latest()
}

// Contains reports whether a requested version is in the supported set.
// Comparison is semver equality, so "4.19.3" matches "v4.19.3".
func (s *Snapshot) Contains(requested string) bool {
	req, err := semver.NewVersion(requested)
	if err != nil {
		return false
	}
	for _, v := range s.parsed {
		if v.Equal(req) {
			return true
		}
	}
	return false
}

// Compare orders a requested version against a resolved one: negative
// when requested is older. Unparseable requests count as older.
func Compare(requested, resolved string) int {
	req, err := semver.NewVersion(requested)
	if err != nil {
		return -1
	}
	res, err := semver.NewVersion(resolved)
	if err != nil {
		return 1
	}
	return req.Compare(res)
}

// Catalog holds per-platform snapshots under a single-writer/many-reader
// discipline: a refresh builds a complete new snapshot and swaps it in
// atomically, so readers never observe a partial list.
type Catalog struct {
	ttl time.Duration

	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	clock     func() time.Time
}

// NewCatalog creates a catalog with the given TTL (DefaultTTL when zero)
func NewCatalog(ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		ttl:       ttl,
		snapshots: make(map[string]*Snapshot),
		clock:     time.Now,
	}
}

// Get returns the current snapshot and whether it is still fresh
func (c *Catalog) Get(platform string) (snap *Snapshot, ok bool, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok = c.snapshots[platform]
	if !ok {
		return nil, false, false
	}
	return snap, true, c.clock().Sub(snap.FetchedAt) <= c.ttl
}

// Put parses, sorts, and atomically installs a new snapshot
func (c *Catalog) Put(platform string, versions []string) (*Snapshot, error) {
	snap, err := newSnapshot(platform, versions, c.clock())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snapshots[platform] = snap
	c.mu.Unlock()
	return snap, nil
}

// SetClock overrides the time source; used by tests to drive TTL expiry
func (c *Catalog) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}
