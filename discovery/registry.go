package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rut31337/cloudforge/core/types"
)

// Image is one provider image returned by a listing call
type Image struct {
	// ID is the provider-native identifier (AMI id, self link, URN)
	ID string

	// Name is the provider-visible image name
	Name string

	// CreatedAt is the creation timestamp, if the provider reports one
	CreatedAt time.Time

	// Public reports provider-visible public visibility
	Public bool

	// Owner is the owning account or project
	Owner string
}

// ImageQuery narrows an image listing call
type ImageQuery struct {
	// Pattern is a glob-style name pattern forwarded to the provider
	// where its API supports it
	Pattern string

	// Owner restricts the listing to an owning account/project
	Owner string

	// Region scopes the listing where the provider is regional
	Region string
}

// CacheKey renders the query into a stable response-cache key
func (q ImageQuery) CacheKey() string {
	return fmt.Sprintf("images:%s:%s:%s", q.Owner, q.Pattern, q.Region)
}

// ImageSource lists images for one provider
type ImageSource interface {
	// Provider returns the provider this source queries
	Provider() types.Provider

	// ListImages performs the provider-native listing call
	ListImages(ctx context.Context, q ImageQuery) ([]Image, error)
}

// VersionSource lists supported versions for one platform
type VersionSource interface {
	// Platform returns the platform identifier, e.g. "openshift"
	Platform() string

	// ListVersions fetches the currently supported version strings
	ListVersions(ctx context.Context) ([]string, error)
}

// SourceRegistry manages discovery source registration. Sources register
// at wiring time; lookups are read-only afterwards.
type SourceRegistry struct {
	mu       sync.RWMutex
	images   map[types.Provider]ImageSource
	versions map[string]VersionSource
}

// NewSourceRegistry creates an empty registry
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		images:   make(map[types.Provider]ImageSource),
		versions: make(map[string]VersionSource),
	}
}

// RegisterImageSource adds an image source to the registry
func (r *SourceRegistry) RegisterImageSource(s ImageSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.images[s.Provider()]; exists {
		return fmt.Errorf("image source already registered: %s", s.Provider())
	}
	r.images[s.Provider()] = s
	return nil
}

// RegisterVersionSource adds a version source to the registry
func (r *SourceRegistry) RegisterVersionSource(s VersionSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.versions[s.Platform()]; exists {
		return fmt.Errorf("version source already registered: %s", s.Platform())
	}
	r.versions[s.Platform()] = s
	return nil
}

// ImageSource returns the image source for a provider
func (r *SourceRegistry) ImageSource(p types.Provider) (ImageSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.images[p]
	return s, ok
}

// VersionSource returns the version source for a platform
func (r *SourceRegistry) VersionSource(platform string) (VersionSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.versions[platform]
	return s, ok
}
