package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// HTTPVersionSource fetches supported platform versions from an HTTPS
// endpoint returning a JSON array of version strings (or an object with a
// "versions" array). Authentication is a bearer token read from the
// process environment; the variable name is configuration, the value is
// read fresh per call so rotation needs no restart.
type HTTPVersionSource struct {
	platform string
	endpoint string
	tokenEnv string
	client   *http.Client
}

// HTTPVersionConfig configures an HTTPVersionSource
type HTTPVersionConfig struct {
	// Platform is the platform identifier, e.g. "openshift"
	Platform string

	// Endpoint is the version-listing URL
	Endpoint string

	// TokenEnv names the environment variable holding the bearer token.
	// Empty means unauthenticated.
	TokenEnv string

	// HTTPTimeout bounds the underlying transport; the gateway applies
	// its own per-call deadline on top
	HTTPTimeout time.Duration
}

// NewHTTPVersionSource creates a version source for one platform endpoint
func NewHTTPVersionSource(cfg HTTPVersionConfig) *HTTPVersionSource {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPVersionSource{
		platform: cfg.Platform,
		endpoint: cfg.Endpoint,
		tokenEnv: cfg.TokenEnv,
		client:   &http.Client{Timeout: timeout},
	}
}

// Platform returns the platform identifier
func (s *HTTPVersionSource) Platform() string {
	return s.platform
}

// ListVersions fetches the supported version list
func (s *HTTPVersionSource) ListVersions(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.tokenEnv != "" {
		if token := os.Getenv(s.tokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("version endpoint returned %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return decodeVersionList(data)
}

func decodeVersionList(data []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped struct {
		Versions []string `json:"versions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("version endpoint payload not understood: %w", err)
	}
	if wrapped.Versions == nil {
		return nil, fmt.Errorf("version endpoint payload missing versions array")
	}
	return wrapped.Versions, nil
}
