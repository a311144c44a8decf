// Package gcp provides the GCP discovery source.
package gcp

import (
	"context"
	"time"

	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/discovery"
)

// Config configures the GCP image source
type Config struct {
	// Project overrides the image-owning project from the catalog rule;
	// usually empty since rules name public image projects directly
	Project string

	// CredentialsFile points at a service account key; empty uses
	// application default credentials
	CredentialsFile string
}

// ImageSource lists images through the Compute Engine images API.
// Read-only: compute.images.list on the rule's project is sufficient.
type ImageSource struct {
	service *compute.Service
	project string
}

// NewImageSource builds the source using application default credentials
func NewImageSource(ctx context.Context, cfg Config) (*ImageSource, error) {
	opts := []option.ClientOption{option.WithScopes(compute.ComputeReadonlyScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	service, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &ImageSource{service: service, project: cfg.Project}, nil
}

// Provider returns the provider identifier
func (s *ImageSource) Provider() types.Provider {
	return types.GCP
}

// ListImages lists the owning project's non-deprecated images. GCP has no
// server-side glob filter worth relying on, so it returns the full list
// and leaves pattern selection to the image resolver.
func (s *ImageSource) ListImages(ctx context.Context, q discovery.ImageQuery) ([]discovery.Image, error) {
	project := q.Owner
	if project == "" {
		project = s.project
	}

	var images []discovery.Image
	call := s.service.Images.List(project).Context(ctx)
	err := call.Pages(ctx, func(page *compute.ImageList) error {
		for _, img := range page.Items {
			if img.Deprecated != nil && img.Deprecated.State != "" && img.Deprecated.State != "ACTIVE" {
				continue
			}
			entry := discovery.Image{
				ID:    img.SelfLink,
				Name:  img.Name,
				Owner: project,
				// Images listed out of a public image project are
				// public; anything else is project-private.
				Public: isPublicImageProject(project),
			}
			if img.CreationTimestamp != "" {
				if ts, perr := time.Parse(time.RFC3339, img.CreationTimestamp); perr == nil {
					entry.CreatedAt = ts
				}
			}
			images = append(images, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// publicImageProjects are the well-known GCP public image projects.
// BYOS/entitlement projects (rhel-byos-cloud) are deliberately absent.
var publicImageProjects = map[string]bool{
	"centos-cloud":      true,
	"debian-cloud":      true,
	"fedora-cloud":      true,
	"rhel-cloud":        true,
	"rocky-linux-cloud": true,
	"suse-cloud":        true,
	"ubuntu-os-cloud":   true,
	"windows-cloud":     true,
}

func isPublicImageProject(project string) bool {
	return publicImageProjects[project]
}
