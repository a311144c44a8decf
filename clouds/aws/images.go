// Package aws provides the AWS discovery source.
package aws

import (
	"context"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/discovery"
)

// Config configures the AWS image source
type Config struct {
	// Region for EC2 API calls (default us-east-1)
	Region string

	// Profile selects a shared-config profile; empty uses the default chain
	Profile string
}

// ImageSource lists AMIs through the EC2 DescribeImages API. Read-only:
// the only permission it needs is ec2:DescribeImages.
type ImageSource struct {
	client *ec2.Client
	region string
}

// describeImagesAPI is the slice of the EC2 client the source uses
type describeImagesAPI interface {
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
}

// NewImageSource builds the source from the ambient AWS credential chain
func NewImageSource(ctx context.Context, cfg Config) (*ImageSource, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &ImageSource{client: ec2.NewFromConfig(awsCfg), region: region}, nil
}

// Provider returns the provider identifier
func (s *ImageSource) Provider() types.Provider {
	return types.AWS
}

// ListImages queries DescribeImages with name and owner filters. The glob
// pattern maps directly onto the EC2 name filter, which uses the same '*'
// wildcard semantics.
func (s *ImageSource) ListImages(ctx context.Context, q discovery.ImageQuery) ([]discovery.Image, error) {
	return listImages(ctx, s.client, q)
}

func listImages(ctx context.Context, client describeImagesAPI, q discovery.ImageQuery) ([]discovery.Image, error) {
	input := &ec2.DescribeImagesInput{}
	if q.Owner != "" {
		input.Owners = []string{q.Owner}
	}
	if q.Pattern != "" {
		input.Filters = append(input.Filters, ec2types.Filter{
			Name:   awssdk.String("name"),
			Values: []string{q.Pattern},
		})
	}
	input.Filters = append(input.Filters, ec2types.Filter{
		Name:   awssdk.String("state"),
		Values: []string{"available"},
	})

	out, err := client.DescribeImages(ctx, input)
	if err != nil {
		return nil, err
	}

	images := make([]discovery.Image, 0, len(out.Images))
	for _, img := range out.Images {
		entry := discovery.Image{
			ID:     awssdk.ToString(img.ImageId),
			Name:   awssdk.ToString(img.Name),
			Owner:  awssdk.ToString(img.OwnerId),
			Public: awssdk.ToBool(img.Public),
		}
		if created := awssdk.ToString(img.CreationDate); created != "" {
			if ts, perr := time.Parse(time.RFC3339, created); perr == nil {
				entry.CreatedAt = ts
			}
		}
		images = append(images, entry)
	}
	return images, nil
}
