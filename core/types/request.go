package types

import (
	"fmt"
)

// RequestKind classifies an abstract instance request
type RequestKind int

const (
	// KindSize is a symbolic size lookup ("medium")
	KindSize RequestKind = iota

	// KindExplicit is an explicit cores/memory request
	KindExplicit

	// KindGPU is a GPU type/count request
	KindGPU
)

// String returns the kind name
func (k RequestKind) String() string {
	switch k {
	case KindSize:
		return "size"
	case KindExplicit:
		return "explicit"
	case KindGPU:
		return "gpu"
	default:
		return "unknown"
	}
}

// InstanceRequest is one abstract, provider-agnostic compute request.
// Exactly one of (Size), (Cores+MemoryMB), (GPUType+GPUCount) selects the
// machine shape; Image and Version annotate the resulting candidates.
type InstanceRequest struct {
	// Name labels the request in results and logs
	Name string `yaml:"name" json:"name"`

	// Size is a symbolic size, e.g. "medium"
	Size string `yaml:"size,omitempty" json:"size,omitempty"`

	// Cores is an explicit vCPU requirement
	Cores int `yaml:"cores,omitempty" json:"cores,omitempty"`

	// MemoryMB is an explicit memory requirement in megabytes
	MemoryMB int `yaml:"memory_mb,omitempty" json:"memory_mb,omitempty"`

	// GPUType requests an exact accelerator model
	GPUType string `yaml:"gpu_type,omitempty" json:"gpu_type,omitempty"`

	// GPUCount is the minimum number of GPUs (default 1 when GPUType set)
	GPUCount int `yaml:"gpu_count,omitempty" json:"gpu_count,omitempty"`

	// Image is a symbolic image alias, e.g. "RHEL9-latest"
	Image string `yaml:"image,omitempty" json:"image,omitempty"`

	// Platform identifies the managed platform for version validation,
	// e.g. "openshift". Empty means no version resolution.
	Platform string `yaml:"platform,omitempty" json:"platform,omitempty"`

	// Version is a concrete platform version or "latest"/"stable"
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Providers restricts resolution to the named providers. A meta
	// provider ("cheapest") expands to all concrete providers. Empty
	// means all providers.
	Providers []string `yaml:"providers,omitempty" json:"providers,omitempty"`

	// Exclude removes providers from consideration before resolution
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// Regions overrides the per-provider deployment region
	Regions map[string]string `yaml:"regions,omitempty" json:"regions,omitempty"`
}

// Kind classifies the request. GPU wins over explicit, explicit over size,
// matching the precedence Validate enforces.
func (r *InstanceRequest) Kind() RequestKind {
	switch {
	case r.GPUType != "":
		return KindGPU
	case r.Cores > 0 || r.MemoryMB > 0:
		return KindExplicit
	default:
		return KindSize
	}
}

// Validate checks structural consistency of the request
func (r *InstanceRequest) Validate() error {
	shapes := 0
	if r.Size != "" {
		shapes++
	}
	if r.Cores > 0 || r.MemoryMB > 0 {
		if r.Cores <= 0 || r.MemoryMB <= 0 {
			return fmt.Errorf("request %q: explicit shape needs both cores and memory_mb", r.Name)
		}
		shapes++
	}
	if r.GPUType != "" {
		shapes++
	}
	if shapes == 0 {
		return fmt.Errorf("request %q: one of size, cores/memory_mb, or gpu_type is required", r.Name)
	}
	if shapes > 1 {
		return fmt.Errorf("request %q: size, cores/memory_mb, and gpu_type are mutually exclusive", r.Name)
	}
	if r.GPUCount < 0 {
		return fmt.Errorf("request %q: gpu_count must not be negative", r.Name)
	}
	if r.Version != "" && r.Platform == "" {
		return fmt.Errorf("request %q: version requires a platform", r.Name)
	}
	for _, s := range append(append([]string{}, r.Providers...), r.Exclude...) {
		if _, err := ParseProvider(s); err != nil {
			return fmt.Errorf("request %q: %v", r.Name, err)
		}
	}
	return nil
}

// EffectiveGPUCount returns the requested GPU count, defaulting to 1
func (r *InstanceRequest) EffectiveGPUCount() int {
	if r.GPUCount <= 0 {
		return 1
	}
	return r.GPUCount
}

// WantsOptimization reports whether the request names a meta-provider and
// therefore asks for automatic lowest-cost selection.
func (r *InstanceRequest) WantsOptimization() bool {
	for _, s := range r.Providers {
		if p, err := ParseProvider(s); err == nil && p.Meta() {
			return true
		}
	}
	return false
}

// RequestDocument is a decoded request file. Schema validation of the
// document happens upstream; this type only carries the decoded shape.
type RequestDocument struct {
	// Instances are the abstract requests to resolve
	Instances []InstanceRequest `yaml:"instances" json:"instances"`
}

// Validate checks every instance request
func (d *RequestDocument) Validate() error {
	if len(d.Instances) == 0 {
		return fmt.Errorf("request document has no instances")
	}
	seen := map[string]bool{}
	for i := range d.Instances {
		r := &d.Instances[i]
		if r.Name == "" {
			return fmt.Errorf("instance %d: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate instance name: %q", r.Name)
		}
		seen[r.Name] = true
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
