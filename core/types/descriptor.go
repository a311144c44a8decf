package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// GPUSpec describes a GPU attachment on a machine type
type GPUSpec struct {
	// Type is the accelerator model, e.g. "NVIDIA T4"
	Type string `json:"type"`

	// Count is the number of attached GPUs
	Count int `json:"count"`

	// MemoryGB is per-GPU memory
	MemoryGB int `json:"memory_gb,omitempty"`
}

// MachineDescriptor is one concrete provider machine type. Descriptors are
// value objects; the catalog hands out copies and nothing mutates them.
type MachineDescriptor struct {
	// Provider owns this machine type
	Provider Provider `json:"provider"`

	// MachineType is the provider-native identifier, e.g. "t3.medium"
	MachineType string `json:"machine_type"`

	// VCPUs is the vCPU count
	VCPUs int `json:"vcpus"`

	// MemoryMB is memory capacity in megabytes
	MemoryMB int `json:"memory_mb"`

	// GPU is the optional accelerator attachment
	GPU *GPUSpec `json:"gpu,omitempty"`

	// HourlyCost is the base on-demand estimate, before cost factors
	HourlyCost decimal.Decimal `json:"hourly_cost"`

	// Region is the default deployment region for the estimate
	Region string `json:"region,omitempty"`

	// Tags carries cost-factor tags, e.g. "burstable", "on-prem-amortized"
	Tags []string `json:"tags,omitempty"`
}

// HasGPU reports whether the machine type carries at least one GPU
func (d *MachineDescriptor) HasGPU() bool {
	return d.GPU != nil && d.GPU.Count > 0
}

// Fits reports whether the descriptor satisfies an explicit cores/memory
// request on both dimensions. A smaller machine never fits.
func (d *MachineDescriptor) Fits(cores, memoryMB int) bool {
	return d.VCPUs >= cores && d.MemoryMB >= memoryMB
}

// MatchesGPU reports whether the descriptor's GPU matches the requested
// type exactly (after vendor-punctuation folding) with count >= requested.
// No substitution: a V100 never satisfies a T4 request.
func (d *MachineDescriptor) MatchesGPU(gpuType string, count int) bool {
	if !d.HasGPU() {
		return false
	}
	if d.GPU.Count < count {
		return false
	}
	return NormalizeGPUType(d.GPU.Type) == NormalizeGPUType(gpuType)
}

// NormalizeGPUType folds case and the punctuation variance seen in vendor
// names, so "NVIDIA-T4", "nvidia t4" and "Nvidia_T4" compare equal.
func NormalizeGPUType(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '-', '_', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
