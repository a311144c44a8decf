// Package types defines the core domain types for resource resolution.
package types

import (
	"fmt"
	"strings"
)

// Provider identifies a cloud provider. The set is closed: adding a
// provider means adding one constant plus catalog entries, never a new
// dispatch path.
type Provider string

const (
	// AWS is Amazon Web Services
	AWS Provider = "aws"

	// Azure is Microsoft Azure
	Azure Provider = "azure"

	// GCP is Google Cloud Platform
	GCP Provider = "gcp"

	// OCI is Oracle Cloud Infrastructure
	OCI Provider = "oci"

	// IBMVPC is IBM Cloud VPC
	IBMVPC Provider = "ibm-vpc"

	// IBMClassic is IBM Cloud Classic Infrastructure
	IBMClassic Provider = "ibm-classic"

	// Alibaba is Alibaba Cloud
	Alibaba Provider = "alibaba"

	// VMware is on-premises VMware vSphere
	VMware Provider = "vmware"

	// Cheapest is the meta-provider that triggers cross-provider
	// cost optimization. It never produces candidates of its own.
	Cheapest Provider = "cheapest"

	// CheapestGPU is the meta-provider variant constrained to
	// GPU-capable machine types.
	CheapestGPU Provider = "cheapest-gpu"
)

// allProviders is the canonical declaration order. Ranking fallbacks and
// candidate collection both follow this order, which is what makes the
// pipeline output independent of task completion order.
var allProviders = []Provider{AWS, Azure, GCP, OCI, IBMVPC, IBMClassic, Alibaba, VMware}

// AllProviders returns every concrete provider in canonical order
func AllProviders() []Provider {
	out := make([]Provider, len(allProviders))
	copy(out, allProviders)
	return out
}

// ParseProvider parses a provider identifier
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case AWS, Azure, GCP, OCI, IBMVPC, IBMClassic, Alibaba, VMware, Cheapest, CheapestGPU:
		return p, nil
	}
	// Accept the underscore spellings used by older request documents.
	switch p {
	case "ibm_vpc":
		return IBMVPC, nil
	case "ibm_classic":
		return IBMClassic, nil
	case "cheapest_gpu":
		return CheapestGPU, nil
	}
	return "", fmt.Errorf("unknown provider: %q", s)
}

// Concrete reports whether the provider names a real cloud rather than a
// meta-provider.
func (p Provider) Concrete() bool {
	return p != Cheapest && p != CheapestGPU
}

// Meta reports whether the provider triggers cross-provider optimization
func (p Provider) Meta() bool {
	return !p.Concrete()
}

// Index returns the provider's position in canonical order, or
// len(AllProviders()) for unknown/meta providers so they sort last.
func (p Provider) Index() int {
	for i, q := range allProviders {
		if p == q {
			return i
		}
	}
	return len(allProviders)
}

// String implements Stringer
func (p Provider) String() string {
	return string(p)
}
