package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rut31337/cloudforge/core/determinism"
	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/internal/errors"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// fileDoc is the decoded shape of one catalog file. One file per provider;
// the synthetic "cheapest" file carries the cost policy instead of tables.
type fileDoc struct {
	Provider string                  `yaml:"provider"`
	Flavors  map[string][]machineDoc `yaml:"flavors"`
	Images   map[string]imageDoc     `yaml:"images"`
	Policy   *policyDoc              `yaml:"policy"`
}

type machineDoc struct {
	MachineType string   `yaml:"machine_type"`
	VCPUs       int      `yaml:"vcpus"`
	MemoryMB    int      `yaml:"memory_mb"`
	GPU         *gpuDoc  `yaml:"gpu"`
	HourlyCost  string   `yaml:"hourly_cost"`
	Region      string   `yaml:"region"`
	Tags        []string `yaml:"tags"`
}

type gpuDoc struct {
	Type     string `yaml:"type"`
	Count    int    `yaml:"count"`
	MemoryGB int    `yaml:"memory_gb"`
}

type imageDoc struct {
	Literal    string `yaml:"literal"`
	Pattern    string `yaml:"pattern"`
	Owner      string `yaml:"owner"`
	Visibility string `yaml:"visibility"`
	Dynamic    bool   `yaml:"dynamic"`
}

type policyDoc struct {
	Exclusions      []string          `yaml:"exclusions"`
	Priority        []string          `yaml:"priority"`
	RegionFactors   map[string]string `yaml:"region_factors"`
	ProviderFactors map[string]string `yaml:"provider_factors"`
	TieEpsilon      string            `yaml:"tie_epsilon"`
}

// Load reads every catalog file in dir. A malformed file is fatal: the
// store is never partially loaded.
func Load(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.MalformedCatalog(dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	return loadFiles(os.DirFS(dir), names, dir)
}

// LoadDefaults builds the store from the embedded default catalogs
func LoadDefaults() (*Store, error) {
	entries, err := fs.ReadDir(defaultsFS, "defaults")
	if err != nil {
		return nil, errors.Internal("embedded catalogs unreadable", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, "defaults/"+e.Name())
	}
	return loadFiles(defaultsFS, names, "embedded")
}

func loadFiles(fsys fs.FS, names []string, origin string) (*Store, error) {
	if len(names) == 0 {
		return nil, errors.MalformedCatalog(origin, fmt.Errorf("no catalog files found"))
	}
	sort.Strings(names)

	store := NewStore()
	var hashInput bytes.Buffer
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.MalformedCatalog(name, err)
		}
		hashInput.WriteString(filepath.Base(name))
		hashInput.WriteByte(0)
		hashInput.Write(data)

		doc, err := decodeFile(data)
		if err != nil {
			return nil, errors.MalformedCatalog(name, err)
		}
		if err := store.merge(name, doc); err != nil {
			return nil, err
		}
	}
	store.fingerprint = determinism.ComputeHash(hashInput.Bytes())
	return store, nil
}

func decodeFile(data []byte) (*fileDoc, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) merge(name string, doc *fileDoc) error {
	prov, err := types.ParseProvider(doc.Provider)
	if err != nil {
		return errors.MalformedCatalog(name, err)
	}

	if prov.Meta() {
		if len(doc.Flavors) > 0 || len(doc.Images) > 0 {
			return errors.MalformedCatalog(name, fmt.Errorf("meta-provider file must only carry policy"))
		}
		if doc.Policy == nil {
			return errors.MalformedCatalog(name, fmt.Errorf("meta-provider file missing policy"))
		}
		policy, err := buildPolicy(doc.Policy)
		if err != nil {
			return errors.MalformedCatalog(name, err)
		}
		s.policy = policy
		return nil
	}

	if doc.Policy != nil {
		return errors.MalformedCatalog(name, fmt.Errorf("policy belongs in the cheapest file, not %s", prov))
	}
	s.addProvider(prov)

	// Iterate sizes in sorted order so duplicate detection and store
	// contents do not depend on map order.
	sizes := make([]string, 0, len(doc.Flavors))
	for size := range doc.Flavors {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	for _, size := range sizes {
		for i, m := range doc.Flavors[size] {
			d, err := buildDescriptor(prov, m)
			if err != nil {
				return errors.MalformedCatalog(name, fmt.Errorf("flavor %q entry %d: %w", size, i, err))
			}
			s.addFlavor(size).Add(d)
		}
	}

	aliases := make([]string, 0, len(doc.Images))
	for alias := range doc.Images {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		rule, err := buildRule(prov, doc.Images[alias])
		if err != nil {
			return errors.MalformedCatalog(name, fmt.Errorf("image %q: %w", alias, err))
		}
		entry := s.addAlias(alias)
		if entry.Restricted() && rule.Visibility == VisibilityAny {
			rule.Visibility = VisibilityPrivate
		}
		entry.SetRule(rule)
	}
	return nil
}

func buildDescriptor(prov types.Provider, m machineDoc) (types.MachineDescriptor, error) {
	var d types.MachineDescriptor
	if m.MachineType == "" {
		return d, fmt.Errorf("machine_type is required")
	}
	if m.VCPUs <= 0 || m.MemoryMB <= 0 {
		return d, fmt.Errorf("%s: vcpus and memory_mb must be positive", m.MachineType)
	}
	cost, err := decimal.NewFromString(m.HourlyCost)
	if err != nil {
		return d, fmt.Errorf("%s: bad hourly_cost %q: %w", m.MachineType, m.HourlyCost, err)
	}
	if cost.IsNegative() {
		return d, fmt.Errorf("%s: hourly_cost must not be negative", m.MachineType)
	}
	d = types.MachineDescriptor{
		Provider:    prov,
		MachineType: m.MachineType,
		VCPUs:       m.VCPUs,
		MemoryMB:    m.MemoryMB,
		HourlyCost:  cost,
		Region:      m.Region,
		Tags:        m.Tags,
	}
	if m.GPU != nil {
		if m.GPU.Type == "" || m.GPU.Count <= 0 {
			return d, fmt.Errorf("%s: gpu needs type and positive count", m.MachineType)
		}
		d.GPU = &types.GPUSpec{Type: m.GPU.Type, Count: m.GPU.Count, MemoryGB: m.GPU.MemoryGB}
	}
	return d, nil
}

func buildRule(prov types.Provider, doc imageDoc) (*ImageRule, error) {
	if doc.Literal != "" && doc.Pattern != "" {
		return nil, fmt.Errorf("literal and pattern are mutually exclusive")
	}
	if doc.Literal == "" && doc.Pattern == "" && !doc.Dynamic {
		return nil, fmt.Errorf("rule needs a literal, a pattern, or dynamic: true")
	}
	switch Visibility(doc.Visibility) {
	case VisibilityAny, VisibilityPublic, VisibilityPrivate:
	default:
		return nil, fmt.Errorf("unknown visibility %q", doc.Visibility)
	}
	return &ImageRule{
		Provider:   prov,
		Literal:    doc.Literal,
		Pattern:    doc.Pattern,
		Owner:      doc.Owner,
		Visibility: Visibility(doc.Visibility),
		Dynamic:    doc.Dynamic,
	}, nil
}

func buildPolicy(doc *policyDoc) (*CostPolicy, error) {
	policy := DefaultCostPolicy()
	for _, s := range doc.Exclusions {
		p, err := types.ParseProvider(s)
		if err != nil {
			return nil, err
		}
		policy.Exclusions = append(policy.Exclusions, p)
	}
	for _, s := range doc.Priority {
		p, err := types.ParseProvider(s)
		if err != nil {
			return nil, err
		}
		policy.Priority = append(policy.Priority, p)
	}
	for region, raw := range doc.RegionFactors {
		f, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("region factor %s: %w", region, err)
		}
		policy.RegionFactors[region] = f
	}
	for provRaw, raw := range doc.ProviderFactors {
		p, err := types.ParseProvider(provRaw)
		if err != nil {
			return nil, err
		}
		f, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("provider factor %s: %w", p, err)
		}
		policy.ProviderFactors[p] = f
	}
	if doc.TieEpsilon != "" {
		eps, err := decimal.NewFromString(doc.TieEpsilon)
		if err != nil {
			return nil, fmt.Errorf("tie_epsilon: %w", err)
		}
		policy.TieEpsilon = eps
	}
	return policy, nil
}
