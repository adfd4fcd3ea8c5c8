package rightsizing

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Package rightsizing matches observed utilization against a resource
// catalog and assembles risk-scored, cost-justified downsizing
// recommendations.
//
// Responsibilities:
//   - Compute required capacity from p99 utilization plus headroom
//   - Select the cheapest catalog entry that fits the requirement and is
//     strictly not larger than the current entry on both dimensions
//   - Bucket each match into a risk level with a numeric confidence
//   - Render a complete, human-readable recommendation record
//
// The catalog is injected reference data, never mutated here. Entries order
// monotonically by (vcpu, memory_gb); "not larger" comparisons rely on that
// contract.

// CatalogEntry describes one resource size/type.
type CatalogEntry struct {
	TypeName    string  `json:"type_name" yaml:"type_name"`
	VCPU        float64 `json:"vcpu" yaml:"vcpu"`
	MemoryGB    float64 `json:"memory_gb" yaml:"memory_gb"`
	HourlyPrice float64 `json:"hourly_price" yaml:"hourly_price"`
}

// catalogFile is the on-disk shape of a catalog document.
type catalogFile struct {
	Entries []CatalogEntry `yaml:"catalog"`
}

// LoadCatalog reads a catalog YAML file and returns its entries sorted by
// (vcpu, memory_gb) ascending.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("catalog %s contains no entries", path)
	}

	for _, entry := range doc.Entries {
		if entry.TypeName == "" || entry.VCPU <= 0 || entry.MemoryGB <= 0 || entry.HourlyPrice <= 0 {
			return nil, fmt.Errorf("catalog entry %q has non-positive capacity or price", entry.TypeName)
		}
	}

	SortCatalog(doc.Entries)
	return doc.Entries, nil
}

// SortCatalog orders entries by (vcpu, memory_gb) ascending, the documented
// comparison contract.
func SortCatalog(entries []CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].VCPU != entries[j].VCPU {
			return entries[i].VCPU < entries[j].VCPU
		}
		return entries[i].MemoryGB < entries[j].MemoryGB
	})
}

// FindEntry looks up an entry by type name.
func FindEntry(entries []CatalogEntry, typeName string) (CatalogEntry, bool) {
	for _, entry := range entries {
		if entry.TypeName == typeName {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}
