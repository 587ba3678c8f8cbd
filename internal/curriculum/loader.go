package curriculum

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Catalog is the tier and module listing of the curriculum.
type Catalog struct {
	Tiers   []Tier   `yaml:"tiers" json:"tiers"`
	Modules []Module `yaml:"modules" json:"modules"`
}

// Tier returns the tier with the given level.
func (c Catalog) Tier(level int) (Tier, bool) {
	for _, t := range c.Tiers {
		if t.Level == level {
			return t, true
		}
	}
	return Tier{}, false
}

// Module returns the module with the given canonical slug.
func (c Catalog) Module(slug string) (Module, bool) {
	for _, m := range c.Modules {
		if m.Slug == slug {
			return m, true
		}
	}
	return Module{}, false
}

// LoadCatalog reads a YAML catalog document from fsys.
func LoadCatalog(fsys fs.FS, name string) (Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// LoadCatalogFile reads a YAML catalog document from disk.
func LoadCatalogFile(path string) (Catalog, error) {
	return LoadCatalog(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// ParseCatalog decodes a YAML catalog and applies catalog validation: tiers
// are sorted and deduplicated, invalid modules are dropped.
func ParseCatalog(data []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	cat.Tiers = SortTiers(cat.Tiers)
	for i := range cat.Modules {
		if cat.Modules[i].Status == "" {
			cat.Modules[i].Status = StatusActive
		}
	}
	cat.Modules, _ = ValidateModules(cat.Modules)

	slog.Info("catalog loaded", "tiers", len(cat.Tiers), "modules", len(cat.Modules))
	return cat, nil
}
