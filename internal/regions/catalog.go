// Package regions holds the static catalog mapping region names to bounding
// boxes and center points.
package regions

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/territory-cli/internal/model"
)

// Catalog is an ordered, read-only set of named regions.
type Catalog struct {
	regions map[string]model.Region
	order   []string
}

// New creates a catalog from the given regions, preserving order.
func New(rs ...model.Region) *Catalog {
	c := &Catalog{regions: make(map[string]model.Region)}
	for _, r := range rs {
		c.add(r)
	}
	return c
}

// Builtin returns the catalog with the two reference regions.
func Builtin() *Catalog {
	c := &Catalog{regions: make(map[string]model.Region)}
	c.add(model.Region{
		Name:   "Ontario",
		Bounds: model.BoundingBox{North: 56.0, South: 41.0, East: -74.0, West: -95.0},
		Center: model.LatLng{Lat: 43.6532, Lng: -79.3832}, // Toronto
		Cities: []string{
			"Toronto", "Ottawa", "Hamilton", "London", "Windsor",
			"Kitchener", "Mississauga", "Brampton", "Markham", "Vaughan",
		},
	})
	c.add(model.Region{
		Name:   "Québec",
		Bounds: model.BoundingBox{North: 51.0, South: 45.0, East: -64.0, West: -80.0},
		Center: model.LatLng{Lat: 45.5017, Lng: -73.5673}, // Montréal
		Cities: []string{
			"Montréal", "Québec", "Laval", "Gatineau", "Longueuil",
			"Sherbrooke", "Saguenay", "Lévis", "Trois-Rivières", "Terrebonne",
		},
	})
	return c
}

func (c *Catalog) add(r model.Region) {
	if _, ok := c.regions[r.Name]; !ok {
		c.order = append(c.order, r.Name)
	}
	c.regions[r.Name] = r
}

// Get returns the region by name.
func (c *Catalog) Get(name string) (model.Region, error) {
	r, ok := c.regions[name]
	if !ok {
		return model.Region{}, eris.Errorf("regions: unknown region %q", name)
	}
	return r, nil
}

// Has reports whether the catalog contains the named region.
func (c *Catalog) Has(name string) bool {
	_, ok := c.regions[name]
	return ok
}

// All returns the regions in registration order.
func (c *Catalog) All() []model.Region {
	out := make([]model.Region, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.regions[name])
	}
	return out
}

// Names returns the region names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// regionsFile is the YAML document shape for user-provided regions.
type regionsFile struct {
	Regions []model.Region `yaml:"regions"`
}

// LoadFile merges regions from a YAML file into the catalog. A region with a
// name already present overrides the builtin definition.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "regions: read %s", path)
	}

	var f regionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return eris.Wrapf(err, "regions: parse %s", path)
	}

	for _, r := range f.Regions {
		if r.Name == "" {
			return eris.Errorf("regions: %s contains a region without a name", path)
		}
		if r.Bounds.North <= r.Bounds.South {
			return eris.Errorf("regions: %q has an empty latitude span", r.Name)
		}
		if r.Bounds.East <= r.Bounds.West {
			return eris.Errorf("regions: %q has an empty longitude span", r.Name)
		}
		c.add(r)
	}
	return nil
}
