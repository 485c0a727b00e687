// README: Named pickup and destination points on campus.
package campus

import (
	"sort"

	"campusride/internal/types"
)

type Location struct {
	Name     string      `json:"name"`
	Position types.Point `json:"position"`
}

var defaultLocations = []Location{
	{Name: "Main Gate", Position: types.Point{Lat: 39.865194, Lng: 32.748215}},
	{Name: "Library", Position: types.Point{Lat: 39.870312, Lng: 32.749781}},
	{Name: "Engineering Building", Position: types.Point{Lat: 39.872044, Lng: 32.750612}},
	{Name: "Faculty of Science", Position: types.Point{Lat: 39.868427, Lng: 32.749104}},
	{Name: "Sports Center", Position: types.Point{Lat: 39.866893, Lng: 32.748639}},
	{Name: "East Campus Dorms", Position: types.Point{Lat: 39.868251, Lng: 32.762466}},
	{Name: "Bilkent Station", Position: types.Point{Lat: 39.878310, Lng: 32.740927}},
	{Name: "Cafe Nero", Position: types.Point{Lat: 39.869905, Lng: 32.750223}},
}

// Catalog is an immutable set of named locations.
type Catalog struct {
	byName map[string]Location
}

func NewCatalog(locations []Location) *Catalog {
	c := &Catalog{byName: make(map[string]Location, len(locations))}
	for _, l := range locations {
		c.byName[l.Name] = l
	}
	return c
}

// Default returns the built-in campus catalog.
func Default() *Catalog {
	return NewCatalog(defaultLocations)
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *Catalog) Lookup(name string) (Location, bool) {
	l, ok := c.byName[name]
	return l, ok
}

// All lists locations sorted by name.
func (c *Catalog) All() []Location {
	out := make([]Location, 0, len(c.byName))
	for _, l := range c.byName {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
