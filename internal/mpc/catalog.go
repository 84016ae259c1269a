// Package mpc loads and serves the Master Pincode Catalog: the read-only
// mapping from postal code to zone, city and state that every other
// component treats as ground truth.
package mpc

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pinggolf/freight-quote-core/internal/quoteerr"
)

// Entry is one row of the catalog.
type Entry struct {
	Pincode int    `json:"pincode"`
	Zone    string `json:"zone"`
	City    string `json:"city"`
	State   string `json:"state"`
}

// Catalog is an immutable snapshot of the Master Pincode Catalog. A
// process loads one at startup; a reload calls Load again to produce a new
// instance rather than mutating this one, so readers holding a *Catalog
// never see a torn update.
type Catalog struct {
	byPincode map[int]Entry
	byZone    map[string][]int // sorted ascending
	zones     []string         // sorted ascending
}

// Load reads a JSON array of {pincode, zone, city, state} entries from
// path and builds an immutable Catalog. Zones are uppercased on load.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read mpc file: %v", quoteerr.ErrCatalog, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse mpc file: %v", quoteerr.ErrCatalog, err)
	}

	return build(entries)
}

func build(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		byPincode: make(map[int]Entry, len(entries)),
		byZone:    make(map[string][]int),
	}

	for _, e := range entries {
		e.Zone = strings.ToUpper(strings.TrimSpace(e.Zone))
		if _, exists := c.byPincode[e.Pincode]; exists {
			return nil, fmt.Errorf("%w: duplicate pincode %d in mpc", quoteerr.ErrCatalog, e.Pincode)
		}
		c.byPincode[e.Pincode] = e
		c.byZone[e.Zone] = append(c.byZone[e.Zone], e.Pincode)
	}

	for zone, pincodes := range c.byZone {
		sort.Ints(pincodes)
		c.byZone[zone] = pincodes
		c.zones = append(c.zones, zone)
	}
	sort.Strings(c.zones)

	return c, nil
}

// ZoneOf returns the zone for a pincode and whether it was found.
func (c *Catalog) ZoneOf(pincode int) (string, bool) {
	e, ok := c.byPincode[pincode]
	if !ok {
		return "", false
	}
	return e.Zone, true
}

// Lookup returns the full entry for a pincode.
func (c *Catalog) Lookup(pincode int) (Entry, bool) {
	e, ok := c.byPincode[pincode]
	return e, ok
}

// Contains reports whether pincode is present in the catalog.
func (c *Catalog) Contains(pincode int) bool {
	_, ok := c.byPincode[pincode]
	return ok
}

// PincodesOfZone returns the sorted, ascending set of pincodes belonging
// to zone. The returned slice must not be mutated by callers.
func (c *Catalog) PincodesOfZone(zone string) []int {
	return c.byZone[strings.ToUpper(strings.TrimSpace(zone))]
}

// Size returns the total number of pincodes in the catalog.
func (c *Catalog) Size() int {
	return len(c.byPincode)
}

// Zones returns the sorted, distinct set of zone codes in the catalog.
func (c *Catalog) Zones() []string {
	out := make([]string, len(c.zones))
	copy(out, c.zones)
	return out
}
