package canvas

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var defaultCatalog []byte

type catalogFile struct {
	Widgets  map[string]ComponentWire `toml:"widgets"`
	Children map[string]ComponentWire `toml:"children"`
}

// Catalog holds the default shape of every widget the palette can place.
type Catalog struct {
	widgets  map[Kind]ComponentWire
	children map[Kind]ComponentWire
}

// LoadCatalog parses the embedded widget defaults.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes a TOML catalog. Unknown keys are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	meta, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("canvas: decode catalog: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("canvas: unknown catalog keys: %s", strings.Join(keys, ", "))
	}
	catalog := &Catalog{
		widgets:  make(map[Kind]ComponentWire, len(file.Widgets)),
		children: make(map[Kind]ComponentWire, len(file.Children)),
	}
	for name, wire := range file.Widgets {
		catalog.widgets[Kind(name)] = wire
	}
	for name, wire := range file.Children {
		catalog.children[Kind(name)] = wire
	}
	return catalog, nil
}

// Kinds lists the widget kinds the catalog can place.
func (c *Catalog) Kinds() []Kind {
	kinds := make([]Kind, 0, len(c.widgets))
	for kind := range c.widgets {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// New builds a widget of the given kind from its defaults. Nested widgets use the
// child defaults when the catalog declares them.
func (c *Catalog) New(kind Kind, id ComponentID, nested bool) (*Component, error) {
	wire, ok := c.widgets[kind]
	if nested {
		if child, found := c.children[kind]; found {
			wire, ok = child, true
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	wire.ID = id.String()
	wire.Type = string(kind)
	wire.Children = nil
	return ComponentFromWire(wire)
}
