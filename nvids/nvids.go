// Package nvids holds the catalogs that map symbolic NV item names, as they
// appear in NVRAM backups, to item ids.
package nvids

import "sort"

// Item is a named NV item id.
type Item struct {
	Name string
	ID   uint16
}

// Catalog maps NV item names to ids and back.
type Catalog struct {
	namespace string
	items     []Item
	byName    map[string]uint16
	byID      map[uint16]string
}

// NewCatalog builds a catalog from items. Names and ids must be unique.
func NewCatalog(namespace string, items []Item) *Catalog {
	c := &Catalog{
		namespace: namespace,
		items:     append([]Item(nil), items...),
		byName:    make(map[string]uint16, len(items)),
		byID:      make(map[uint16]string, len(items)),
	}
	for _, it := range items {
		if _, dup := c.byName[it.Name]; dup {
			panic("nvids: duplicate name " + it.Name)
		}
		c.byName[it.Name] = it.ID
		c.byID[it.ID] = it.Name
	}
	sort.Slice(c.items, func(i, j int) bool { return c.items[i].ID < c.items[j].ID })
	return c
}

// Namespace returns the backup document key of the catalog.
func (c *Catalog) Namespace() string {
	return c.namespace
}

// Lookup returns the id of a named item.
func (c *Catalog) Lookup(name string) (uint16, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// Name returns the name of an item id.
func (c *Catalog) Name(id uint16) (string, bool) {
	name, ok := c.byID[id]
	return name, ok
}

// Items returns all items ordered by id.
func (c *Catalog) Items() []Item {
	return append([]Item(nil), c.items...)
}

// Len returns the number of items in the catalog.
func (c *Catalog) Len() int {
	return len(c.items)
}
