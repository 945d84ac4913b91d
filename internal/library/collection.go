package library

import "sort"

// Collection is a named grouping of items, optionally nested under a
// parent collection. Membership lives on the items; the collection keeps
// a derived member registry.
type Collection struct {
	object

	members map[string]Entity
}

func newCollection(lib *Library, key string) *Collection {
	c := &Collection{
		object: object{
			lib:         lib,
			kind:        KindCollection,
			key:         key,
			version:     -1,
			data:        map[string]any{},
			changedFrom: map[string]any{},
			children:    map[string]struct{}{},
		},
		members: map[string]Entity{},
	}
	c.self = c
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.stringField("name")
}

// SetName renames the collection.
func (c *Collection) SetName(name string) error {
	return c.Set("name", name)
}

// Parent returns the parent collection, or nil at top level.
func (c *Collection) Parent() *Collection {
	return c.lib.collections[c.ParentKey()]
}

// Subcollections returns the collections nested directly under this one.
func (c *Collection) Subcollections() []*Collection {
	out := make([]*Collection, 0, len(c.children))
	for k := range c.children {
		if sub, ok := c.lib.collections[k]; ok {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Members returns the items contained in the collection, in key order.
func (c *Collection) Members() []Entity {
	out := make([]Entity, 0, len(c.members))
	for _, e := range c.members {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Size returns the number of contained items.
func (c *Collection) Size() int {
	return len(c.members)
}

// Ancestors returns the chain of parents from the immediate parent up to
// the root.
func (c *Collection) Ancestors() []*Collection {
	var chain []*Collection
	seen := map[string]struct{}{c.key: {}}
	for p := c.Parent(); p != nil; p = p.Parent() {
		if _, dup := seen[p.key]; dup {
			break
		}
		seen[p.key] = struct{}{}
		chain = append(chain, p)
	}
	return chain
}

// Delete ejects every member first so their membership lists stay honest,
// then tombstones the collection itself.
func (c *Collection) Delete() {
	for _, e := range c.Members() {
		switch m := e.(type) {
		case *Document:
			_ = m.RemoveFromCollection(c.key)
		case *Attachment:
			_ = m.Set("collections", removeString(toStringSlice(m.data["collections"]), c.key))
		}
	}
	c.object.Delete()
}
