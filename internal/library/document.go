package library

// Document is a regular bibliographic item: an article, book, report and
// so on. Attachments and notes hang off it as children.
type Document struct {
	object
}

func newDocument(lib *Library, key string) *Document {
	d := &Document{object: object{
		lib:         lib,
		kind:        KindDocument,
		key:         key,
		version:     -1,
		data:        map[string]any{},
		changedFrom: map[string]any{},
		children:    map[string]struct{}{},
	}}
	d.self = d
	return d
}

// Title returns the document title, or "" when unset.
func (d *Document) Title() string {
	return d.stringField("title")
}

// ItemType returns the document's item type.
func (d *Document) ItemType() string {
	return d.stringField("itemType")
}

// Date returns the raw date field.
func (d *Document) Date() string {
	return d.stringField("date")
}

// Creators returns the creator list in order.
func (d *Document) Creators() []Creator {
	cs, _ := d.data["creators"].([]Creator)
	out := make([]Creator, len(cs))
	copy(out, cs)
	return out
}

// SetCreators replaces the creator list.
func (d *Document) SetCreators(cs []Creator) error {
	return d.Set("creators", append([]Creator(nil), cs...))
}

// Tags returns the document's tags.
func (d *Document) Tags() []string {
	return toStringSlice(d.data["tags"])
}

// AddTag attaches a tag if not already present.
func (d *Document) AddTag(tag string) error {
	return d.Set("tags", addString(d.Tags(), tag))
}

// RemoveTag detaches a tag.
func (d *Document) RemoveTag(tag string) error {
	return d.Set("tags", removeString(d.Tags(), tag))
}

// Collections returns the keys of the collections containing the document.
func (d *Document) Collections() []string {
	return toStringSlice(d.data["collections"])
}

// AddToCollection puts the document into the collection with the given key.
func (d *Document) AddToCollection(key string) error {
	return d.Set("collections", addString(d.Collections(), key))
}

// RemoveFromCollection takes the document out of a collection.
func (d *Document) RemoveFromCollection(key string) error {
	return d.Set("collections", removeString(d.Collections(), key))
}

// Relations returns the relation multimap, predicate to object URIs.
func (d *Document) Relations() map[string][]string {
	return decodeRelations(d.data["relations"])
}

// Children returns the attachments registered under this document.
func (d *Document) Children() []*Attachment {
	out := make([]*Attachment, 0, len(d.children))
	for k := range d.children {
		if a, ok := d.lib.attachments[k]; ok {
			out = append(out, a)
		}
	}
	return out
}
