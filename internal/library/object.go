package library

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/zotsync/internal/remote"
)

// Kind discriminates the three entity families in a library.
type Kind int

const (
	KindDocument Kind = iota
	KindAttachment
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindAttachment:
		return "attachment"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Link modes an attachment can carry.
const (
	LinkModeLinkedFile   = "linked_file"
	LinkModeImportedFile = "imported_file"
	LinkModeImportedURL  = "imported_url"
	LinkModeLinkedURL    = "linked_url"
)

const dateModifiedFormat = "2006-01-02T15:04:05Z"

// Entity is any object tracked by a Library.
type Entity interface {
	Key() string
	Kind() Kind
	Version() int64
	Dirty() bool
	DirtyField(field string) bool
	Fresh() bool
	Deleted() bool
	Get(field string) any
	Set(field string, value any) error
	Unset(field string) error
	Delete()
	ModifiedData() remote.Payload

	core() *object
}

// object is the state shared by every entity: the raw field map, the
// pre-first-edit baselines that make minimal diffs possible, and the
// lifecycle flags.
type object struct {
	lib     *Library
	kind    Kind
	key     string
	version int64

	data        map[string]any
	changedFrom map[string]any

	dirty   bool
	fresh   bool
	deleted bool

	children map[string]struct{}

	self Entity
}

func (o *object) core() *object { return o }

func (o *object) Key() string    { return o.key }
func (o *object) Kind() Kind     { return o.kind }
func (o *object) Version() int64 { return o.version }
func (o *object) Dirty() bool    { return o.dirty }
func (o *object) Fresh() bool    { return o.fresh }
func (o *object) Deleted() bool  { return o.deleted }

// Get returns the canonical value of a field, or nil when unset.
func (o *object) Get(field string) any {
	return o.data[field]
}

// DirtyField reports whether a field still carries a pending local edit.
// An edit reverted back to its pre-edit value no longer counts, even
// though the entity as a whole stays dirty until the next push.
func (o *object) DirtyField(field string) bool {
	if !o.dirty {
		return false
	}
	old, ok := o.changedFrom[field]
	if !ok {
		return false
	}
	cur := o.data[field]
	if isEmptyValue(cur) && isEmptyValue(old) {
		return false
	}
	return !valuesEqual(cur, old)
}

func (o *object) stringField(field string) string {
	s, _ := o.data[field].(string)
	return s
}

// parentField names the wire field pointing at the entity's parent, or ""
// when the kind has no parent link.
func (o *object) parentField() string {
	switch o.kind {
	case KindAttachment:
		return "parentItem"
	case KindCollection:
		return "parentCollection"
	default:
		return ""
	}
}

// ParentKey returns the parent's key, or "" when the entity is top level.
func (o *object) ParentKey() string {
	pf := o.parentField()
	if pf == "" {
		return ""
	}
	return o.stringField(pf)
}

// ChildKeys returns the keys of registered children.
func (o *object) ChildKeys() []string {
	keys := make([]string, 0, len(o.children))
	for k := range o.children {
		keys = append(keys, k)
	}
	return keys
}

func (o *object) validateField(field string, value any) error {
	switch field {
	case "key", "version":
		return &InvalidPropertyError{Field: field, Msg: "read-only"}
	case "itemType":
		t, ok := value.(string)
		if !ok {
			return &InvalidPropertyError{Field: field, Msg: "must be a string"}
		}
		switch o.kind {
		case KindDocument:
			if t == "attachment" || !o.lib.knownItemType(t) {
				return &InvalidPropertyError{Field: field, Msg: fmt.Sprintf("%q is not a document type", t)}
			}
		case KindAttachment:
			if t != "attachment" {
				return &InvalidPropertyError{Field: field, Msg: "attachments keep itemType attachment"}
			}
		case KindCollection:
			return &InvalidPropertyError{Field: field, Msg: "collections have no item type"}
		}
	case "linkMode":
		if o.kind != KindAttachment {
			return &InvalidPropertyError{Field: field, Msg: "only attachments carry a link mode"}
		}
		if cur := o.stringField("linkMode"); cur != "" && cur != value {
			return &InvalidPropertyError{Field: field, Msg: "link mode is immutable"}
		}
	}
	return nil
}

// Set applies a local edit: it validates, records the pre-edit baseline
// once, updates registries, and marks the object dirty. Setting nil clears
// the field.
func (o *object) Set(field string, value any) error {
	if value == nil {
		return o.Unset(field)
	}
	if field == "dateModified" {
		return nil
	}
	if err := o.validateField(field, value); err != nil {
		return err
	}
	v := normalizeValue(field, value)
	if valuesEqual(o.data[field], v) {
		return nil
	}
	o.recordBaseline(field)
	o.register(field, v)
	o.markDirty()
	return nil
}

// Unset clears a field as a local edit. Parent links are cleared with a
// false sentinel so the detachment survives the round trip to the server.
func (o *object) Unset(field string) error {
	if field == "key" || field == "version" {
		return &InvalidPropertyError{Field: field, Msg: "read-only"}
	}
	if field == "dateModified" {
		return nil
	}
	if _, ok := o.data[field]; !ok {
		return nil
	}
	o.recordBaseline(field)
	o.unregister(field)
	if field == o.parentField() {
		o.data[field] = false
	} else {
		delete(o.data, field)
	}
	o.markDirty()
	return nil
}

// recordBaseline keeps the first pre-edit value of a field so that later
// pushes can send a minimal diff and refreshes can merge three ways.
func (o *object) recordBaseline(field string) {
	if _, ok := o.changedFrom[field]; ok {
		return
	}
	if old, ok := o.data[field]; ok {
		o.changedFrom[field] = old
	} else {
		o.changedFrom[field] = nil
	}
}

func (o *object) markDirty() {
	if !o.dirty {
		o.dirty = true
		o.lib.dirty[o.key] = struct{}{}
	}
	if o.kind != KindCollection {
		o.data["dateModified"] = time.Now().UTC().Format(dateModifiedFormat)
	}
}

// markClean resets the object after a successful push.
func (o *object) markClean() {
	o.dirty = false
	o.fresh = false
	o.changedFrom = map[string]any{}
	delete(o.lib.dirty, o.key)
	delete(o.lib.fresh, o.key)
}

// register stores a canonical value and keeps the library registries in
// step. It never touches dirty state.
func (o *object) register(field string, value any) {
	if value == nil {
		o.unregister(field)
		delete(o.data, field)
		return
	}
	switch field {
	case "collections":
		if o.kind != KindCollection {
			oldList := toStringSlice(o.data[field])
			newList, _ := value.([]string)
			o.lib.updateCollectionMembership(o.self, oldList, newList)
		}
	case "tags":
		oldList := toStringSlice(o.data[field])
		newList, _ := value.([]string)
		o.lib.updateTagIndex(o.key, oldList, newList)
	case o.parentField():
		if field != "" {
			old := o.stringField(field)
			if s, ok := value.(string); ok && s != old {
				o.lib.reparent(o.self, old, s)
			}
		}
	case "md5":
		if o.kind == KindAttachment {
			old := o.stringField(field)
			if s, ok := value.(string); ok {
				o.lib.updateMD5Index(o.self.(*Attachment), old, s)
			}
		}
	}
	o.data[field] = value
}

// unregister drops the registry links a field holds, ahead of a clear.
func (o *object) unregister(field string) {
	switch field {
	case "collections":
		if o.kind != KindCollection {
			o.lib.updateCollectionMembership(o.self, toStringSlice(o.data[field]), nil)
		}
	case "tags":
		o.lib.updateTagIndex(o.key, toStringSlice(o.data[field]), nil)
	case o.parentField():
		if field != "" {
			if old := o.stringField(field); old != "" {
				o.lib.reparent(o.self, old, "")
			}
		}
	case "md5":
		if o.kind == KindAttachment {
			o.lib.updateMD5Index(o.self.(*Attachment), o.stringField(field), "")
		}
	}
}

// refresh folds a newer server payload into the object, preserving
// unpushed local edits field by field.
func (o *object) refresh(p remote.Payload) error {
	v := p.Version()
	if v <= o.version && o.version >= 0 {
		return &ConsistencyError{Msg: fmt.Sprintf(
			"refresh of %s with version %d not after %d", o.key, v, o.version)}
	}
	o.version = v
	pf := o.parentField()
	seenParent := false
	for field, raw := range p {
		switch field {
		case "key", "version":
			continue
		}
		if field == pf {
			seenParent = true
		}
		o.refreshField(field, normalizeValue(field, raw))
	}
	if pf != "" && !seenParent {
		o.refreshField(pf, nil)
	}
	return nil
}

func (o *object) refreshField(field string, newVal any) {
	switch field {
	case "collections", "tags":
		// Three-way merge: drop what the server dropped, add what it
		// added, keep local edits on top.
		cur := toStringSlice(o.data[field])
		server := toStringSlice(newVal)
		if old, edited := o.changedFrom[field]; edited {
			oldList := toStringSlice(old)
			merged := cur
			for _, e := range oldList {
				if !containsString(server, e) {
					merged = removeString(merged, e)
				}
			}
			for _, e := range server {
				if !containsString(oldList, e) {
					merged = addString(merged, e)
				}
			}
			o.register(field, merged)
			o.changedFrom[field] = server
		} else {
			o.register(field, server)
		}
		return
	case "dateModified":
		s, _ := newVal.(string)
		if cur := o.stringField(field); cur == "" || s > cur {
			o.data[field] = s
		}
		return
	}

	_, edited := o.changedFrom[field]
	if !edited {
		o.register(field, newVal)
		return
	}
	cur := o.data[field]
	if valuesEqual(cur, newVal) || (isEmptyValue(cur) && isEmptyValue(newVal)) {
		// The server caught up with the local edit.
		o.register(field, newVal)
		delete(o.changedFrom, field)
		return
	}
	// Keep the local edit but rebase its baseline on the server value.
	o.changedFrom[field] = newVal
}

// Delete tombstones the object locally so the next push removes it from
// the server. An object that was never pushed is simply discarded.
func (o *object) Delete() {
	if o.deleted {
		return
	}
	o.lib.detachChildren(o.self, true)
	if o.fresh {
		o.lib.discard(o.self)
		return
	}
	o.deleted = true
	o.lib.entomb(o.self)
}

// serverRemove drops the object because the server reported it deleted.
// Children are detached without dirtying them.
func (o *object) serverRemove() {
	o.lib.detachChildren(o.self, false)
	o.deleted = true
	o.lib.discard(o.self)
}

// ModifiedData builds the payload a push sends for this object: the full
// wire form for a fresh object, otherwise key, version and the edited
// fields only.
func (o *object) ModifiedData() remote.Payload {
	if o.fresh {
		p := remote.Payload{"key": o.key, "version": int64(0)}
		for field, v := range o.data {
			p[field] = encodeValue(field, v)
		}
		return p
	}
	p := remote.Payload{"key": o.key, "version": o.version}
	if !o.dirty {
		return p
	}
	for field := range o.changedFrom {
		if v, ok := o.data[field]; ok {
			p[field] = encodeValue(field, v)
		} else {
			p[field] = clearedValue(field)
		}
	}
	return p
}

// clearedValue is the wire form that erases a field server-side.
func clearedValue(field string) any {
	switch field {
	case "collections", "tags", "creators":
		return []any{}
	case "relations":
		return map[string]any{}
	default:
		return ""
	}
}
