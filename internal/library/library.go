package library

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/dmitrijs2005/zotsync/internal/logging"
	"github.com/dmitrijs2005/zotsync/internal/remote"
)

// keyAlphabet matches the server's object key alphabet: digits and
// capitals without the ambiguous 0, 1, I and O.
const keyAlphabet = "23456789ABCDEFGHIJKLMNPQRSTUVWXYZ"

const keyLength = 8

// Library is the local mirror of one remote library: every entity keyed
// by its object key, the derived registries over them, and the sync
// watermark.
type Library struct {
	server remote.Server
	log    logging.Logger

	objects     map[string]Entity
	documents   map[string]*Document
	attachments map[string]*Attachment
	collections map[string]*Collection

	byMD5 map[string]*Attachment
	tags  map[string]map[string]struct{}

	dirty   map[string]struct{}
	fresh   map[string]struct{}
	deleted map[string]Entity

	// version is the watermark of the last completed pull, -1 before the
	// first one. nextVersion holds the target while a pull is in flight.
	version     int64
	nextVersion int64

	itemQueue map[string]struct{}
	collQueue map[string]struct{}

	itemTypes    []string
	itemFields   map[string][]string
	creatorTypes map[string][]string
}

// New returns an empty library bound to a server. A nil logger is
// replaced with a no-op one.
func New(server remote.Server, log logging.Logger) *Library {
	if log == nil {
		log = logging.Nop()
	}
	return &Library{
		server:       server,
		log:          log,
		objects:      map[string]Entity{},
		documents:    map[string]*Document{},
		attachments:  map[string]*Attachment{},
		collections:  map[string]*Collection{},
		byMD5:        map[string]*Attachment{},
		tags:         map[string]map[string]struct{}{},
		dirty:        map[string]struct{}{},
		fresh:        map[string]struct{}{},
		deleted:      map[string]Entity{},
		version:      -1,
		nextVersion:  -1,
		itemQueue:    map[string]struct{}{},
		collQueue:    map[string]struct{}{},
		itemTypes:    builtinItemTypes,
		itemFields:   builtinItemFields,
		creatorTypes: builtinCreatorTypes,
	}
}

// Version returns the watermark of the last completed pull, -1 when the
// library has never synced.
func (l *Library) Version() int64 { return l.version }

// Document looks up a document by key.
func (l *Library) Document(key string) *Document { return l.documents[key] }

// Attachment looks up an attachment by key.
func (l *Library) Attachment(key string) *Attachment { return l.attachments[key] }

// Collection looks up a collection by key.
func (l *Library) Collection(key string) *Collection { return l.collections[key] }

// Object looks up any live entity by key.
func (l *Library) Object(key string) Entity { return l.objects[key] }

// Documents returns every live document, in key order.
func (l *Library) Documents() []*Document {
	out := make([]*Document, 0, len(l.documents))
	for _, d := range l.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Attachments returns every live attachment, in key order.
func (l *Library) Attachments() []*Attachment {
	out := make([]*Attachment, 0, len(l.attachments))
	for _, a := range l.attachments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Collections returns every live collection, in key order.
func (l *Library) Collections() []*Collection {
	out := make([]*Collection, 0, len(l.collections))
	for _, c := range l.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// AttachmentByMD5 looks up an attachment by its content digest.
func (l *Library) AttachmentByMD5(digest string) *Attachment {
	return l.byMD5[digest]
}

// Tags returns every tag in use, sorted.
func (l *Library) Tags() []string {
	out := make([]string, 0, len(l.tags))
	for t := range l.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ItemsWithTag returns the items carrying a tag, in key order.
func (l *Library) ItemsWithTag(tag string) []Entity {
	keys := l.tags[tag]
	out := make([]Entity, 0, len(keys))
	for k := range keys {
		if e, ok := l.objects[k]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// DirtyCount returns how many live objects carry unpushed edits.
func (l *Library) DirtyCount() int { return len(l.dirty) }

// FreshCount returns how many objects were created locally and never
// pushed.
func (l *Library) FreshCount() int { return len(l.fresh) }

// DeletedCount returns how many local deletions await a push.
func (l *Library) DeletedCount() int { return len(l.deleted) }

// newKey draws an unused 8-character object key.
func (l *Library) newKey() string {
	for {
		b := make([]byte, keyLength)
		for i := range b {
			b[i] = keyAlphabet[rand.IntN(len(keyAlphabet))]
		}
		key := string(b)
		if _, taken := l.objects[key]; taken {
			continue
		}
		if _, taken := l.deleted[key]; taken {
			continue
		}
		return key
	}
}

// CreateDocument makes a fresh local document of the given item type.
func (l *Library) CreateDocument(itemType string) (*Document, error) {
	if itemType == "attachment" || !l.knownItemType(itemType) {
		return nil, &InvalidPropertyError{Field: "itemType", Msg: fmt.Sprintf("%q is not a document type", itemType)}
	}
	d := newDocument(l, l.newKey())
	d.data["itemType"] = itemType
	l.adopt(d)
	return d, nil
}

// CreateAttachment makes a fresh local attachment. parentKey may be ""
// for a standalone attachment.
func (l *Library) CreateAttachment(linkMode, parentKey string) (*Attachment, error) {
	switch linkMode {
	case LinkModeLinkedFile, LinkModeImportedFile, LinkModeImportedURL, LinkModeLinkedURL:
	default:
		return nil, &InvalidPropertyError{Field: "linkMode", Msg: fmt.Sprintf("unknown link mode %q", linkMode)}
	}
	a := newAttachment(l, l.newKey())
	a.data["linkMode"] = linkMode
	l.adopt(a)
	if parentKey != "" {
		a.register("parentItem", parentKey)
	}
	return a, nil
}

// CreateCollection makes a fresh local collection. parent may be nil.
func (l *Library) CreateCollection(name string, parent *Collection) *Collection {
	c := newCollection(l, l.newKey())
	c.data["name"] = name
	l.adopt(c)
	if parent != nil {
		c.register("parentCollection", parent.key)
	}
	return c
}

// adopt registers a locally created entity as fresh and dirty.
func (l *Library) adopt(e Entity) {
	o := e.core()
	o.fresh = true
	o.dirty = true
	l.index(e)
	l.fresh[o.key] = struct{}{}
	l.dirty[o.key] = struct{}{}
	o.markDirty()
}

// index places an entity into the arena and its kind registry.
func (l *Library) index(e Entity) {
	key := e.Key()
	l.objects[key] = e
	switch t := e.(type) {
	case *Document:
		l.documents[key] = t
	case *Attachment:
		l.attachments[key] = t
	case *Collection:
		l.collections[key] = t
	}
}

// stubCollection returns the collection for key, creating an unsynced
// placeholder when it is not known yet.
func (l *Library) stubCollection(key string) *Collection {
	if c, ok := l.collections[key]; ok {
		return c
	}
	c := newCollection(l, key)
	l.index(c)
	return c
}

// stubDocument returns the document for key, creating an unsynced
// placeholder when it is not known yet.
func (l *Library) stubDocument(key string) *Document {
	if d, ok := l.documents[key]; ok {
		return d
	}
	d := newDocument(l, key)
	l.index(d)
	return d
}

// updateCollectionMembership moves an item between collection member
// registries as its collections field changes.
func (l *Library) updateCollectionMembership(e Entity, oldKeys, newKeys []string) {
	for _, k := range oldKeys {
		if !containsString(newKeys, k) {
			if c, ok := l.collections[k]; ok {
				delete(c.members, e.Key())
			}
		}
	}
	for _, k := range newKeys {
		if !containsString(oldKeys, k) {
			l.stubCollection(k).members[e.Key()] = e
		}
	}
}

// updateTagIndex moves an item between tag registries as its tags field
// changes.
func (l *Library) updateTagIndex(key string, oldTags, newTags []string) {
	for _, t := range oldTags {
		if !containsString(newTags, t) {
			if keys, ok := l.tags[t]; ok {
				delete(keys, key)
				if len(keys) == 0 {
					delete(l.tags, t)
				}
			}
		}
	}
	for _, t := range newTags {
		if !containsString(oldTags, t) {
			keys, ok := l.tags[t]
			if !ok {
				keys = map[string]struct{}{}
				l.tags[t] = keys
			}
			keys[key] = struct{}{}
		}
	}
}

// updateMD5Index keeps the digest registry in step with an attachment's
// md5 field.
func (l *Library) updateMD5Index(a *Attachment, oldDigest, newDigest string) {
	if oldDigest != "" && l.byMD5[oldDigest] == a {
		delete(l.byMD5, oldDigest)
	}
	if newDigest != "" {
		l.byMD5[newDigest] = a
	}
}

// reparent moves an entity between parents' child registries. Unknown
// parents get stubbed so the link resolves once they arrive.
func (l *Library) reparent(e Entity, oldKey, newKey string) {
	if oldKey != "" {
		if p, ok := l.objects[oldKey]; ok {
			delete(p.core().children, e.Key())
		}
	}
	if newKey == "" {
		return
	}
	var parent Entity
	if e.Kind() == KindCollection {
		parent = l.stubCollection(newKey)
	} else {
		parent = l.stubDocument(newKey)
	}
	parent.core().children[e.Key()] = struct{}{}
}

// detachChildren clears the parent link of every child. On the dirty path
// the children become locally edited; on the clean path the change is
// recorded as if the server had sent it.
func (l *Library) detachChildren(e Entity, dirtyPath bool) {
	o := e.core()
	for _, key := range o.ChildKeys() {
		child, ok := l.objects[key]
		if !ok {
			delete(o.children, key)
			continue
		}
		co := child.core()
		if dirtyPath {
			_ = child.Unset(co.parentField())
		} else {
			co.register(co.parentField(), nil)
		}
	}
}

// unlink removes every registry reference the entity's own fields hold.
func (l *Library) unlink(e Entity) {
	o := e.core()
	o.unregister("tags")
	if o.kind != KindCollection {
		o.unregister("collections")
	}
	if o.kind == KindAttachment {
		o.unregister("md5")
	}
	if pf := o.parentField(); pf != "" {
		o.unregister(pf)
	}
	if c, ok := e.(*Collection); ok {
		for _, m := range c.Members() {
			mo := m.core()
			mo.register("collections", removeString(toStringSlice(mo.data["collections"]), c.key))
		}
	}
}

// entomb moves a synced entity into the pending-deletion set.
func (l *Library) entomb(e Entity) {
	key := e.Key()
	l.unlink(e)
	delete(l.objects, key)
	delete(l.documents, key)
	delete(l.attachments, key)
	delete(l.collections, key)
	delete(l.dirty, key)
	delete(l.fresh, key)
	l.deleted[key] = e
}

// discard drops an entity entirely, with no deletion pushed later.
func (l *Library) discard(e Entity) {
	key := e.Key()
	l.unlink(e)
	delete(l.objects, key)
	delete(l.documents, key)
	delete(l.attachments, key)
	delete(l.collections, key)
	delete(l.dirty, key)
	delete(l.fresh, key)
	delete(l.deleted, key)
}

// applyItem folds one item payload into the library, creating the entity
// on first sight.
func (l *Library) applyItem(p remote.Payload) (Entity, error) {
	key := p.Key()
	if key == "" {
		return nil, &InvalidDataError{Payload: p, Msg: "item payload without key"}
	}
	if e, ok := l.objects[key]; ok {
		return e, e.core().refresh(p)
	}
	itemType, _ := p["itemType"].(string)
	var e Entity
	if itemType == "attachment" {
		e = newAttachment(l, key)
	} else {
		e = newDocument(l, key)
	}
	l.index(e)
	return e, e.core().refresh(p)
}

// applyCollection folds one collection payload into the library.
func (l *Library) applyCollection(p remote.Payload) (*Collection, error) {
	key := p.Key()
	if key == "" {
		return nil, &InvalidDataError{Payload: p, Msg: "collection payload without key"}
	}
	c := l.stubCollection(key)
	return c, c.refresh(p)
}
