package library

import (
	"fmt"
	"sort"

	"github.com/dmitrijs2005/zotsync/internal/logging"
	"github.com/dmitrijs2005/zotsync/internal/remote"
)

// ObjectState is the serializable form of one entity. Data and
// ChangedFrom hold wire-encoded values so the state round-trips through
// JSON unchanged.
type ObjectState struct {
	Key         string         `json:"key"`
	Kind        Kind           `json:"kind"`
	Version     int64          `json:"version"`
	Data        map[string]any `json:"data,omitempty"`
	ChangedFrom map[string]any `json:"changed_from,omitempty"`
	Dirty       bool           `json:"dirty,omitempty"`
	Fresh       bool           `json:"fresh,omitempty"`
	Deleted     bool           `json:"deleted,omitempty"`
	LocalMD5    string         `json:"local_md5,omitempty"`
}

// State is a complete serializable snapshot of a library.
type State struct {
	Version      int64               `json:"version"`
	ItemTypes    []string            `json:"item_types,omitempty"`
	ItemFields   map[string][]string `json:"item_fields,omitempty"`
	CreatorTypes map[string][]string `json:"creator_types,omitempty"`
	Objects      []ObjectState       `json:"objects"`
}

func encodeFields(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for field, v := range data {
		out[field] = encodeValue(field, v)
	}
	return out
}

func snapshot(e Entity) ObjectState {
	o := e.core()
	s := ObjectState{
		Key:         o.key,
		Kind:        o.kind,
		Version:     o.version,
		Data:        encodeFields(o.data),
		ChangedFrom: encodeFields(o.changedFrom),
		Dirty:       o.dirty,
		Fresh:       o.fresh,
		Deleted:     o.deleted,
	}
	if a, ok := e.(*Attachment); ok {
		s.LocalMD5 = a.localMD5
	}
	return s
}

// ExportState snapshots the library, live objects first and tombstones
// after, in key order.
func (l *Library) ExportState() *State {
	s := &State{
		Version:      l.version,
		ItemTypes:    l.itemTypes,
		ItemFields:   l.itemFields,
		CreatorTypes: l.creatorTypes,
	}
	for _, key := range sortedMapKeys(l.objects) {
		s.Objects = append(s.Objects, snapshot(l.objects[key]))
	}
	for _, key := range sortedMapKeys(l.deleted) {
		s.Objects = append(s.Objects, snapshot(l.deleted[key]))
	}
	return s
}

func sortedMapKeys(m map[string]Entity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Restore rebuilds a library from a snapshot. Entities are created bare
// first and fields registered second, so cross references resolve to the
// restored objects instead of fresh stubs.
func Restore(s *State, server remote.Server, log logging.Logger) (*Library, error) {
	l := New(server, log)
	l.version = s.Version
	l.nextVersion = s.Version
	if len(s.ItemTypes) > 0 {
		l.itemTypes = s.ItemTypes
		l.itemFields = s.ItemFields
		l.creatorTypes = s.CreatorTypes
	}

	newBare := func(os ObjectState) (Entity, error) {
		var e Entity
		switch os.Kind {
		case KindDocument:
			e = newDocument(l, os.Key)
		case KindAttachment:
			e = newAttachment(l, os.Key)
		case KindCollection:
			e = newCollection(l, os.Key)
		default:
			return nil, &InvalidDataError{Msg: fmt.Sprintf("object %s has unknown kind %d", os.Key, os.Kind)}
		}
		e.core().version = os.Version
		return e, nil
	}

	for _, os := range s.Objects {
		e, err := newBare(os)
		if err != nil {
			return nil, err
		}
		if os.Deleted {
			e.core().deleted = true
			l.deleted[os.Key] = e
			continue
		}
		l.index(e)
	}

	for _, os := range s.Objects {
		if os.Deleted {
			continue
		}
		e := l.objects[os.Key]
		o := e.core()
		for field, raw := range os.Data {
			o.register(field, normalizeValue(field, raw))
		}
		for field, raw := range os.ChangedFrom {
			if raw == nil {
				o.changedFrom[field] = nil
			} else {
				o.changedFrom[field] = normalizeValue(field, raw)
			}
		}
		o.dirty = os.Dirty
		o.fresh = os.Fresh
		if os.Dirty {
			l.dirty[os.Key] = struct{}{}
		}
		if os.Fresh {
			l.fresh[os.Key] = struct{}{}
		}
		if a, ok := e.(*Attachment); ok {
			a.localMD5 = os.LocalMD5
		}
	}
	return l, nil
}
