// Package remote defines the capability the sync engine needs from the
// remote bibliography store, together with the wire types it exchanges.
// The store speaks a versioned REST/JSON protocol: every read and write
// reports the library's current version in a Last-Modified-Version header,
// writes carry an If-Unmodified-Since-Version precondition, and multi-object
// requests are limited to 50 keys per call.
package remote

import (
	"context"
	"errors"
)

// BatchLimit is the server-imposed maximum number of keys or payloads per
// multi-object request.
const BatchLimit = 50

// Sentinel errors reported by Server implementations. Callers match them
// with errors.Is.
var (
	// ErrPreconditionFailed means the If-Unmodified-Since-Version check
	// failed: the library changed upstream since our last pull.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrNotFound means the requested object does not exist upstream.
	ErrNotFound = errors.New("not found")
)

// Payload is the property map of a single object as it appears on the wire:
// the "data" member of a server response, or the body of a create/update
// request. Keys and versions travel inside the map.
type Payload map[string]any

// Key returns the object key carried by the payload, or "".
func (p Payload) Key() string {
	if k, ok := p["key"].(string); ok {
		return k
	}
	return ""
}

// Version returns the object version carried by the payload, or 0.
// JSON decoding produces float64 numbers; integer types are accepted too.
func (p Payload) Version() int64 {
	switch v := p["version"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Deletions lists the keys of every object deleted upstream since a given
// library version.
type Deletions struct {
	Items       []string `json:"items"`
	Collections []string `json:"collections"`
	Searches    []string `json:"searches"`
	Tags        []string `json:"tags"`
}

// WriteError describes one object the server refused in a write batch.
type WriteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteResult classifies every object of a submitted write batch. Maps are
// keyed by the object's zero-based index within the batch (as a decimal
// string, mirroring the wire format); Success and Unchanged map to object
// keys.
type WriteResult struct {
	Success   map[string]string     `json:"success"`
	Unchanged map[string]string     `json:"unchanged"`
	Failed    map[string]WriteError `json:"failed"`
}

// Server is the remote store capability used by the sync engine. All calls
// are blocking; implementations must honor ctx cancellation. After any call
// the server's reported library version is available from
// LastModifiedVersion.
//
// A since value < 0 means "no watermark": return everything.
type Server interface {
	// ItemVersions returns key→version for items changed since the given
	// library version.
	ItemVersions(ctx context.Context, since int64) (map[string]int64, error)

	// CollectionVersions returns key→version for collections changed since
	// the given library version.
	CollectionVersions(ctx context.Context, since int64) (map[string]int64, error)

	// Items fetches full payloads for at most BatchLimit keys.
	Items(ctx context.Context, keys []string) ([]Payload, error)

	// Collection fetches a single collection payload.
	Collection(ctx context.Context, key string) (Payload, error)

	// Deleted lists everything deleted upstream since the given version.
	Deleted(ctx context.Context, since int64) (*Deletions, error)

	// CreateItems creates or updates at most BatchLimit item payloads,
	// guarded by the lastModified precondition.
	CreateItems(ctx context.Context, items []Payload, lastModified int64) (*WriteResult, error)

	// CreateCollections is the collection analog of CreateItems.
	CreateCollections(ctx context.Context, cols []Payload, lastModified int64) (*WriteResult, error)

	// DeleteItems deletes at most BatchLimit items by key, guarded by the
	// lastModified precondition.
	DeleteItems(ctx context.Context, keys []string, lastModified int64) error

	// DeleteCollections is the collection analog of DeleteItems.
	DeleteCollections(ctx context.Context, keys []string, lastModified int64) error

	// LastModifiedVersion reports the library version the server announced
	// on the most recent call.
	LastModifiedVersion() int64

	// ItemTypes returns the vocabulary of allowed item types.
	ItemTypes(ctx context.Context) ([]string, error)

	// ItemFields returns the data fields valid for an item type.
	ItemFields(ctx context.Context, itemType string) ([]string, error)

	// ItemCreatorTypes returns the creator roles valid for an item type.
	ItemCreatorTypes(ctx context.Context, itemType string) ([]string, error)
}
