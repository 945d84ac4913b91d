package library

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/zotsync/internal/remote"
)

// Pull brings the library up to date with the server: apply remote
// deletions, queue everything newer than the watermark, then drain the
// queues in batches. Cancellation between batches keeps the work done so
// far; the watermark only advances once both queues are empty.
func (l *Library) Pull(ctx context.Context) error {
	if l.version >= 0 {
		if err := l.pullDeletions(ctx); err != nil {
			return err
		}
	}
	if err := l.queueChanged(ctx); err != nil {
		return err
	}
	if err := l.drainCollections(ctx); err != nil {
		return err
	}
	if err := l.drainItems(ctx); err != nil {
		return err
	}
	l.version = l.nextVersion
	l.log.Info(ctx, "pull complete", "version", l.version)
	return nil
}

func (l *Library) pullDeletions(ctx context.Context) error {
	del, err := l.server.Deleted(ctx, l.version)
	if err != nil {
		return fmt.Errorf("fetch deletions: %w", err)
	}
	for _, key := range del.Items {
		if e, ok := l.objects[key]; ok {
			e.core().serverRemove()
		}
		delete(l.deleted, key)
		delete(l.itemQueue, key)
	}
	for _, key := range del.Collections {
		if c, ok := l.collections[key]; ok {
			c.serverRemove()
		}
		delete(l.deleted, key)
		delete(l.collQueue, key)
	}
	return nil
}

// queueChanged asks the server for version maps and queues every key that
// is unknown locally or newer remotely. The target watermark is captured
// here, after the version maps were served.
func (l *Library) queueChanged(ctx context.Context) error {
	items, err := l.server.ItemVersions(ctx, l.version)
	if err != nil {
		return fmt.Errorf("fetch item versions: %w", err)
	}
	for key, v := range items {
		if e, ok := l.objects[key]; ok && e.Version() >= v {
			continue
		}
		l.itemQueue[key] = struct{}{}
	}
	cols, err := l.server.CollectionVersions(ctx, l.version)
	if err != nil {
		return fmt.Errorf("fetch collection versions: %w", err)
	}
	for key, v := range cols {
		if c, ok := l.collections[key]; ok && c.Version() >= v {
			continue
		}
		l.collQueue[key] = struct{}{}
	}
	l.nextVersion = l.server.LastModifiedVersion()
	return nil
}

func (l *Library) drainCollections(ctx context.Context) error {
	for _, key := range sortedKeys(l.collQueue) {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := l.server.Collection(ctx, key)
		if err != nil {
			return fmt.Errorf("fetch collection %s: %w", key, err)
		}
		if _, err := l.applyCollection(p); err != nil {
			return err
		}
		delete(l.collQueue, key)
	}
	return nil
}

func (l *Library) drainItems(ctx context.Context) error {
	for len(l.itemQueue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := sortedKeys(l.itemQueue)
		if len(batch) > remote.BatchLimit {
			batch = batch[:remote.BatchLimit]
		}
		payloads, err := l.server.Items(ctx, batch)
		if err != nil {
			return fmt.Errorf("fetch items: %w", err)
		}
		for _, p := range payloads {
			if _, err := l.applyItem(p); err != nil {
				return err
			}
			delete(l.itemQueue, p.Key())
		}
		// A key the server no longer serves must not wedge the queue.
		for _, key := range batch {
			delete(l.itemQueue, key)
		}
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
