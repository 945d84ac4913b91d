package library

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/zotsync/internal/remote"
)

// maxPushRetries bounds how many times a push restarts after the server
// reports the local watermark stale.
const maxPushRetries = 4

// Push sends every local edit, creation and deletion to the server.
// On a version conflict it pulls, rebases and retries up to
// maxPushRetries times before giving up with ErrSyncFailed.
func (l *Library) Push(ctx context.Context) error {
	return l.push(ctx, 0)
}

func (l *Library) push(ctx context.Context, attempt int) error {
	if attempt >= maxPushRetries {
		return fmt.Errorf("push abandoned after %d conflicts: %w", attempt, ErrSyncFailed)
	}
	err := l.pushOnce(ctx, attempt > 0)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrStaleLocalData) && !errors.Is(err, remote.ErrPreconditionFailed) {
		return err
	}
	l.log.Warn(ctx, "push conflicted, pulling and retrying", "attempt", attempt+1)
	if err := l.Pull(ctx); err != nil {
		return fmt.Errorf("pull for rebase: %w", err)
	}
	return l.push(ctx, attempt+1)
}

// pushOnce runs one full push pass: updates before deletions, so a
// reparent never races the removal of the old parent.
func (l *Library) pushOnce(ctx context.Context, force bool) error {
	if err := l.pushUpdates(ctx, force); err != nil {
		return err
	}
	if len(l.dirty) > 0 || len(l.fresh) > 0 {
		return &ConsistencyError{Msg: fmt.Sprintf(
			"%d dirty and %d fresh objects left after update push", len(l.dirty), len(l.fresh))}
	}
	if err := l.pushDeletions(ctx); err != nil {
		return err
	}
	if len(l.deleted) > 0 {
		return &ConsistencyError{Msg: fmt.Sprintf(
			"%d deletions left after deletion push", len(l.deleted))}
	}
	l.log.Info(ctx, "push complete", "version", l.version)
	return nil
}

func (l *Library) pushUpdates(ctx context.Context, force bool) error {
	cols, items := l.outgoing()
	retried := map[string]struct{}{}
	if err := l.pushBatches(ctx, cols, force, retried, l.server.CreateCollections); err != nil {
		return err
	}
	return l.pushBatches(ctx, items, force, retried, l.server.CreateItems)
}

// outgoing collects the objects to send, fresh ones ordered parent before
// child so the server never sees a dangling reference.
func (l *Library) outgoing() (cols, items []Entity) {
	var order []Entity
	seen := map[string]struct{}{}
	var visit func(e Entity)
	visit = func(e Entity) {
		if _, done := seen[e.Key()]; done {
			return
		}
		seen[e.Key()] = struct{}{}
		if pk := e.core().ParentKey(); pk != "" {
			if p, ok := l.objects[pk]; ok && p.Fresh() {
				visit(p)
			}
		}
		order = append(order, e)
	}
	for _, key := range sortedKeys(l.fresh) {
		if e, ok := l.objects[key]; ok {
			visit(e)
		}
	}
	for _, key := range sortedKeys(l.dirty) {
		if e, ok := l.objects[key]; ok {
			visit(e)
		}
	}
	for _, e := range order {
		if e.Kind() == KindCollection {
			cols = append(cols, e)
		} else {
			items = append(items, e)
		}
	}
	return cols, items
}

type writeFunc func(ctx context.Context, payloads []remote.Payload, lastModified int64) (*remote.WriteResult, error)

func (l *Library) pushBatches(ctx context.Context, pending []Entity, force bool, retried map[string]struct{}, write writeFunc) error {
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := len(pending)
		if n > remote.BatchLimit {
			n = remote.BatchLimit
		}
		batch := pending[:n]
		pending = pending[n:]

		payloads := make([]remote.Payload, len(batch))
		for i, e := range batch {
			p := e.ModifiedData()
			if force && !e.Fresh() {
				p["version"] = l.version
			}
			payloads[i] = p
		}
		result, err := write(ctx, payloads, l.version)
		if err != nil {
			if errors.Is(err, remote.ErrPreconditionFailed) {
				return fmt.Errorf("update batch: %w", ErrStaleLocalData)
			}
			return fmt.Errorf("update batch: %w", err)
		}
		resubmit, err := l.applyWriteResult(ctx, batch, result, retried)
		if err != nil {
			return err
		}
		pending = append(resubmit, pending...)
	}
	return nil
}

// applyWriteResult folds one batch response into local state. Objects the
// server reported missing are downgraded to fresh and resubmitted once.
func (l *Library) applyWriteResult(ctx context.Context, batch []Entity, result *remote.WriteResult, retried map[string]struct{}) ([]Entity, error) {
	byIndex := func(idx string) Entity {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(batch) {
			return nil
		}
		return batch[i]
	}
	var cleaned []Entity
	for idx := range result.Success {
		if e := byIndex(idx); e != nil {
			e.core().markClean()
			cleaned = append(cleaned, e)
		}
	}
	for idx := range result.Unchanged {
		if e := byIndex(idx); e != nil {
			e.core().markClean()
			cleaned = append(cleaned, e)
		}
	}
	var resubmit []Entity
	for idx, we := range result.Failed {
		e := byIndex(idx)
		if e == nil {
			return nil, &ConsistencyError{Msg: fmt.Sprintf("write failure for unknown index %q", idx)}
		}
		switch {
		case we.Code == 412:
			return nil, fmt.Errorf("object %s: %w", e.Key(), ErrStaleLocalData)
		case we.Code == 404 && strings.Contains(we.Message, "does not exist"):
			if _, done := retried[e.Key()]; done {
				return nil, &UpdateRejectedError{Result: result}
			}
			// The server lost the object; recreate it from scratch.
			retried[e.Key()] = struct{}{}
			o := e.core()
			o.version = -1
			o.fresh = true
			l.fresh[o.key] = struct{}{}
			resubmit = append(resubmit, e)
			l.log.Warn(ctx, "recreating object the server no longer has", "key", e.Key())
		default:
			return nil, &UpdateRejectedError{Result: result}
		}
	}
	for _, e := range cleaned {
		e.core().version = l.server.LastModifiedVersion()
	}
	l.version = l.server.LastModifiedVersion()
	l.nextVersion = l.version
	return resubmit, nil
}

func (l *Library) pushDeletions(ctx context.Context) error {
	var items, cols []string
	for key, e := range l.deleted {
		if e.Kind() == KindCollection {
			cols = append(cols, key)
		} else {
			items = append(items, key)
		}
	}
	if err := l.deleteBatches(ctx, items, l.server.DeleteItems); err != nil {
		return err
	}
	for _, key := range items {
		delete(l.deleted, key)
	}
	if err := l.deleteBatches(ctx, cols, l.server.DeleteCollections); err != nil {
		return err
	}
	for _, key := range cols {
		delete(l.deleted, key)
	}
	l.version = l.server.LastModifiedVersion()
	l.nextVersion = l.version
	return nil
}

func (l *Library) deleteBatches(ctx context.Context, keys []string, del func(context.Context, []string, int64) error) error {
	for len(keys) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := len(keys)
		if n > remote.BatchLimit {
			n = remote.BatchLimit
		}
		if err := del(ctx, keys[:n], l.version); err != nil {
			if errors.Is(err, remote.ErrPreconditionFailed) {
				return fmt.Errorf("delete batch: %w", ErrStaleLocalData)
			}
			return fmt.Errorf("delete batch: %w", err)
		}
		// The server advances the library version on every delete
		// batch; the next batch's precondition must carry it.
		l.version = l.server.LastModifiedVersion()
		l.nextVersion = l.version
		keys = keys[n:]
	}
	return nil
}

// Sync is a pull followed by a push.
func (l *Library) Sync(ctx context.Context) error {
	if err := l.Pull(ctx); err != nil {
		return err
	}
	return l.Push(ctx)
}
