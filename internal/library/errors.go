package library

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/zotsync/internal/remote"
)

var (
	// ErrStaleLocalData signals that the remote library moved past the
	// local watermark and a pull is required before pushing again.
	ErrStaleLocalData = errors.New("local data is stale")
	// ErrSyncFailed is returned when the push retry budget is exhausted.
	ErrSyncFailed = errors.New("sync failed")
)

// ConsistencyError reports a violated internal invariant, usually caused
// by a payload that contradicts the local state.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency error: %s", e.Msg)
}

// InvalidDataError reports a payload that cannot be mapped onto an entity.
type InvalidDataError struct {
	Payload remote.Payload
	Msg     string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid data: %s", e.Msg)
}

// InvalidPropertyError reports a rejected field mutation.
type InvalidPropertyError struct {
	Field string
	Msg   string
}

func (e *InvalidPropertyError) Error() string {
	return fmt.Sprintf("invalid property %q: %s", e.Field, e.Msg)
}

// UpdateRejectedError reports write batch entries the server refused for
// reasons other than a version conflict.
type UpdateRejectedError struct {
	Result *remote.WriteResult
}

func (e *UpdateRejectedError) Error() string {
	return fmt.Sprintf("server rejected %d object(s)", len(e.Result.Failed))
}
