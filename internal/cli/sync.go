package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/zotsync/internal/library"
)

// runSynchronized loads the library, runs op against it, and always
// saves whatever state op left behind, cancelled or not.
func (a *App) runSynchronized(ctx context.Context, op func(context.Context, *library.Library) error) error {
	srv, err := a.server()
	if err != nil {
		return err
	}
	lib, st, err := a.openLibrary(ctx, srv)
	if err != nil {
		return err
	}
	defer st.Close()

	opErr := op(ctx, lib)
	if saveErr := a.saveLibrary(ctx, st, lib); saveErr != nil {
		if opErr != nil {
			return errors.Join(opErr, saveErr)
		}
		return saveErr
	}
	return opErr
}

func newPullCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch remote changes into the local library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runSynchronized(cmd.Context(), func(ctx context.Context, lib *library.Library) error {
				return lib.Pull(ctx)
			})
		},
	}
}

func newPushCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Send local edits, creations and deletions to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runSynchronized(cmd.Context(), func(ctx context.Context, lib *library.Library) error {
				return lib.Push(ctx)
			})
		},
	}
}

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull then push",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runSynchronized(cmd.Context(), func(ctx context.Context, lib *library.Library) error {
				return lib.Sync(ctx)
			})
		},
	}
}
