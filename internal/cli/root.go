// Package cli implements the zotsync command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/zotsync/internal/config"
	"github.com/dmitrijs2005/zotsync/internal/library"
	"github.com/dmitrijs2005/zotsync/internal/logging"
	"github.com/dmitrijs2005/zotsync/internal/remote"
	"github.com/dmitrijs2005/zotsync/internal/store"
)

// App carries the pieces every command needs: the profile directory, the
// loaded configuration and the logger.
type App struct {
	dir string
	cfg *config.Config
	log logging.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(log logging.Logger) *cobra.Command {
	if log == nil {
		log = logging.Nop()
	}
	app := &App{log: log}

	root := &cobra.Command{
		Use:           "zotsync",
		Short:         "Synchronize and deduplicate a remote bibliography library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.dir == "" {
				dir, err := config.DefaultDir()
				if err != nil {
					return err
				}
				app.dir = dir
			}
			cfg, err := config.Load(app.dir)
			if err != nil {
				return err
			}
			app.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&app.dir, "profile", "", "profile directory (default ~/.zotsync)")

	root.AddCommand(
		newInitCmd(app),
		newPullCmd(app),
		newPushCmd(app),
		newSyncCmd(app),
		newStatusCmd(app),
		newDedupCmd(app),
		newBackupCmd(app),
		newRevertCmd(app),
	)
	return root
}

// server builds the API client for the configured library.
func (a *App) server() (remote.Server, error) {
	if a.cfg.UserID == 0 || a.cfg.APIKey == "" {
		return nil, fmt.Errorf("no credentials configured, run 'zotsync init' first")
	}
	return remote.NewHTTPServer(a.cfg.Endpoint, a.cfg.UserID, a.cfg.APIKey, nil), nil
}

// openLibrary loads the stored snapshot into a live library, or starts an
// empty one on first use. The caller owns closing the returned store.
func (a *App) openLibrary(ctx context.Context, srv remote.Server) (*library.Library, *store.Store, error) {
	st, err := store.Open(ctx, a.cfg.LibraryPath)
	if err != nil {
		return nil, nil, err
	}
	state, found, err := st.Load(ctx)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	if !found {
		return library.New(srv, a.log), st, nil
	}
	lib, err := library.Restore(state, srv, a.log)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return lib, st, nil
}

// saveLibrary snapshots the library back into the store. It is also
// called after a cancelled sync so completed batches survive.
func (a *App) saveLibrary(ctx context.Context, st *store.Store, lib *library.Library) error {
	// Persist even when the surrounding context was cancelled.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if err := st.Save(ctx, lib.ExportState()); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	return nil
}
