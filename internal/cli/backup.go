package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/zotsync/internal/store"
)

func newBackupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Keep a numbered backup copy of the local library",
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := store.Backup(app.cfg.LibraryPath, app.cfg.Backups)
			if err != nil {
				return err
			}
			cmd.Printf("backup written to %s\n", dst)
			return nil
		},
	}
}

func newRevertCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revert",
		Short: "Restore the local library from its most recent backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := store.Revert(app.cfg.LibraryPath)
			if err != nil {
				return err
			}
			cmd.Printf("restored from %s\n", src)
			return nil
		},
	}
}
