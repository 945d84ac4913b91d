package cli

import (
	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local library's size and pending work",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := app.server()
			if err != nil {
				return err
			}
			lib, st, err := app.openLibrary(cmd.Context(), srv)
			if err != nil {
				return err
			}
			defer st.Close()

			if v := lib.Version(); v < 0 {
				cmd.Println("never synced")
			} else {
				cmd.Printf("synced at version %d\n", v)
			}
			cmd.Printf("documents:   %d\n", len(lib.Documents()))
			cmd.Printf("attachments: %d\n", len(lib.Attachments()))
			cmd.Printf("collections: %d\n", len(lib.Collections()))
			cmd.Printf("tags:        %d\n", len(lib.Tags()))
			cmd.Printf("pending: %d edited, %d created, %d deleted\n",
				lib.DirtyCount(), lib.FreshCount(), lib.DeletedCount())
			return nil
		},
	}
}
