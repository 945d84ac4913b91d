package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/zotsync/internal/library"
	"github.com/dmitrijs2005/zotsync/internal/merge"
)

var errQuit = errors.New("quit")

func newDedupCmd(app *App) *cobra.Command {
	var (
		fuzzy     bool
		threshold float64
		apply     bool
	)
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find duplicate documents and merge them",
		Long: `Find groups of documents that look like duplicates of each other and
merge each group into a single document. Without --yes every group is
shown and confirmed interactively: y merges, n skips, a merges the rest
without asking, q stops.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runSynchronized(cmd.Context(), func(ctx context.Context, lib *library.Library) error {
				var src merge.Source
				if fuzzy {
					f := merge.NewFuzzyTitleMerger(lib)
					f.Threshold = threshold
					src = f
				} else {
					src = merge.NewTitleMerger(lib)
				}
				m := merge.NewDocumentMerger(lib, src, app.log)

				in := bufio.NewReader(cmd.InOrStdin())
				all := apply
				merged, err := m.InteractiveMerge(ctx, func(c merge.Candidate) (merge.Proposal, bool, error) {
					printCandidate(cmd, c)
					if all {
						return nil, true, nil
					}
					for {
						cmd.Print("merge? [y/n/a/q] ")
						line, err := in.ReadString('\n')
						if err != nil && line == "" {
							return nil, false, errQuit
						}
						switch strings.ToLower(strings.TrimSpace(line)) {
						case "y", "yes":
							return nil, true, nil
						case "n", "no":
							return nil, false, nil
						case "a", "all":
							all = true
							return nil, true, nil
						case "q", "quit":
							return nil, false, errQuit
						}
					}
				})
				if errors.Is(err, errQuit) {
					err = nil
				}
				cmd.Printf("merged %d group(s)\n", merged)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "cluster near-identical titles instead of exact ones")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.1, "normalized title distance for --fuzzy")
	cmd.Flags().BoolVarP(&apply, "yes", "y", false, "merge every group without asking")
	return cmd
}

func printCandidate(cmd *cobra.Command, c merge.Candidate) {
	cmd.Println()
	for _, d := range c.Docs {
		cmd.Printf("  %s  [%s]  %s (%s)\n", d.Key(), d.ItemType(), d.Title(), d.Date())
	}
	fields := make([]string, 0, len(c.Proposal))
	for f := range c.Proposal {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	cmd.Println("  would merge into:")
	for _, f := range fields {
		cmd.Printf("    %-16s %s\n", f, formatValue(c.Proposal[f]))
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case []library.Creator:
		parts := make([]string, len(t))
		for i, c := range t {
			parts[i] = fmt.Sprintf("%s, %s (%s)", c.Person.Last, c.Person.First, c.Role)
		}
		return strings.Join(parts, "; ")
	case []string:
		return strings.Join(t, ", ")
	default:
		return fmt.Sprint(v)
	}
}
