package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// applyCmd acts on the duplicates listed in a saved result document
func applyCmd(a *app) *cobra.Command {
	var af actionFlags

	cmd := &cobra.Command{
		Use:   "apply <snapshot.json>",
		Short: "Delete or move the duplicates listed in a saved result",
		Long: `Load a result document written by scan or compare with --output and act on
its duplicates: the non-original members of each group, or the compare-tree
side of each match. A relative quarantine folder is placed next to the
document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := af.action()
			if err != nil {
				return err
			}
			if act == "" {
				return fmt.Errorf("one of --delete or --move is required")
			}

			svc, err := a.newService(nil, &af)
			if err != nil {
				return err
			}
			defer svc.Close()

			sel, err := svc.LoadSelection(args[0])
			if err != nil {
				return err
			}
			if len(sel.Paths) == 0 {
				fmt.Fprintln(a.out, "Nothing to do.")
				return nil
			}
			fmt.Fprintf(a.out, "Loaded %d duplicate(s) from %s (%s)\n", len(sel.Paths), args[0], sel.Kind)

			return a.act(cmd.Context(), svc, &af, act, sel.Root, sel.Paths)
		},
	}

	af.register(cmd)
	return cmd
}
