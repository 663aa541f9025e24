package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/dupfinder/internal/state"
)

// historyCmd lists recorded runs
func historyCmd(a *app) *cobra.Command {
	var limit int
	var mode string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dupfinder runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := state.NewManager(a.cfg.DataDir)
			if err != nil {
				return err
			}
			defer mgr.Close()

			var runs []state.Run
			switch state.Mode(mode) {
			case "":
				runs, err = mgr.GetHistory(limit)
			case state.ModeWithin, state.ModeAcross, state.ModeApply:
				runs, err = mgr.GetHistoryByMode(state.Mode(mode), limit)
			default:
				return fmt.Errorf("unknown mode %q (within, across or apply)", mode)
			}
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No runs recorded yet.")
				return nil
			}
			renderHistory(a.out, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to show")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Only show runs of this mode: within, across or apply")
	return cmd
}
