package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/dupfinder/internal/lock"
)

// unlockCmd shows or clears the session lock left by an interrupted run
func unlockCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Show or remove the session lock",
		Long: `Report which process holds the session lock taken around delete and move
batches. With --force the lock is removed; use it only when the holder is
known to be gone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, err := lock.NewFileLock(a.cfg.DataDir)
			if err != nil {
				return err
			}

			if !fl.IsLocked() {
				// Clears a stale lock file, if any
				if err := fl.ForceRelease(); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "No session lock held.")
				return nil
			}

			holder, err := fl.GetHolder()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Session locked by PID %d on %s since %s (operation: %s)\n",
				holder.PID, holder.Hostname, holder.StartTime.Format(time.RFC3339), holder.Operation)

			if !force {
				return fmt.Errorf("lock is held; rerun with --force to remove it")
			}
			if err := fl.ForceRelease(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Session lock removed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Remove the lock even though its holder looks alive")
	return cmd
}
