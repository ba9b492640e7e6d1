package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"motionmux/internal/config"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or edit the processed-image ledger",
	}

	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerRemoveCommand(ctx))
	ledgerCmd.AddCommand(newLedgerClearCommand(ctx))

	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List processed images, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := ctx.openLedger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			records := l.List()
			if len(records) == 0 {
				fmt.Fprintf(out, "Ledger %s is empty\n", l.Path())
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				video := rec.Entry.VideoPath()
				if video == "" {
					video = "-"
				}
				rows = append(rows, []string{
					rec.Image,
					video,
					rec.Entry.Time().Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Image", "Video", "Processed"}, rows, nil))
			fmt.Fprintf(out, "%d entries in %s\n", len(records), l.Path())
			return nil
		},
	}
}

func newLedgerRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PATH...",
		Short: "Forget processed images so the next pass handles them again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := ctx.openLedger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var missing []string
			for _, arg := range args {
				path, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return err
				}
				if !l.Contains(path) {
					missing = append(missing, path)
					continue
				}
				if err := l.Remove(path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			if len(missing) > 0 {
				return fmt.Errorf("not in ledger: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newLedgerClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every ledger entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := ctx.openLedger()
			if err != nil {
				return err
			}
			count := l.Count()
			out := cmd.OutOrStdout()
			if count == 0 {
				fmt.Fprintln(out, "Ledger already empty")
				return nil
			}
			if !yes {
				if err := confirmAction(cmd, fmt.Sprintf("Remove all %d ledger entries?", count)); err != nil {
					return err
				}
			}
			if err := l.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d entries from %s\n", count, l.Path())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
