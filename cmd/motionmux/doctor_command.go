package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"motionmux/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var inputDir string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the muxer binary and state locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := preflight.Target{}
			if strings.TrimSpace(inputDir) != "" {
				if target.InputDir, err = resolveInputDir(inputDir); err != nil {
					return err
				}
				target.WritesInput = writesInput(cfg)
			}

			results := preflight.RunAll(cfg, target)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			fmt.Fprintf(out, "Ledger entries tracked at %s; history journal enabled: %s\n",
				cfg.Paths.LedgerPath, yesNo(cfg.Paths.HistoryPath != ""))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input-dir", "i", "", "Also check access to this input directory")
	return cmd
}
