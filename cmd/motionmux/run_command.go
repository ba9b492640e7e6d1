package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"motionmux/internal/config"
	"motionmux/internal/daemon"
	"motionmux/internal/dispatch"
	"motionmux/internal/preflight"
	"motionmux/internal/services"
	"motionmux/internal/transform"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var inputDir string
	var workers int
	var noWatch bool
	var pf processFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a directory tree and watch it for new files",
		Long: "Scan the input directory and every directory beneath it, mux each image with\n" +
			"its same-named video, and record processed images in the ledger. Unless\n" +
			"--no-watch is set, motionmux watches the tree while the scan runs and keeps\n" +
			"watching until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := resolveInputDir(inputDir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Scan.Workers = workers
			}
			if err := pf.apply(cmd, cfg); err != nil {
				return err
			}
			if err := pf.confirm(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			target := preflight.Target{InputDir: root, WritesInput: writesInput(cfg)}
			if err := preflight.Error(preflight.RunAll(cfg, target)); err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			l, err := ctx.openLedger()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			gateway := transform.NewCommandGateway(cfg.Muxer, logger)
			dispatcher, err := dispatch.New(dispatch.OptionsFromConfig(cfg, root), l, gateway, logger)
			if err != nil {
				return err
			}
			if store != nil {
				dispatcher.WithJournal(store)
			}

			d, err := daemon.New(cfg, dispatcher, logger)
			if err != nil {
				return err
			}
			report, err := d.Run(cmd.Context(), daemon.Options{Watch: !noWatch})
			printReport(cmd.OutOrStdout(), report)
			return err
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input-dir", "i", "", "Directory tree to process")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Directories processed concurrently (overrides scan.workers)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Exit after the initial batch instead of watching for new files")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("input-dir")
	return cmd
}

func resolveInputDir(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", services.Wrap(services.ErrConfiguration, "cli", "run", "--input-dir is required", nil)
	}
	dir, err := config.ExpandPath(value)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "cli", "resolve --input-dir", "", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", services.Wrap(services.ErrFilesystem, "cli", "inspect input directory", dir, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrConfiguration, "cli", "run", dir+" is not a directory", nil)
	}
	return dir, nil
}

// writesInput reports whether processing will create or remove files inside
// the input tree.
func writesInput(cfg *config.Config) bool {
	return cfg.Output.Directory == "" || cfg.Output.Overwrite || cfg.Output.DeleteVideo
}

func printReport(out io.Writer, report dispatch.Report) {
	if report.Directories == 0 {
		return
	}
	fmt.Fprintf(out, "Scanned %d directories: %d muxed, %d copied, %d skipped, %d already processed\n",
		report.Directories, report.Muxed, report.Copied, report.Skipped, report.AlreadyDone)
	if report.Unmatched > 0 {
		fmt.Fprintf(out, "Copied %d unmatched videos\n", report.Unmatched)
	}
	if report.FailedDirectories > 0 {
		fmt.Fprintf(out, "%d directories failed\n", report.FailedDirectories)
	}
}
