package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"motionmux/internal/config"
	"motionmux/internal/services"
)

// processFlags are shared by run and mux. Only flags the user set override
// the loaded configuration.
type processFlags struct {
	outputDir   string
	deleteVideo bool
	keepTemp    bool
	overwrite   bool
	verbose     bool
	yes         bool
}

func (f *processFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.outputDir, "output-dir", "", "Directory for processed files (default: beside the source)")
	flags.BoolVar(&f.deleteVideo, "delete-video", false, "Delete the source video after a successful mux")
	flags.BoolVar(&f.keepTemp, "keep-temp", false, "Keep the muxer's temporary output")
	flags.BoolVar(&f.overwrite, "overwrite", false, "Replace the source image with the motion photo")
	flags.BoolVar(&f.verbose, "verbose", false, "Log muxer output at info level")
	flags.BoolVarP(&f.yes, "yes", "y", false, "Skip the confirmation prompt for destructive options")
}

// apply copies set flags onto cfg and re-validates the result.
func (f *processFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		dir, err := config.ExpandPath(strings.TrimSpace(f.outputDir))
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "cli", "resolve --output-dir", "", err)
		}
		cfg.Output.Directory = dir
	}
	if flags.Changed("delete-video") {
		cfg.Output.DeleteVideo = f.deleteVideo
	}
	if flags.Changed("keep-temp") {
		cfg.Output.KeepTemp = f.keepTemp
	}
	if flags.Changed("overwrite") {
		cfg.Output.Overwrite = f.overwrite
	}
	if flags.Changed("verbose") {
		cfg.Muxer.Verbose = f.verbose
	}
	if err := cfg.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "validate options", "", err)
	}
	return nil
}

// destructive lists the enabled options that modify or remove source files.
func destructive(cfg *config.Config) []string {
	var opts []string
	if cfg.Output.Overwrite {
		opts = append(opts, "overwrite source images")
	}
	if cfg.Output.DeleteVideo {
		opts = append(opts, "delete source videos")
	}
	return opts
}

func (f *processFlags) confirm(cmd *cobra.Command, cfg *config.Config) error {
	actions := destructive(cfg)
	if len(actions) == 0 || f.yes {
		return nil
	}
	question := fmt.Sprintf("This run will %s. Continue?", strings.Join(actions, " and "))
	return confirmAction(cmd, question)
}
