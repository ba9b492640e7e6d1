package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"motionmux/internal/config"
	"motionmux/internal/dispatch"
	"motionmux/internal/preflight"
	"motionmux/internal/services"
	"motionmux/internal/transform"
)

func newMuxCommand(ctx *commandContext) *cobra.Command {
	var imagePath string
	var videoPath string
	var outputFile string
	var pf processFlags

	cmd := &cobra.Command{
		Use:   "mux",
		Short: "Mux a single image and video into a motion photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			image, video, err := resolvePair(imagePath, videoPath)
			if err != nil {
				return err
			}
			if err := pf.apply(cmd, cfg); err != nil {
				return err
			}
			output := ""
			if strings.TrimSpace(outputFile) != "" {
				if output, err = config.ExpandPath(strings.TrimSpace(outputFile)); err != nil {
					return services.Wrap(services.ErrConfiguration, "cli", "resolve --output-file", "", err)
				}
				if cfg.Output.Overwrite {
					return services.Wrap(services.ErrConfiguration, "cli", "validate options", "", fmt.Errorf("%w: --output-file cannot be combined with --overwrite", config.ErrConflictingOptions))
				}
			}
			if err := pf.confirm(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			if err := preflight.Error(preflight.RunAll(cfg, preflight.Target{})); err != nil {
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
			dispatcher, err := dispatch.New(dispatch.OptionsFromConfig(cfg, filepath.Dir(image)), l, gateway, logger)
			if err != nil {
				return err
			}
			if store != nil {
				dispatcher.WithJournal(store)
			}

			req := transform.Request{
				Image:       image,
				Video:       video,
				OutputDir:   cfg.Output.Directory,
				OutputFile:  output,
				DeleteVideo: cfg.Output.DeleteVideo,
				KeepTemp:    cfg.Output.KeepTemp,
				Overwrite:   cfg.Output.Overwrite,
				Verbose:     cfg.Muxer.Verbose,
			}
			result, done, err := dispatcher.ProcessPair(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !done {
				fmt.Fprintf(out, "Already processed: %s\n", image)
				return nil
			}
			fmt.Fprintf(out, "Wrote %s\n", result.Output)
			if result.TempPath != "" {
				fmt.Fprintf(out, "Kept temporary output %s\n", result.TempPath)
			}
			if result.VideoDeleted {
				fmt.Fprintf(out, "Deleted %s\n", video)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Still image to mux")
	cmd.Flags().StringVar(&videoPath, "video", "", "Motion video to embed")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "Explicit output path (wins over --output-dir)")
	pf.register(cmd)
	return cmd
}

func resolvePair(image, video string) (string, string, error) {
	image, video = strings.TrimSpace(image), strings.TrimSpace(video)
	if image == "" || video == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "cli", "mux", "both --image and --video are required", nil)
	}
	imageAbs, err := config.ExpandPath(image)
	if err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "cli", "resolve --image", "", err)
	}
	videoAbs, err := config.ExpandPath(video)
	if err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "cli", "resolve --video", "", err)
	}
	return imageAbs, videoAbs, nil
}
