package dispatch

import (
	"motionmux/internal/config"
	"motionmux/internal/transform"
)

const defaultWorkers = 4

// Options carries the settings shared by every directory pass.
type Options struct {
	Root        string // scan root; output placement mirrors paths relative to it
	OutputDir   string
	Workers     int
	DeleteVideo bool
	KeepTemp    bool
	Overwrite   bool
	Verbose     bool
}

// OptionsFromConfig derives dispatch options from configuration.
func OptionsFromConfig(cfg *config.Config, root string) Options {
	if cfg == nil {
		return Options{Root: root, Workers: defaultWorkers}
	}
	return Options{
		Root:        root,
		OutputDir:   cfg.Output.Directory,
		Workers:     cfg.Scan.Workers,
		DeleteVideo: cfg.Output.DeleteVideo,
		KeepTemp:    cfg.Output.KeepTemp,
		Overwrite:   cfg.Output.Overwrite,
		Verbose:     cfg.Muxer.Verbose,
	}
}

func (o Options) request(image, video, outputDir string) transform.Request {
	return transform.Request{
		Image:       image,
		Video:       video,
		OutputDir:   outputDir,
		DeleteVideo: o.DeleteVideo,
		KeepTemp:    o.KeepTemp,
		Overwrite:   o.Overwrite,
		Verbose:     o.Verbose,
	}
}
