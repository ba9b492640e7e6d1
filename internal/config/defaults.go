package config

const (
	defaultLedgerPath   = "processed_files.json"
	defaultLogDir       = "~/.local/share/motionmux/logs"
	defaultHistoryPath  = "~/.local/share/motionmux/history.db"
	defaultLockPath     = "~/.local/share/motionmux/motionmux.lock"
	defaultWorkers      = 4
	defaultMuxerBinary  = "motionphoto-mux"
	defaultMuxerTimeout = 600
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultLogRetention = 30
	muxerBinaryEnv      = "MOTIONMUX_MUXER"
	placeholderImage    = "{image}"
	placeholderVideo    = "{video}"
	placeholderOutput   = "{output}"
)

// DefaultMuxerArgs is the argument template used when none is configured.
func DefaultMuxerArgs() []string {
	return []string{"--image", placeholderImage, "--video", placeholderVideo, "--output", placeholderOutput}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LedgerPath:  defaultLedgerPath,
			LogDir:      defaultLogDir,
			HistoryPath: defaultHistoryPath,
			LockPath:    defaultLockPath,
		},
		Scan: Scan{
			Workers: defaultWorkers,
		},
		Muxer: Muxer{
			Args:           DefaultMuxerArgs(),
			TimeoutSeconds: defaultMuxerTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
