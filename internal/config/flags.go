package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagSource  = flag.String("src", "", "Unpacked game data root")
	flagOutput  = flag.String("out", "", "OBJ output directory")
	flagLogFile = flag.String("log-file", "", "Also log to this file (rotated)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after the global flags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via -config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSource != "" {
		cfg.Paths.Source = *flagSource
	}
	if *flagOutput != "" {
		cfg.Paths.Output = *flagOutput
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
