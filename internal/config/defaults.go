package config

const (
	defaultScriptsDir      = "scripts"
	defaultLogDir          = "~/.local/share/asrsift/logs"
	defaultStateDir        = "~/.local/share/asrsift"
	defaultPython          = "python"
	defaultBatchSize       = 4
	defaultNumJobs         = -2 // joblib convention: all CPUs but one
	defaultMaxCER          = 30
	defaultMaxWER          = 75
	defaultMaxEdgeCER      = 60
	defaultMaxLenDiffRatio = 0.3
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScriptsDir: defaultScriptsDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Transcription: Transcription{
			Python:    defaultPython,
			BatchSize: defaultBatchSize,
			NumJobs:   defaultNumJobs,
		},
		Filter: Filter{
			MaxCER:          defaultMaxCER,
			MaxWER:          defaultMaxWER,
			MaxEdgeCER:      defaultMaxEdgeCER,
			MaxLenDiffRatio: defaultMaxLenDiffRatio,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
