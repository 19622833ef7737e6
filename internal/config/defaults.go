package config

const (
	defaultLibraryDir             = "~/music"
	defaultDBFolder               = "~/.local/share/rhythmdb"
	defaultLogDir                 = "~/.local/share/rhythmdb/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultMode                   = "concurrent"
	defaultWorkers                = 4
	maxWorkers                    = 8
	defaultProbeWindows           = 3
	defaultProbeWindowSeconds     = 10
	defaultProbeTimeoutSeconds    = 15
	defaultShutdownGraceSeconds   = 30
	defaultOllamaBaseURL          = "http://127.0.0.1:11434"
	defaultOllamaModel            = "qwen2.5:7b-instruct"
	defaultOllamaTimeoutSeconds   = 120
	defaultEnsembleTimeoutSeconds = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DBFolder:   defaultDBFolder,
			LogDir:     defaultLogDir,
		},
		Tools: Tools{
			FFprobe: "ffprobe",
			FFmpeg:  "ffmpeg",
			Python:  "python3",
		},
		Analysis: Analysis{
			Mode:                   defaultMode,
			TechnicalWorkers:       defaultWorkers,
			CreativeWorkers:        defaultWorkers,
			InstrumentationWorkers: defaultWorkers,
			ProbeWindows:           defaultProbeWindows,
			ProbeWindowSeconds:     defaultProbeWindowSeconds,
			ProbeTimeoutSeconds:    defaultProbeTimeoutSeconds,
			ShutdownGraceSeconds:   defaultShutdownGraceSeconds,
		},
		Ollama: Ollama{
			BaseURL:        defaultOllamaBaseURL,
			Model:          defaultOllamaModel,
			TimeoutSeconds: defaultOllamaTimeoutSeconds,
		},
		Ensemble: Ensemble{
			TimeoutSeconds: defaultEnsembleTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
