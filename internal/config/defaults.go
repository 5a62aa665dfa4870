package config

const (
	defaultStorageDir              = "~/.local/share/clipvault/uploads"
	defaultDataDir                 = "~/.local/share/clipvault"
	defaultAPIBind                 = "127.0.0.1:7490"
	defaultTokenTTLSeconds         = 3600
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultMaxUploadMiB            = 25
	defaultMinDurationSeconds      = 5
	defaultMaxDurationSeconds      = 25
	defaultTranscodeTimeoutSeconds = 300
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

var defaultAllowedExtensions = []string{".mp4", ".avi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			DataDir:    defaultDataDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Tokens: Tokens{
			TTLSeconds: defaultTokenTTLSeconds,
		},
		Media: Media{
			FFmpegBinary:            defaultFFmpegBinary,
			FFprobeBinary:           defaultFFprobeBinary,
			MaxUploadMiB:            defaultMaxUploadMiB,
			MinDurationSeconds:      defaultMinDurationSeconds,
			MaxDurationSeconds:      defaultMaxDurationSeconds,
			AllowedExtensions:       append([]string(nil), defaultAllowedExtensions...),
			TranscodeTimeoutSeconds: defaultTranscodeTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
