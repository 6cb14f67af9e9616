package config

const (
	defaultConfigPath         = "~/.config/himyc/config.toml"
	defaultDataDir            = "~/.local/share/himyc"
	defaultLogDirName         = "logs"
	defaultSubtitlesDirName   = "subtitles"
	defaultCacheDirName       = "cache"
	defaultPivotLang          = "en"
	defaultSegmentKind        = "sentence"
	defaultMaxWindow          = 5
	defaultMinConfidence      = 0.3
	defaultOverlapMSThreshold = 100
	defaultCueStrategy        = "auto"
	defaultSimilarity         = "levenshtein"
	defaultMinTextRatio       = 0.5
	defaultSubtitleFormat     = "srt"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults. Directories
// left empty are derived from paths.data_dir during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Alignment: Alignment{
			PivotLang:          defaultPivotLang,
			SegmentKind:        defaultSegmentKind,
			MaxWindow:          defaultMaxWindow,
			MinConfidence:      defaultMinConfidence,
			OverlapMSThreshold: defaultOverlapMSThreshold,
			CueStrategy:        defaultCueStrategy,
			Similarity:         defaultSimilarity,
			MinTextRatio:       defaultMinTextRatio,
		},
		Propagation: Propagation{
			SubtitleFormat: defaultSubtitleFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
