package config

const (
	defaultConfigPath         = "~/.config/karaoke/config.toml"
	defaultOutputDir          = "~/.local/share/karaoke/output"
	defaultWorkDir            = "~/.local/share/karaoke/work"
	defaultLogDir             = "~/.local/share/karaoke/logs"
	defaultAPIBind            = "127.0.0.1:7488"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultVideoCodec         = "libx264"
	defaultCRF                = 18
	defaultPreset             = "medium"
	defaultMinResolution      = 1080
	defaultEncodeTimeout      = 3600
	defaultProbeTimeout       = 60
	defaultOutputSuffix       = "_karaoke"
	defaultStyle              = "classic"
	defaultWordsPerLine       = 10
	defaultMaxLineDurationMS  = 5000
	defaultTranscriptionModel = "large-v3"
	defaultVADMethod          = "silero"
	defaultTranscriptionLimit = 7200
	defaultWorkers            = 2
	defaultQueueCapacity      = 256
	defaultEventBuffer        = 1024
	defaultRetentionHours     = 72
	defaultSweepInterval      = 300
	defaultReportName         = "karaoke_batch_report.json"
	defaultRedisChannel       = "karaoke:jobs"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	maxWordsPerLine           = 20
	maxCRF                    = 51
	maxRedisDB                = 15
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Render: Render{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			VideoCodec:    defaultVideoCodec,
			CRF:           defaultCRF,
			Preset:        defaultPreset,
			MinResolution: defaultMinResolution,
			EncodeTimeout: defaultEncodeTimeout,
			ProbeTimeout:  defaultProbeTimeout,
			OutputSuffix:  defaultOutputSuffix,
		},
		Subtitles: Subtitles{
			Style:           defaultStyle,
			WordsPerLine:    defaultWordsPerLine,
			MaxLineDuration: defaultMaxLineDurationMS,
			AutoWrap:        true,
		},
		Transcription: Transcription{
			Model:     defaultTranscriptionModel,
			VADMethod: defaultVADMethod,
			Timeout:   defaultTranscriptionLimit,
		},
		Workflow: Workflow{
			Workers:        defaultWorkers,
			QueueCapacity:  defaultQueueCapacity,
			EventBuffer:    defaultEventBuffer,
			RetentionHours: defaultRetentionHours,
			SweepInterval:  defaultSweepInterval,
			ReportName:     defaultReportName,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RedisChannel:   defaultRedisChannel,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
