package config

// Storage backends.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

const (
	defaultConfigPath                = "~/.config/videoflix/config.toml"
	defaultDataDir                   = "~/.local/share/videoflix"
	defaultStorageDir                = "~/.local/share/videoflix/media"
	defaultWorkDir                   = "~/.local/share/videoflix/work"
	defaultLogDir                    = "~/.local/share/videoflix/logs"
	defaultEncoderBinary             = "ffmpeg"
	defaultEncoderTimeoutSeconds     = 3600
	defaultVideoCodec                = "libx264"
	defaultCRF                       = 23
	defaultAudioCodec                = "aac"
	defaultContainer                 = "mp4"
	defaultWorkers                   = 1
	defaultQueuePollInterval         = 5
	defaultErrorRetryInterval        = 10
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultMetricsBind               = "127.0.0.1:9464"
	categoriesEnv                    = "ALLOWED_CATEGORIES"
	gcsBucketEnv                     = "VIDEOFLIX_GCS_BUCKET"
)

// KnownProfiles lists the rendition slots an asset can carry, in their
// canonical order.
var KnownProfiles = []string{"480p", "720p", "1080p"}

func defaultProfiles() []Profile {
	return []Profile{
		{Name: "480p", Size: "hd480"},
		{Name: "720p", Size: "hd720"},
		{Name: "1080p", Size: "hd1080"},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StorageDir: defaultStorageDir,
			WorkDir:    defaultWorkDir,
			LogDir:     defaultLogDir,
		},
		Storage: Storage{
			Backend: StorageLocal,
		},
		Encoder: Encoder{
			Binary:         defaultEncoderBinary,
			TimeoutSeconds: defaultEncoderTimeoutSeconds,
			VideoCodec:     defaultVideoCodec,
			CRF:            defaultCRF,
			AudioCodec:     defaultAudioCodec,
			ExtraArgs:      []string{"-strict", "-2"},
			Container:      defaultContainer,
		},
		Profiles: defaultProfiles(),
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Bind: defaultMetricsBind,
		},
	}
}
