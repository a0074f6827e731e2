package config

const (
	defaultDataDir           = "~/.local/share/clipforge"
	defaultLogDir            = "~/.local/share/clipforge/logs"
	defaultAPIBind           = "127.0.0.1:7519"
	defaultWorkers           = 2
	defaultQueuePollInterval = 2
	defaultLeaseSeconds      = 300
	defaultReclaimInterval   = 30
	defaultOrchestrationTopN = 3
	defaultEnqueueRender     = true
	defaultMinSpeechDensity  = 0.35
	defaultMaxSilencePenalty = 0.60
	defaultTargetDurationSec = 20
	defaultRenderProfile     = "vertical-1080"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Workflow: Workflow{
			Workers:                defaultWorkers,
			QueuePollInterval:      defaultQueuePollInterval,
			LeaseSeconds:           defaultLeaseSeconds,
			ReclaimInterval:        defaultReclaimInterval,
			OrchestrationTopN:      defaultOrchestrationTopN,
			EnqueueRenderByDefault: defaultEnqueueRender,
		},
		Scoring: Scoring{
			MinSpeechDensity:  defaultMinSpeechDensity,
			MaxSilencePenalty: defaultMaxSilencePenalty,
			TargetDurationSec: defaultTargetDurationSec,
		},
		Render: Render{
			Profile: defaultRenderProfile,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
