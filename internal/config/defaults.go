package config

// Remote backend identifiers.
const (
	RemoteBackendFolder = "folder"
	RemoteBackendS3     = "s3"
)

const (
	defaultInboxDir = "~/.local/share/bindery/inbox"
	defaultCacheDir = "~/.local/share/bindery/cache"
	defaultLogDir   = "~/.local/share/bindery/logs"
	defaultAPIBind  = "127.0.0.1:7519"

	defaultBookTitle           = "Bindery Book"
	defaultMaxChunkSizeBytes   = 15 * 1024 * 1024
	defaultCompressionLevel    = "medium"
	defaultSafetyMarginPercent = 5

	defaultRemoteBackend = RemoteBackendFolder
	defaultRemoteDir     = "~/.local/share/bindery/remote"

	defaultOptimizerTickMS    = 150
	defaultPlannerTickMS      = 500
	defaultSyncTickMS         = 1500
	defaultErrorRetrySeconds  = 5
	defaultUploadAttempts     = 3
	defaultInboxSettleSeconds = 2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir: defaultInboxDir,
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Book: Book{
			Title:               defaultBookTitle,
			MaxChunkSizeBytes:   defaultMaxChunkSizeBytes,
			CompressionLevel:    defaultCompressionLevel,
			SafetyMarginPercent: defaultSafetyMarginPercent,
		},
		Remote: Remote{
			Backend: defaultRemoteBackend,
			Dir:     defaultRemoteDir,
		},
		Workflow: Workflow{
			OptimizerTickMS:    defaultOptimizerTickMS,
			PlannerTickMS:      defaultPlannerTickMS,
			SyncTickMS:         defaultSyncTickMS,
			ErrorRetrySeconds:  defaultErrorRetrySeconds,
			UploadAttempts:     defaultUploadAttempts,
			InboxSettleSeconds: defaultInboxSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
