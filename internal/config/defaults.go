package config

const (
	defaultProjectsRoot      = "~/.local/share/mediasync/projects"
	defaultSourcesParentRoot = "/mnt/media-sources"
	defaultCacheRoot         = "~/.local/share/mediasync/cache"
	defaultLogDir            = "~/.local/share/mediasync/logs"

	defaultReconcileInterval = 60

	defaultOrientationCRF          = 18
	defaultOrientationFastPreset   = "veryfast"
	defaultOrientationSafePreset   = "medium"
	defaultOrientationFastTimeout  = 600
	defaultOrientationTimeout      = 3600
	defaultOrientationProbeTimeout = 15
	defaultOrientationMinBytes     = 1024
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"

	defaultBucketMaxDepth   = 6
	defaultBucketMinFiles   = 3
	defaultBucketOverlap    = 0.9
	defaultBucketMax        = 24
	defaultBucketRanking    = RankingCountFirst
	defaultStageScanDepth   = 6
	defaultStageScanMin     = 1
	defaultStageScanTTLMins = 60

	defaultDeriveLockTTL = 120

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Ranking policies for bucket discovery. The two orderings collapse ambiguous
// trees differently; count-first prefers larger clusters.
const (
	RankingCountFirst = "count_first"
	RankingDepthFirst = "depth_first"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectsRoot:      defaultProjectsRoot,
			SourcesParentRoot: defaultSourcesParentRoot,
			CacheRoot:         defaultCacheRoot,
			LogDir:            defaultLogDir,
		},
		Reconcile: Reconcile{
			AutoEnabled: true,
			Interval:    defaultReconcileInterval,
		},
		Orientation: Orientation{
			Enabled:        true,
			CRF:            defaultOrientationCRF,
			FastPreset:     defaultOrientationFastPreset,
			SafePreset:     defaultOrientationSafePreset,
			FastTimeout:    defaultOrientationFastTimeout,
			Timeout:        defaultOrientationTimeout,
			ProbeTimeout:   defaultOrientationProbeTimeout,
			MinOutputBytes: defaultOrientationMinBytes,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
		},
		Buckets: Buckets{
			MaxDepth:         defaultBucketMaxDepth,
			MinFiles:         defaultBucketMinFiles,
			OverlapThreshold: defaultBucketOverlap,
			MaxBuckets:       defaultBucketMax,
			Ranking:          defaultBucketRanking,
		},
		StageScan: StageScan{
			MaxDepth:   defaultStageScanDepth,
			MinFiles:   defaultStageScanMin,
			TTLMinutes: defaultStageScanTTLMins,
		},
		Derive: Derive{
			LockTTL: defaultDeriveLockTTL,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
