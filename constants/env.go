package constants

const (
	EnvLogLevel = "MLLD_LOG_LEVEL"
	EnvDebug    = "MLLD_DEBUG"
	EnvNoStream = "MLLD_NO_STREAM"
	EnvRegistry = "MLLD_REGISTRY"
)
