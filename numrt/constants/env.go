package constant

// Environment variable names read by numrt.
const (
	// EnvMode selects whether assertions are enforced (Debug/Asserts) or not.
	EnvMode = "MODE"
	// EnvEnvironment selects the logger profile: production, development or local.
	EnvEnvironment = "NUMRT_ENV"
	// EnvLogLevel overrides the logger level.
	EnvLogLevel = "NUMRT_LOG_LEVEL"
	// EnvRedisAddr is the address of the Redis instance backing resource claims.
	EnvRedisAddr = "NUMRT_REDIS_ADDR"
	// EnvWorkers sets the worker count of the shared-memory core.
	EnvWorkers = "NUMRT_WORKERS"
)
