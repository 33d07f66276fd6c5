package constants

// Settings document defaults
const (
	DEFAULT_DASHBOARD_REFRESH_MS = 1000 // sampling cadence
	DEFAULT_HISTORY_REFRESH_MS   = 2000 // chart refresh cadence
	DEFAULT_RETENTION_DAYS       = 7
	DEFAULT_FULLSCREEN           = true
	DEFAULT_RETENTION_CHECK_MIN  = 24 * 60 // once per day
	DEFAULT_NETINFO_TIMEOUT_MS   = 1500
)

// Validation limits
const (
	MIN_RETENTION_DAYS     = 1
	MAX_RETENTION_DAYS     = 365
	MIN_SAMPLE_INTERVAL_MS = 250
	MIN_REFRESH_MS         = 500
	MIN_NETINFO_TIMEOUT_MS = 100
)

// Nominal cadence assumed by row-count history ranges
const NOMINAL_SAMPLE_PERIOD_SEC = 1

// File paths
const (
	SETTINGS_DIR_NAME  = "touchui" // under $HOME
	SETTINGS_FILE_NAME = "settings.json"
	DB_FILE_NAME       = "metrics.db"
	EXPORTS_DIR_NAME   = "exports"
	LOG_FILE           = "/tmp/touchmon.log"
	SNAPSHOT_FILE      = "/tmp/touchmon_snapshot.cbor"
	PID_FILE_NAME      = "touchmon.pid"
)

// Environment
const (
	ENV_PREFIX     = "TOUCHMON"
	ENV_STDERR_LOG = "TOUCHMON_STDERR_LOG"
	ENV_LOG_LEVEL  = "TOUCHMON_LOG_LEVEL"
)

// Snapshot file freshness
const SNAPSHOT_MAX_AGE_SEC = 30

// Network info lookup cadence, checked on each chart refresh
const NETINFO_REFRESH_SEC = 5
