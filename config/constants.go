package constants

import "time"

// Collaborator endpoints (relative to collaborator.base_url)
const (
	PROJECT_STATUS_PATH  = "/api/project/status"
	SYSTEM_METRICS_PATH  = "/api/system/metrics"
	CONTAINERS_PATH      = "/api/docker/containers"
	CONTAINER_STATS_PATH = "/api/docker/containers/stats"
	DATABASE_STATS_PATH  = "/api/database/stats"
)

// HTTP headers sent to the collaborator
const (
	HEADER_USER_AGENT = "nselfadmin/1.0.0"
	HEADER_ACCEPT     = "application/json, application/cbor"
)

// Default collaborator and push stream settings
const (
	DEFAULT_COLLABORATOR_URL     = "http://127.0.0.1:3021"
	DEFAULT_COLLABORATOR_TIMEOUT = 10 * time.Second
	DEFAULT_REALTIME_URL         = "ws://127.0.0.1:3021/api/realtime"
	DEFAULT_RECONNECT_INITIAL    = 1 * time.Second
	DEFAULT_RECONNECT_MAX        = 30 * time.Second
	DEFAULT_LISTEN_ADDR          = "127.0.0.1:9125"
)

// Source names
const (
	SOURCE_PROJECT         = "project"
	SOURCE_SYSTEM          = "system"
	SOURCE_CONTAINERS      = "containers"
	SOURCE_CONTAINER_STATS = "container_stats"
	SOURCE_DATABASE        = "database"
)

// Default polling intervals
const (
	DEFAULT_PROJECT_INTERVAL         = 10 * time.Second
	DEFAULT_SYSTEM_INTERVAL          = 5 * time.Second
	DEFAULT_CONTAINERS_INTERVAL      = 5 * time.Second
	DEFAULT_CONTAINER_STATS_INTERVAL = 10 * time.Second
	DEFAULT_DATABASE_INTERVAL        = 30 * time.Second
	DEFAULT_FETCH_TIMEOUT            = 15 * time.Second
)

// Runtime stats collection
const (
	PROVIDER_CLI    = "cli"
	PROVIDER_ENGINE = "engine"

	DEFAULT_RUNTIME_BINARY      = "docker"
	DEFAULT_STATS_CACHE_TTL     = 1 * time.Second
	DEFAULT_STORAGE_CAPACITY_GB = 50.0

	LIST_TIMEOUT  = 3 * time.Second
	DF_TIMEOUT    = 5 * time.Second
	STATS_TIMEOUT = 8 * time.Second
)

// OpenTelemetry export
const (
	OTLP_PATH             = "/v1/metrics"
	DEFAULT_OTEL_INTERVAL = 30 * time.Second
)

// File paths
const (
	CONFIG_DIR_NAME = "/.nselfadmin"
	PID_FILE        = "/tmp/nselfadmin.pid"
	LOG_FILE        = "/tmp/nselfadmin.log"
)
