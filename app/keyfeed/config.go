package keyfeed

import (
	"time"

	"github.com/dmitrymomot/keyfeed/core/server"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Server server.Config

	AppName   string `env:"APP_NAME" envDefault:"keyfeed"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	// Empty uses the format of the APP_ENV preset.
	LogFormat string `env:"LOG_FORMAT"`

	// Zero keeps subscription queues unbounded.
	QueueLimit int    `env:"NOTIFY_QUEUE_LIMIT" envDefault:"0"`
	Overflow   string `env:"NOTIFY_OVERFLOW" envDefault:"drop_oldest"`
	Shards     int    `env:"NOTIFY_SHARDS" envDefault:"32"`

	SSEKeepAlive   time.Duration `env:"SSE_KEEPALIVE" envDefault:"15s"`
	SSERetry       time.Duration `env:"SSE_RETRY" envDefault:"0s"`
	SSEEventIDs    bool          `env:"SSE_EVENT_IDS" envDefault:"false"`
	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	BodyLimit      int64         `env:"BODY_LIMIT" envDefault:"65536"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`
	StatsInterval  time.Duration `env:"STATS_LOG_INTERVAL" envDefault:"0s"`
}
