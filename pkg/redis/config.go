package redis

import "time"

// Config holds the Redis connection settings, read from REDIS_*
// environment variables.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"quotakit:wallet:"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
