package redis

import "time"

// Config holds the redis connection settings.
type Config struct {
	URL           string        `env:"REDIS_URL"`
	Prefix        string        `env:"REDIS_PREFIX" envDefault:"gatehouse"`
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout   time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout  time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	PoolSize      int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns  int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
}

// Enabled reports whether a redis URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}
