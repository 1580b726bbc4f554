// Package redis provides Redis client configuration options.
package redis

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/abhyasam/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// redactedPassword is the placeholder used when printing passwords.
const redactedPassword = "[REDACTED]"

// Options defines configuration options for Redis.
type Options struct {
	// Enabled toggles the Redis-backed session store. When false the service
	// falls back to in-memory sessions.
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	Password     string        `json:"-" mapstructure:"password"`
	Database     int           `json:"database" mapstructure:"database"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	PoolSize     int           `json:"pool-size" mapstructure:"pool-size"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
}

// String returns a string representation with password redacted.
// Safe for logging and debugging.
func (o *Options) String() string {
	password := redactedPassword
	if o.Password == "" {
		password = ""
	}
	return fmt.Sprintf("Redis{host=%s, port=%d, password=%s, database=%d}",
		o.Host, o.Port, password, o.Database)
}

// Addr returns the host:port address for the client.
func (o *Options) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Enabled:      false,
		Host:         "127.0.0.1",
		Port:         6379,
		Database:     0,
		MaxRetries:   3,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	// 如果 CLI 参数为空，从环境变量读取
	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	}

	var errs []error
	if o.Enabled {
		if o.Host == "" {
			errs = append(errs, fmt.Errorf("redis host is required"))
		}
		if o.Port <= 0 || o.Port > 65535 {
			errs = append(errs, fmt.Errorf("redis port must be in (0, 65535]"))
		}
	}
	return errs
}

// AddFlags adds flags for Redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"redis.enabled", o.Enabled, "Use Redis for session storage")
	fs.StringVar(&o.Host, p+"redis.host", o.Host, "Redis host")
	fs.IntVar(&o.Port, p+"redis.port", o.Port, "Redis port")
	fs.StringVar(&o.Password, p+"redis.password", o.Password, "Redis password (prefer REDIS_PASSWORD env var)")
	fs.IntVar(&o.Database, p+"redis.database", o.Database, "Redis database")
	fs.IntVar(&o.MaxRetries, p+"redis.max-retries", o.MaxRetries, "Redis max retries")
	fs.IntVar(&o.PoolSize, p+"redis.pool-size", o.PoolSize, "Redis pool size")
	fs.DurationVar(&o.DialTimeout, p+"redis.dial-timeout", o.DialTimeout, "Redis dial timeout")
	fs.DurationVar(&o.ReadTimeout, p+"redis.read-timeout", o.ReadTimeout, "Redis read timeout")
	fs.DurationVar(&o.WriteTimeout, p+"redis.write-timeout", o.WriteTimeout, "Redis write timeout")
}
