// Package config loads the settings of the redisrpc command.
package config

import (
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/mrjvadi/go-redis-rpc/rpc"
)

// EnvPrefix prefixes every environment variable, e.g. REDISRPC_REDIS_ADDR.
const EnvPrefix = "REDISRPC"

type Config struct {
	Redis RedisConfig `mapstructure:"redis"`
	RPC   RPCConfig   `mapstructure:"rpc"`
	Log   LogConfig   `mapstructure:"log"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	// PoolSize caps the client's connections; 0 keeps the go-redis default.
	// Every waiting Send holds one connection.
	PoolSize int `mapstructure:"pool_size"`
}

type RPCConfig struct {
	Prefix    string `mapstructure:"prefix"`
	DisableGC bool   `mapstructure:"disable_gc"`
	// Timeout is the default for calls made by the command.
	Timeout     time.Duration `mapstructure:"timeout"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

type LogConfig struct {
	Dev bool `mapstructure:"dev"`
}

// New returns a viper instance carrying the defaults and reading
// REDISRPC_* variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.pool_size", 0)
	v.SetDefault("rpc.prefix", rpc.DefaultPrefix)
	v.SetDefault("rpc.disable_gc", false)
	v.SetDefault("rpc.timeout", rpc.DefaultTimeout)
	v.SetDefault("rpc.poll_timeout", 5*time.Second)
	v.SetDefault("log.dev", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file, if given, into v and decodes the result. Flags bound to
// v take precedence over env, env over the file.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapIfWithDetails(err, "read config", "path", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return errors.NewPlain("redis.addr is empty")
	}
	if c.Redis.PoolSize < 0 {
		return errors.Errorf("redis.pool_size must not be negative, got %d", c.Redis.PoolSize)
	}
	if c.RPC.Timeout < 0 {
		return errors.Errorf("rpc.timeout must not be negative, got %s", c.RPC.Timeout)
	}
	if c.RPC.PollTimeout < 0 {
		return errors.Errorf("rpc.poll_timeout must not be negative, got %s", c.RPC.PollTimeout)
	}
	return nil
}

// RedisOptions builds the client options. Reads carry no deadline so that
// indefinite BLPOPs are not cut short.
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:        c.Redis.Addr,
		DB:          c.Redis.DB,
		Password:    c.Redis.Password,
		PoolSize:    c.Redis.PoolSize,
		ReadTimeout: -1,
	}
}

// Options maps the rpc section onto rpc options.
func (c *Config) Options() []rpc.Option {
	return []rpc.Option{
		rpc.WithPrefix(c.RPC.Prefix),
		rpc.WithDisableGC(c.RPC.DisableGC),
		rpc.WithPollTimeout(c.RPC.PollTimeout),
	}
}
