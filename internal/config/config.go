package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"buyScope/internal/model"
)

const envPrefix = "BUYSCOPE"

// RedisConfig holds the shared redis connection used by the redis dedupe
// backend and the redis price source.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Pools             string
	PgDSN             string
	Token             model.Token
	Threshold         float64
	WhaleThreshold    float64
	DedupeBackend     string
	DedupeCapacity    int
	DedupeTTL         time.Duration
	Redis             RedisConfig
	PriceSource       string
	Price             float64
	PriceMaxAge       time.Duration
	RPC               map[uint64]string
	EnrichTimeout     time.Duration
	EnrichConcurrency int
	DecodeWorkers     int
	MaxRetries        int
	RetryBackoff      time.Duration
	Out               string
	NotifyWebhook     string
	MetricsAddr       string
	LogLevel          string
}

// Load merges .env, config file, environment variables, and flags into
// Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overriding ones already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := LoadDotEnv(""); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("token-symbol", "TOKEN")
	v.SetDefault("token-decimals", 18)
	v.SetDefault("threshold", 0.0)
	v.SetDefault("whale-threshold", 0.0)
	v.SetDefault("dedupe-backend", "memory")
	v.SetDefault("dedupe-capacity", 10000)
	v.SetDefault("dedupe-ttl", 24*time.Hour)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-db", 0)
	v.SetDefault("price-source", "static")
	v.SetDefault("price-max-age", 10*time.Minute)
	v.SetDefault("enrich-timeout", 5*time.Second)
	v.SetDefault("enrich-concurrency", 8)
	v.SetDefault("decode-workers", 4)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("out", "-")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	tokenAddrs, err := ParseChainMap(getStringMap(v, "token-address"))
	if err != nil {
		return Config{}, fmt.Errorf("token-address: %w", err)
	}
	rpc, err := ParseChainMap(getStringMap(v, "rpc"))
	if err != nil {
		return Config{}, fmt.Errorf("rpc: %w", err)
	}
	decimals := v.GetInt("token-decimals")
	if decimals < 0 || decimals > 77 {
		return Config{}, fmt.Errorf("token-decimals out of range: %d", decimals)
	}

	cfg := Config{
		Pools: v.GetString("pools"),
		PgDSN: v.GetString("pg-dsn"),
		Token: model.Token{
			Symbol:    strings.ToUpper(v.GetString("token-symbol")),
			Decimals:  uint8(decimals),
			Addresses: tokenAddrs,
		},
		Threshold:      v.GetFloat64("threshold"),
		WhaleThreshold: v.GetFloat64("whale-threshold"),
		DedupeBackend:  strings.ToLower(v.GetString("dedupe-backend")),
		DedupeCapacity: v.GetInt("dedupe-capacity"),
		DedupeTTL:      v.GetDuration("dedupe-ttl"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
		},
		PriceSource:       strings.ToLower(v.GetString("price-source")),
		Price:             v.GetFloat64("price"),
		PriceMaxAge:       v.GetDuration("price-max-age"),
		RPC:               rpc,
		EnrichTimeout:     v.GetDuration("enrich-timeout"),
		EnrichConcurrency: v.GetInt("enrich-concurrency"),
		DecodeWorkers:     v.GetInt("decode-workers"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Out:               v.GetString("out"),
		NotifyWebhook:     v.GetString("notify-webhook"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.WhaleThreshold < 0 {
		return fmt.Errorf("thresholds must not be negative")
	}
	switch c.DedupeBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown dedupe-backend %q", c.DedupeBackend)
	}
	switch c.PriceSource {
	case "static", "redis", "none":
	default:
		return fmt.Errorf("unknown price-source %q", c.PriceSource)
	}
	return nil
}

// ParseChainMap converts chainID=value pairs into a map keyed by chain ID.
func ParseChainMap(in map[string]string) (map[uint64]string, error) {
	out := make(map[uint64]string, len(in))
	for key, value := range in {
		id, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", key)
		}
		out[id] = strings.TrimSpace(value)
	}
	return out, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return parseStringMap(strings.Join(items, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	input = strings.Trim(strings.TrimSpace(input), "[]")
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
