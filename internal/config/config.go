// Package config loads service configuration in layers: built-in defaults,
// an optional YAML file, then environment variables (a .env file in the working
// directory is read into the environment first).
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Shortener ShortenerConfig `koanf:"shortener"`
	GeoIP     GeoIPConfig     `koanf:"geoip"`
	Enrich    EnrichConfig    `koanf:"enrich"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Stats     StatsConfig     `koanf:"stats"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	// CORSOrigins is a comma separated list.
	CORSOrigins string `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type ShortenerConfig struct {
	CodeLength  int `koanf:"code_length"`
	MaxAttempts int `koanf:"max_attempts"`
}

type GeoIPConfig struct {
	DBPath string `koanf:"db_path"`
}

type EnrichConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

type RateLimitConfig struct {
	RedirectRPS   float64 `koanf:"redirect_rps"`
	RedirectBurst int     `koanf:"redirect_burst"`
	APIRPS        float64 `koanf:"api_rps"`
	APIBurst      int     `koanf:"api_burst"`

	// TrustedProxies is a comma separated list of IPs or CIDRs. Requests whose
	// transport peer is listed are limited by the nearest untrusted
	// X-Forwarded-For hop instead of the peer. Empty, the default, keys every
	// request on its peer, so deployments behind a reverse proxy must set it or
	// all visitors share one bucket.
	TrustedProxies string `koanf:"trusted_proxies"`
}

type StatsConfig struct {
	// Timezone names the zone used to bucket clicks by day. Empty means server local time.
	Timezone string `koanf:"timezone"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
			CORSOrigins:  "http://localhost:5173,http://localhost:3000,http://localhost:8080",
		},
		Database: DatabaseConfig{MaxOpenConns: 20},
		Redis:    RedisConfig{TTL: 24 * time.Hour},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Shortener: ShortenerConfig{
			CodeLength:  6,
			MaxAttempts: 10,
		},
		GeoIP:  GeoIPConfig{DBPath: "GeoLite2-City.mmdb"},
		Enrich: EnrichConfig{Timeout: 200 * time.Millisecond},
		RateLimit: RateLimitConfig{
			RedirectRPS:   20,
			RedirectBurst: 40,
			APIRPS:        5,
			APIBurst:      20,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// envMappings maps environment variable names to config paths.
var envMappings = map[string]string{
	"http_addr":               "server.addr",
	"cors_origins":            "server.cors_origins",
	"database_dsn":            "database.dsn",
	"database_max_open_conns": "database.max_open_conns",
	"redis_addr":              "redis.addr",
	"redis_password":          "redis.password",
	"redis_db":                "redis.db",
	"redis_ttl":               "redis.ttl",
	"jwt_secret":              "auth.jwt_secret",
	"token_ttl":               "auth.token_ttl",
	"code_length":             "shortener.code_length",
	"code_max_attempts":       "shortener.max_attempts",
	"geoip_db_path":           "geoip.db_path",
	"enrich_timeout":          "enrich.timeout",
	"redirect_rps":            "ratelimit.redirect_rps",
	"redirect_burst":          "ratelimit.redirect_burst",
	"api_rps":                 "ratelimit.api_rps",
	"api_burst":               "ratelimit.api_burst",
	"trusted_proxies":         "ratelimit.trusted_proxies",
	"stats_timezone":          "stats.timezone",
	"log_level":               "log.level",
	"log_format":              "log.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds the configuration. Precedence: env > file > defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN not set")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET not set")
	}
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 32 {
		return fmt.Errorf("code length %d out of range 4..32", c.Shortener.CodeLength)
	}
	if c.Shortener.MaxAttempts < 1 {
		return errors.New("code max attempts must be positive")
	}
	if _, err := c.TrustedProxyList(); err != nil {
		return err
	}
	if c.Stats.Timezone != "" {
		if _, err := time.LoadLocation(c.Stats.Timezone); err != nil {
			return fmt.Errorf("stats timezone: %w", err)
		}
	}
	return nil
}

// StatsLocation returns the zone used for day bucketing.
func (c *Config) StatsLocation() *time.Location {
	if c.Stats.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.Server.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// TrustedProxyList parses RateLimit.TrustedProxies. Bare addresses become
// single-host networks.
func (c *Config) TrustedProxyList() ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, p := range strings.Split(c.RateLimit.TrustedProxies, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q is not an IP or CIDR", p)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
