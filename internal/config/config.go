package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App        AppConfig        `toml:"app"`
	Auth       AuthConfig       `toml:"auth"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	RabbitMQ   RabbitMQConfig   `toml:"rabbitmq"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	Firewall   FirewallConfig   `toml:"firewall"`
}

type AppConfig struct {
	Name       string `toml:"name"`
	Env        string `toml:"env"`
	GinMode    string `toml:"gin_mode"`
	ClientHost string `toml:"client_host"`
	ClientPort int    `toml:"client_port"`
	DBHost     string `toml:"db_host"`
	DBPort     int    `toml:"db_port"`
}

type AuthConfig struct {
	Secret          string `toml:"secret"`
	TokenTTLSeconds int    `toml:"token_ttl_seconds"`
	SeedAdminUser   string `toml:"seed_admin_user"`
	SeedAdminPass   string `toml:"seed_admin_pass"`
}

// DatabaseConfig selects the storage backend. Driver "sqlite" keeps the
// whole hub self-contained on disk; "mysql" points it at an external server.
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
}

// RedisConfig backs the shared token denylist. An empty Addr disables redis
// and each server process falls back to an in-memory denylist.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RabbitMQConfig drives the ingestion audit trail. An empty URL disables it.
type RabbitMQConfig struct {
	URL              string `toml:"url"`
	IngestAuditQueue string `toml:"ingest_audit_queue"`
}

type SupervisorConfig struct {
	StateDir        string `toml:"state_dir"`
	ReadyTimeoutSec int    `toml:"ready_timeout_sec"`
	StopGraceSec    int    `toml:"stop_grace_sec"`
	LockTimeoutSec  int    `toml:"lock_timeout_sec"`
}

type FirewallConfig struct {
	UseSudo bool `toml:"use_sudo"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("SVH_CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) ClientAddr() string {
	return fmt.Sprintf("%s:%d", c.App.ClientHost, c.App.ClientPort)
}

func (c *Config) DBAddr() string {
	return fmt.Sprintf("%s:%d", c.App.DBHost, c.App.DBPort)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DB,
		c.Database.Params,
	)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:       "svh",
			Env:        "dev",
			GinMode:    "release",
			ClientHost: "127.0.0.1",
			ClientPort: 8000,
			DBHost:     "127.0.0.1",
			DBPort:     8001,
		},
		Auth: AuthConfig{
			Secret:          "dev-change-me",
			TokenTTLSeconds: 3600,
			SeedAdminUser:   "admin",
			SeedAdminPass:   "admin",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(defaultStateDir(), "svh.db"),
			Host:   "127.0.0.1",
			Port:   3306,
			User:   "root",
			DB:     "svh",
			Params: "parseTime=true&loc=Local&charset=utf8mb4",
		},
		RabbitMQ: RabbitMQConfig{
			IngestAuditQueue: "svh.ingest.audit",
		},
		Supervisor: SupervisorConfig{
			StateDir:        defaultStateDir(),
			ReadyTimeoutSec: 10,
			StopGraceSec:    5,
			LockTimeoutSec:  5,
		},
		Firewall: FirewallConfig{
			UseSudo: true,
		},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".svh"
	}
	return filepath.Join(home, ".svh")
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("SVH_APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("SVH_APP_ENV", cfg.App.Env)
	cfg.App.GinMode = getEnv("SVH_GIN_MODE", cfg.App.GinMode)
	cfg.App.ClientHost = getEnv("SVH_CLIENT_HOST", cfg.App.ClientHost)
	cfg.App.ClientPort = getEnvAsInt("SVH_CLIENT_PORT", cfg.App.ClientPort)
	cfg.App.DBHost = getEnv("SVH_DB_HOST", cfg.App.DBHost)
	cfg.App.DBPort = getEnvAsInt("SVH_DB_PORT", cfg.App.DBPort)

	cfg.Auth.Secret = getEnv("SVH_AUTH_SECRET", cfg.Auth.Secret)
	cfg.Auth.TokenTTLSeconds = getEnvAsInt("SVH_TOKEN_TTL_SECONDS", cfg.Auth.TokenTTLSeconds)
	cfg.Auth.SeedAdminUser = getEnv("SVH_SEED_ADMIN_USER", cfg.Auth.SeedAdminUser)
	cfg.Auth.SeedAdminPass = getEnv("SVH_SEED_ADMIN_PASS", cfg.Auth.SeedAdminPass)

	cfg.Database.Driver = getEnv("SVH_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Path = getEnv("SVH_SQLITE_PATH", cfg.Database.Path)
	cfg.Database.Host = getEnv("SVH_MYSQL_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("SVH_MYSQL_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("SVH_MYSQL_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("SVH_MYSQL_PASSWORD", cfg.Database.Password)
	cfg.Database.DB = getEnv("SVH_MYSQL_DB", cfg.Database.DB)
	cfg.Database.Params = getEnv("SVH_MYSQL_PARAMS", cfg.Database.Params)

	cfg.Redis.Addr = getEnv("SVH_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("SVH_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("SVH_REDIS_DB", cfg.Redis.DB)

	cfg.RabbitMQ.URL = getEnv("SVH_RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.IngestAuditQueue = getEnv("SVH_INGEST_AUDIT_QUEUE", cfg.RabbitMQ.IngestAuditQueue)

	cfg.Supervisor.StateDir = getEnv("SVH_STATE_DIR", cfg.Supervisor.StateDir)
	cfg.Supervisor.ReadyTimeoutSec = getEnvAsInt("SVH_READY_TIMEOUT_SEC", cfg.Supervisor.ReadyTimeoutSec)
	cfg.Supervisor.StopGraceSec = getEnvAsInt("SVH_STOP_GRACE_SEC", cfg.Supervisor.StopGraceSec)
	cfg.Supervisor.LockTimeoutSec = getEnvAsInt("SVH_LOCK_TIMEOUT_SEC", cfg.Supervisor.LockTimeoutSec)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
