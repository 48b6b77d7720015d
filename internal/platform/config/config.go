package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	DefaultPageSize    = 30
	DefaultProjectType = "default"
)

type Config struct {
	VaultPath   string `yaml:"-"`
	DBPath      string `yaml:"db_path"`
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	RemoteURL   string `yaml:"remote_url"`
	UserID      string `yaml:"user_id"`
	ProjectType string `yaml:"project_type"`
	PageSize    int    `yaml:"page_size"`
	LogLevel    string `yaml:"log_level"`
	ListenAddr  string `yaml:"listen_addr"`
}

// Path returns the location of the optional config file inside a vault.
func Path(vaultPath string) string {
	return filepath.Join(vaultPath, ".worktrack", "config.yaml")
}

func New(vaultPath string) (Config, error) {
	if vaultPath == "" {
		return Config{}, fmt.Errorf("vault path is required")
	}
	return Config{
		VaultPath:   vaultPath,
		DBPath:      filepath.Join(vaultPath, ".worktrack", "worktrack.db"),
		Driver:      DriverSQLite,
		ProjectType: DefaultProjectType,
		PageSize:    DefaultPageSize,
		LogLevel:    "info",
		ListenAddr:  ":8080",
	}, nil
}

// Load layers defaults, the vault config file and WORKTRACK_* environment
// variables, in that order.
func Load(vaultPath string) (Config, error) {
	cfg, err := New(vaultPath)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.mergeFile(Path(vaultPath)); err != nil {
		return Config{}, err
	}
	cfg.mergeEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	file := Config{}
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	if file.DBPath != "" {
		c.DBPath = file.DBPath
	}
	c.Driver = firstNonEmpty(file.Driver, c.Driver)
	c.DSN = firstNonEmpty(file.DSN, c.DSN)
	c.RemoteURL = firstNonEmpty(file.RemoteURL, c.RemoteURL)
	c.UserID = firstNonEmpty(file.UserID, c.UserID)
	c.ProjectType = firstNonEmpty(file.ProjectType, c.ProjectType)
	c.LogLevel = firstNonEmpty(file.LogLevel, c.LogLevel)
	c.ListenAddr = firstNonEmpty(file.ListenAddr, c.ListenAddr)
	if file.PageSize != 0 {
		c.PageSize = file.PageSize
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.DBPath = envStr("WORKTRACK_DB_PATH", c.DBPath)
	c.Driver = envStr("WORKTRACK_DRIVER", c.Driver)
	c.DSN = envStr("WORKTRACK_DSN", c.DSN)
	c.RemoteURL = envStr("WORKTRACK_REMOTE_URL", c.RemoteURL)
	c.UserID = envStr("WORKTRACK_USER", c.UserID)
	c.ProjectType = envStr("WORKTRACK_PROJECT", c.ProjectType)
	c.PageSize = envInt("WORKTRACK_PAGE_SIZE", c.PageSize)
	c.LogLevel = envStr("WORKTRACK_LOG_LEVEL", c.LogLevel)
	c.ListenAddr = envStr("WORKTRACK_LISTEN_ADDR", c.ListenAddr)
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.DSN == "" && c.DBPath == "" {
			return fmt.Errorf("db path is required for sqlite")
		}
	case DriverMySQL:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for mysql")
		}
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if strings.TrimSpace(c.ProjectType) == "" {
		return fmt.Errorf("project type is required")
	}
	return nil
}

// DataSource returns the driver-specific connection string.
func (c Config) DataSource() string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.DBPath
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
