package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config — всё, что читается из окружения при старте
type Config struct {
	Port    string `env:"APP_PORT" env-default:"8080"`
	BaseURL string `env:"APP_BASE_URL" env-default:"http://localhost:8080"`

	DB      DB
	Storage Storage
	Session Session
	Log     Log

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:8080,http://localhost:8082,http://127.0.0.1:8080"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s"`

	DefaultAdminUsername string `env:"DEFAULT_ADMIN_USERNAME" env-default:"admin"`
	DefaultAdminPassword string `env:"DEFAULT_ADMIN_PASSWORD" env-default:"admin123"`
}

type DB struct {
	Driver string `env:"DB_DRIVER" env-default:"postgres"`
	DSN    string `env:"DB_DSN"`
	Debug  bool   `env:"DB_DEBUG" env-default:"false"`
}

// Storage — где лежат загруженные картинки и по какому URL они раздаются
type Storage struct {
	LocalPath       string        `env:"STORAGE_LOCAL_PATH" env-default:"./images"`
	URLPath         string        `env:"STORAGE_URL_PATH" env-default:"/images"`
	FetchTimeout    time.Duration `env:"IMAGE_FETCH_TIMEOUT" env-default:"10s"`
	MaxImageBytes   int64         `env:"IMAGE_MAX_BYTES" env-default:"10485760"`
	UploadMaxMemory int64         `env:"UPLOAD_MAX_MEMORY" env-default:"33554432"`
}

type Session struct {
	Secret            string `env:"SESSION_SECRET" env-default:"dev_fallback_secret"`
	AdminAuthRequired bool   `env:"ADMIN_AUTH_REQUIRED" env-default:"false"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"console"`
}

// Load грузит .env (текущая папка, родительская, корень репо) и читает окружение
func Load() (*Config, error) {
	_ = godotenv.Overload(".env", "../.env", "../../.env")

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Storage.URLPath = "/" + strings.Trim(strings.TrimSpace(c.Storage.URLPath), "/")

	switch strings.ToLower(c.DB.Driver) {
	case "postgres":
		c.DB.Driver = "postgres"
		if c.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is empty (check your .env)")
		}
	case "sqlite":
		c.DB.Driver = "sqlite"
		if c.DB.DSN == "" {
			c.DB.DSN = "flowershop.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	if c.Storage.FetchTimeout <= 0 {
		return fmt.Errorf("IMAGE_FETCH_TIMEOUT must be positive")
	}
	if c.Storage.MaxImageBytes <= 0 {
		return fmt.Errorf("IMAGE_MAX_BYTES must be positive")
	}

	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
	return nil
}

// FileExists — helper для проверки наличия файла
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
