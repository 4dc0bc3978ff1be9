package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Tienda"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tienda"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET" default:""`
		// Sales created without an authenticated actor are attributed
		// to this seller account.
		DefaultSellerID uuid.UUID `envconfig:"DEFAULT_SELLER_ID" default:"00000000-0000-0000-0000-000000000001"`
	}

	Void struct {
		WindowHours  int `envconfig:"VOID_WINDOW_HOURS" default:"24"`
		MinReasonLen int `envconfig:"VOID_MIN_REASON_LEN" default:"5"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// VoidWindow returns the void window as a duration. The window is exact
// elapsed time since the sale was created, not calendar days.
func (c *Config) VoidWindow() time.Duration {
	return time.Duration(c.Void.WindowHours) * time.Hour
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
