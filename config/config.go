// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	MongoURI        string        `envconfig:"MONGODB_URI" required:"true" validate:"required"`
	MongoDatabase   string        `envconfig:"MONGODB_DATABASE" default:"library" validate:"required"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true" validate:"min=16"`
	JWTTTL          time.Duration `envconfig:"JWT_TTL" default:"720h" validate:"min=1m"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	GinMode         string        `envconfig:"GIN_MODE" default:"debug" validate:"oneof=debug release test"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5500"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"60" validate:"gt=0"`
	RateWindow      time.Duration `envconfig:"RATE_WINDOW" default:"1m" validate:"min=1s"`
	DBTimeout       time.Duration `envconfig:"DB_TIMEOUT" default:"10s" validate:"min=100ms"`
	MetricsEnabled  bool          `envconfig:"METRICS_ENABLED" default:"true"`
	WSSendBuffer    int           `envconfig:"WS_SEND_BUFFER" default:"256" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads envFile (when it exists) into the environment and then
// processes and validates Config. Variables already set win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
