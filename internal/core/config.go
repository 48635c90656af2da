package core

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort            = 3000
	DefaultHost            = "0.0.0.0"
	DefaultDatabaseURL     = "file:./dev.db"
	DefaultCORSOrigin      = "*"
	DefaultMaxFileSizeMB   = 10
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 10 * time.Second
)

// ServiceConfig is loaded once at startup and treated as read-only afterwards.
type ServiceConfig struct {
	Port            int           `yaml:"port" env:"PORT" validate:"gt=0,lte=65535"`
	Host            string        `yaml:"host" env:"HOST" validate:"required"`
	DatabaseURL     string        `yaml:"databaseUrl" env:"DATABASE_URL" validate:"required"`
	CORSOrigin      string        `yaml:"corsOrigin" env:"CORS_ORIGIN" validate:"required"`
	MaxFileSizeMB   float64       `yaml:"maxFileSizeMb" env:"MAX_FILE_SIZE_MB" validate:"gt=0"`
	LogLevel        string        `yaml:"logLevel" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:            DefaultPort,
		Host:            DefaultHost,
		DatabaseURL:     DefaultDatabaseURL,
		CORSOrigin:      DefaultCORSOrigin,
		MaxFileSizeMB:   DefaultMaxFileSizeMB,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file named
// by CONFIG_PATH, a .env file in the working directory and finally the process
// environment, in increasing order of precedence.
func LoadConfig() (*ServiceConfig, error) {
	// .env never overrides variables that are already set
	_ = godotenv.Load()

	config := DefaultConfig()
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		if err := config.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnvironment(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ServiceConfig) loadFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return nil
}

func (c *ServiceConfig) applyEnvironment(lookup func(string) (string, bool)) error {
	var errs []error

	if value, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT must be a positive integer, got %q", value))
		} else {
			c.Port = port
		}
	}
	if value, ok := lookup("HOST"); ok {
		c.Host = value
	}
	if value, ok := lookup("DATABASE_URL"); ok {
		c.DatabaseURL = value
	}
	if value, ok := lookup("CORS_ORIGIN"); ok {
		c.CORSOrigin = value
	}
	if value, ok := lookup("MAX_FILE_SIZE_MB"); ok {
		size, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsInf(size, 0) || math.IsNaN(size) {
			errs = append(errs, fmt.Errorf("MAX_FILE_SIZE_MB must be a positive number, got %q", value))
		} else {
			c.MaxFileSizeMB = size
		}
	}
	if value, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(strings.TrimSpace(value))
	}
	if value, ok := lookup("SHUTDOWN_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be a duration, got %q", value))
		} else {
			c.ShutdownTimeout = timeout
		}
	}

	return errors.Join(errs...)
}

// Validate reports every invalid field, named by its environment variable.
func (c *ServiceConfig) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("env")
	})

	err := validate.Struct(c)
	if err == nil {
		if len(c.CORSOrigins()) == 0 {
			return errors.New("invalid configuration: CORS_ORIGIN must name at least one origin")
		}
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		if fieldErr.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s failed %s=%s", fieldErr.Field(), fieldErr.Tag(), fieldErr.Param()))
		} else {
			messages = append(messages, fmt.Sprintf("%s failed %s", fieldErr.Field(), fieldErr.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

// Address is the host:port pair the HTTP server listens on.
func (c *ServiceConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServiceConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB * 1024 * 1024)
}

// CORSOrigins expands CORSOrigin into the allow-list; "*" allows every origin.
func (c *ServiceConfig) CORSOrigins() []string {
	if strings.TrimSpace(c.CORSOrigin) == "*" {
		return []string{"*"}
	}

	origins := make([]string, 0)
	for _, origin := range strings.Split(c.CORSOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
