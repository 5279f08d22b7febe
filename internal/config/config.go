package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds runtime settings for the conversation service.
type Config struct {
	Port        string `yaml:"port"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// StoreBackend is "postgres" or "memory". Empty selects postgres when a DSN is set.
	StoreBackend string `yaml:"store_backend"`
	DBDSN        string `yaml:"db_dsn"`

	AuthGRPCAddr string `yaml:"auth_grpc_addr"`
	UserGRPCAddr string `yaml:"user_grpc_addr"`

	AMQPURL         string `yaml:"amqp_url"`
	AMQPExchange    string `yaml:"amqp_exchange"`
	AuditRoutingKey string `yaml:"audit_routing_key"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
	DebugRoutes  bool   `yaml:"debug_routes"`
}

func defaults() Config {
	return Config{
		Port:            "8083",
		ServiceName:     "conversation-service",
		Environment:     "development",
		LogLevel:        "info",
		AMQPExchange:    "chat.events",
		AuditRoutingKey: "audit.conversation",
	}
}

// Load builds the configuration from an optional .env file, an optional YAML
// file named by CONFIG_FILE, and environment variables, in increasing priority.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.DBDSN = getEnv("DB_DSN", cfg.DBDSN)
	cfg.AuthGRPCAddr = getEnv("AUTH_GRPC_ADDR", cfg.AuthGRPCAddr)
	cfg.UserGRPCAddr = getEnv("USER_GRPC_ADDR", cfg.UserGRPCAddr)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AuditRoutingKey = getEnv("AUDIT_ROUTING_KEY", cfg.AuditRoutingKey)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	if val, ok := os.LookupEnv("DEBUG_ROUTES"); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			cfg.DebugRoutes = parsed
		}
	}

	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreMemory
		if cfg.DBDSN != "" {
			cfg.StoreBackend = StorePostgres
		}
	}
}

// Validate reports configuration that cannot start a server.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port is required")
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DBDSN == "" {
			return errors.New("db_dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
