package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Scan     ScanConfig
	Mapping  MappingConfig
	Database DatabaseConfig
	Neo4j    Neo4jConfig
	Valkey   ValkeyConfig
	MinIO    MinIOConfig
	S3       S3Config
	Auth     AuthConfig
	Worker   WorkerConfig
	MCP      MCPConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	MaxBodyBytes int64
}

type ScanConfig struct {
	Workers      int    // SCAN_WORKERS, 0 = GOMAXPROCS
	MaxUnits     int    // SCAN_MAX_UNITS
	MaxUnitBytes int    // SCAN_MAX_UNIT_BYTES
	Dedup        string // SCAN_DEDUP: line_family | line
	Snippet      string // SCAN_SNIPPET: line | window
}

type MappingConfig struct {
	Source string // MAPPING_SOURCE: file path or s3://bucket/key
	Watch  bool   // MAPPING_WATCH: reload file sources on change
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type Neo4jConfig struct {
	Enabled  bool
	URI      string
	User     string
	Password string
}

type ValkeyConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type MinIOConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type S3Config struct {
	Region   string // S3_REGION
	Endpoint string // S3_ENDPOINT (for MinIO/LocalStack compatibility)
}

type AuthConfig struct {
	Enabled      bool
	IssuerURL    string
	PublicIssuer string
	Audience     string
}

type WorkerConfig struct {
	ID        string        // WORKER_ID: stream consumer name, defaults to the hostname
	ClaimIdle time.Duration // WORKER_CLAIM_IDLE: retry jobs left unacknowledged this long
}

type MCPConfig struct {
	Addr    string
	BaseURL string
}

type LogConfig struct {
	Level string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SECS", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SECS", 60)) * time.Second,
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
			MaxBodyBytes: int64(getEnvInt("SERVER_MAX_BODY_BYTES", 32<<20)),
		},
		Scan: ScanConfig{
			Workers:      getEnvInt("SCAN_WORKERS", 0),
			MaxUnits:     getEnvInt("SCAN_MAX_UNITS", 1000),
			MaxUnitBytes: getEnvInt("SCAN_MAX_UNIT_BYTES", 1<<20),
			Dedup:        getEnv("SCAN_DEDUP", "line_family"),
			Snippet:      getEnv("SCAN_SNIPPET", "line"),
		},
		Mapping: MappingConfig{
			Source: getEnv("MAPPING_SOURCE", "table_map.json"),
			Watch:  getEnvBool("MAPPING_WATCH", false),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "tablescan"),
			Password: getEnv("DB_PASSWORD", "tablescan"),
			Name:     getEnv("DB_NAME", "tablescan"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Neo4j: Neo4jConfig{
			Enabled:  getEnvBool("NEO4J_ENABLED", true),
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", "tablescan"),
		},
		Valkey: ValkeyConfig{
			Enabled:  getEnvBool("VALKEY_ENABLED", true),
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
			CacheTTL: getEnvDuration("VALKEY_CACHE_TTL", 24*time.Hour),
		},
		MinIO: MinIOConfig{
			Enabled:   getEnvBool("MINIO_ENABLED", true),
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "tablescan"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "tablescan123"),
			Bucket:    getEnv("MINIO_BUCKET", "tablescan-reports"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		S3: S3Config{
			Region:   getEnv("S3_REGION", "us-east-1"),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		Auth: AuthConfig{
			Enabled:      getEnvBool("AUTH_ENABLED", false),
			IssuerURL:    getEnv("AUTH_ISSUER_URL", ""),
			PublicIssuer: getEnv("AUTH_PUBLIC_ISSUER", ""),
			Audience:     getEnv("AUTH_AUDIENCE", "tablescan"),
		},
		Worker: WorkerConfig{
			ID:        getEnv("WORKER_ID", defaultWorkerID()),
			ClaimIdle: getEnvDuration("WORKER_CLAIM_IDLE", 5*time.Minute),
		},
		MCP: MCPConfig{
			Addr:    getEnv("MCP_ADDR", ":8090"),
			BaseURL: getEnv("MCP_BASE_URL", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port))
	}
	if c.Scan.Workers < 0 {
		errs = append(errs, fmt.Errorf("SCAN_WORKERS must not be negative"))
	}
	if c.Scan.MaxUnits <= 0 {
		errs = append(errs, fmt.Errorf("SCAN_MAX_UNITS must be positive"))
	}
	if c.Scan.MaxUnitBytes <= 0 {
		errs = append(errs, fmt.Errorf("SCAN_MAX_UNIT_BYTES must be positive"))
	}
	switch strings.ToLower(c.Scan.Dedup) {
	case "line_family", "line":
	default:
		errs = append(errs, fmt.Errorf("SCAN_DEDUP must be line_family or line, got %q", c.Scan.Dedup))
	}
	switch strings.ToLower(c.Scan.Snippet) {
	case "line", "window":
	default:
		errs = append(errs, fmt.Errorf("SCAN_SNIPPET must be line or window, got %q", c.Scan.Snippet))
	}
	if c.Mapping.Source == "" {
		errs = append(errs, fmt.Errorf("MAPPING_SOURCE is required"))
	}
	if c.Mapping.Watch && strings.HasPrefix(c.Mapping.Source, "s3://") {
		errs = append(errs, fmt.Errorf("MAPPING_WATCH only supports file sources"))
	}
	if c.Auth.Enabled && c.Auth.IssuerURL == "" {
		errs = append(errs, fmt.Errorf("AUTH_ENABLED=true but AUTH_ISSUER_URL is empty"))
	}
	if c.Worker.ClaimIdle < 0 {
		errs = append(errs, fmt.Errorf("WORKER_CLAIM_IDLE must not be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

// NewLogger builds the JSON logger every binary writes to stdout.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// defaultWorkerID is stable across restarts on one host, so a restarted
// worker reads back the jobs it had not acknowledged.
func defaultWorkerID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return "worker-" + h
	}
	return "worker-1"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
