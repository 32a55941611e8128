package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cityworks/project-registry/internal/spreadsheet"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Upload   UploadConfig   `yaml:"upload"`
	Parse    ParseConfig    `yaml:"parse"`
	App      AppConfig      `yaml:"app"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is "pgx" (jackc/pgx stdlib over a pgxpool) or "postgres" (lib/pq).
	Driver         string        `yaml:"driver"`
	DSN            string        `yaml:"dsn"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	MaxConns       int           `yaml:"max_conns"`
	MinConns       int           `yaml:"min_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
}

type RedisConfig struct {
	// Addr empty disables the cache backend entirely.
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

type CacheConfig struct {
	ListTTL    time.Duration `yaml:"list_ttl"`
	ProjectTTL time.Duration `yaml:"project_ttl"`
	StatsTTL   time.Duration `yaml:"stats_ttl"`
}

type UploadConfig struct {
	MaxUploadBytes     int64         `yaml:"max_upload_bytes"`
	AcceptedExtensions []string      `yaml:"accepted_extensions"`
	TempDir            string        `yaml:"temp_dir"`
	ArtifactDir        string        `yaml:"artifact_dir"`
	DefaultChunkSize   int64         `yaml:"default_chunk_size"`
	ChunkConcurrency   int           `yaml:"chunk_concurrency"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	SessionStore       string        `yaml:"session_store"`
	ChunkRateLimit     float64       `yaml:"chunk_rate_limit"`
	ChunkBurst         int           `yaml:"chunk_burst"`
}

type ParseConfig struct {
	HeaderSynonyms []string `yaml:"header_synonyms"`
	MaxNameLength  int      `yaml:"max_name_length"`
}

type AppConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	Version     string `yaml:"version"`
}

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Database: DatabaseConfig{
			Driver:         DriverPgx,
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Name:           "municipal",
			MaxConns:       10,
			MinConns:       2,
			ConnectTimeout: 5 * time.Second,
			PingTimeout:    2 * time.Second,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			OpTimeout: 250 * time.Millisecond,
		},
		Cache: CacheConfig{
			ListTTL:    60 * time.Second,
			ProjectTTL: 300 * time.Second,
			StatsTTL:   600 * time.Second,
		},
		Upload: UploadConfig{
			MaxUploadBytes:     10 * 1024 * 1024,
			AcceptedExtensions: []string{".xlsx", ".xls"},
			TempDir:            "temp/uploads",
			ArtifactDir:        "uploads",
			DefaultChunkSize:   1024 * 1024,
			ChunkConcurrency:   3,
			SessionTTL:         24 * time.Hour,
			SweepInterval:      time.Hour,
			SessionStore:       SessionStoreMemory,
			ChunkRateLimit:     50,
			ChunkBurst:         100,
		},
		Parse: ParseConfig{
			HeaderSynonyms: []string{"项目名称", "project name", "name", "名称"},
			MaxNameLength:  200,
		},
		App: AppConfig{
			Environment: "development",
			LogLevel:    "info",
			Version:     "1.0.0",
		},
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.CORSOrigins = getEnvAsList("CORS_ORIGINS", cfg.Server.CORSOrigins)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.MaxConns = getEnvAsInt("DB_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvAsInt("DB_MIN_CONNS", cfg.Database.MinConns)

	// REDIS_ADDR="" is meaningful (cache disabled), so presence is checked instead of emptiness.
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.OpTimeout = getEnvAsDuration("REDIS_OP_TIMEOUT", cfg.Redis.OpTimeout)

	cfg.Cache.ListTTL = getEnvAsDuration("CACHE_LIST_TTL", cfg.Cache.ListTTL)
	cfg.Cache.ProjectTTL = getEnvAsDuration("CACHE_PROJECT_TTL", cfg.Cache.ProjectTTL)
	cfg.Cache.StatsTTL = getEnvAsDuration("CACHE_STATS_TTL", cfg.Cache.StatsTTL)

	cfg.Upload.MaxUploadBytes = int64(getEnvAsInt("UPLOAD_MAX_BYTES", int(cfg.Upload.MaxUploadBytes)))
	cfg.Upload.AcceptedExtensions = spreadsheet.NormalizeExtensions(getEnvAsList("UPLOAD_EXTENSIONS", cfg.Upload.AcceptedExtensions))
	cfg.Upload.TempDir = getEnv("UPLOAD_TEMP_DIR", cfg.Upload.TempDir)
	cfg.Upload.ArtifactDir = getEnv("UPLOAD_ARTIFACT_DIR", cfg.Upload.ArtifactDir)
	cfg.Upload.DefaultChunkSize = int64(getEnvAsInt("UPLOAD_CHUNK_SIZE", int(cfg.Upload.DefaultChunkSize)))
	cfg.Upload.ChunkConcurrency = getEnvAsInt("UPLOAD_CHUNK_CONCURRENCY", cfg.Upload.ChunkConcurrency)
	cfg.Upload.SessionTTL = getEnvAsDuration("UPLOAD_SESSION_TTL", cfg.Upload.SessionTTL)
	cfg.Upload.SweepInterval = getEnvAsDuration("UPLOAD_SWEEP_INTERVAL", cfg.Upload.SweepInterval)
	cfg.Upload.SessionStore = getEnv("SESSION_STORE", cfg.Upload.SessionStore)
	cfg.Upload.ChunkRateLimit = getEnvAsFloat("UPLOAD_CHUNK_RATE_LIMIT", cfg.Upload.ChunkRateLimit)
	cfg.Upload.ChunkBurst = getEnvAsInt("UPLOAD_CHUNK_BURST", cfg.Upload.ChunkBurst)

	cfg.Parse.HeaderSynonyms = getEnvAsList("PARSE_HEADER_SYNONYMS", cfg.Parse.HeaderSynonyms)
	cfg.Parse.MaxNameLength = getEnvAsInt("PARSE_MAX_NAME_LENGTH", cfg.Parse.MaxNameLength)

	cfg.App.Environment = getEnv("APP_ENV", cfg.App.Environment)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.Version = getEnv("APP_VERSION", cfg.App.Version)
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Database.Driver {
	case DriverPgx, DriverPostgres:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPgx, DriverPostgres, c.Database.Driver)
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_DSN or DB_HOST is required")
	}

	switch c.Upload.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("SESSION_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.Upload.SessionStore)
	}

	if c.Cache.ListTTL <= 0 || c.Cache.ProjectTTL <= 0 || c.Cache.StatsTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Upload.MaxUploadBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if len(c.Upload.AcceptedExtensions) == 0 {
		return fmt.Errorf("UPLOAD_EXTENSIONS must list at least one extension")
	}
	if c.Upload.SessionTTL <= 0 || c.Upload.SweepInterval <= 0 {
		return fmt.Errorf("upload session TTL and sweep interval must be positive")
	}
	if c.Parse.MaxNameLength <= 0 {
		return fmt.Errorf("PARSE_MAX_NAME_LENGTH must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
