package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed media.yaml
var mediaYAML []byte

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig
	Cache       CacheConfig
	Template    TemplateConfig
	Printing    PrintingConfig
	Events      EventsConfig
	Media       MediaConfig
}

type AppConfig struct {
	Env      string   // development or production
	LogLevel string   // zerolog level name, defaults to info
	Origins  []string // browser origins allowed by CORS, from WEB_ALLOWED_ORIGINS
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type ObjectStoreConfig struct {
	Endpoint  string // MinIO / S3 endpoint host:port, empty selects the filesystem store
	AccessKey string
	SecretKey string
	Bucket    string // defaults to photos
	UseSSL    bool
	PublicURL string // base URL photos are served from
	Path      string // filesystem store root (default ./storage)
}

type CacheConfig struct {
	Backend       string // file or redis
	Dir           string // directory for the file backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type TemplateConfig struct {
	PollInterval time.Duration
}

type PrintingConfig struct {
	HelperURL      string // websocket URL of the desktop print helper
	HelperPrinter  string // printer name passed to the helper, empty uses its default
	CloudURL       string // cloud print provider API base URL
	CloudAPIKey    string // only used by the CLI, the web API takes keys per request
	CloudPrinterID int
}

type EventsConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// MediaConfig lists lowercase fragments of printer media names that mark a
// printer as able to print photo or letter sized paper.
type MediaConfig struct {
	Photo  []string `yaml:"photo"`
	Letter []string `yaml:"letter"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envSeconds reads a positive number of seconds from the environment.
func envSeconds(key string, defaultVal time.Duration) time.Duration {
	n := envInt(key, 0)
	if n == 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

// envList splits a comma separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for part := range strings.SplitSeq(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() *Config {
	var media MediaConfig
	if err := yaml.Unmarshal(mediaYAML, &media); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded media.yaml: " + err.Error())
	}

	return &Config{
		App: AppConfig{
			Env:      envString("APP_ENV", "development"),
			LogLevel: envString("LOG_LEVEL", "info"),
			Origins:  envList("WEB_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    envString("MINIO_BUCKET", "photos"),
			UseSSL:    envBool("MINIO_USE_SSL"),
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
			Path:      envString("STORAGE_PATH", "./storage"),
		},
		Cache: CacheConfig{
			Backend:       envString("PROCESSED_SET_BACKEND", "file"),
			Dir:           envString("PROCESSED_SET_DIR", "./cache"),
			RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envInt("REDIS_DB", 0),
		},
		Template: TemplateConfig{
			PollInterval: envSeconds("TEMPLATE_POLL_INTERVAL_SECONDS", 3*time.Second),
		},
		Printing: PrintingConfig{
			HelperURL:      envString("PRINT_HELPER_URL", "ws://127.0.0.1:8765"),
			HelperPrinter:  os.Getenv("PRINT_HELPER_PRINTER"),
			CloudURL:       envString("CLOUD_PRINT_URL", "https://api.printnode.com"),
			CloudAPIKey:    os.Getenv("CLOUD_PRINT_API_KEY"),
			CloudPrinterID: envInt("CLOUD_PRINT_PRINTER_ID", 0),
		},
		Events: EventsConfig{
			KafkaBrokers: envList("KAFKA_BROKERS"),
			KafkaTopic:   envString("KAFKA_TOPIC", "photo-booth.prints"),
		},
		Media: media,
	}
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UsesRedis reports whether the processed-set cache lives in Redis.
func (c *CacheConfig) UsesRedis() bool {
	return strings.EqualFold(c.Backend, "redis")
}
