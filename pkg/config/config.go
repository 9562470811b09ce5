package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"

	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Cache        CacheConfig
	Storage      StorageConfig
	Documents    DocumentsConfig
	AI           AIConfig
	Translation  TranslationConfig
	Locales      LocaleConfig
	Scheduler    SchedulerConfig
	Applications ApplicationsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles redis-backed response caching for catalog reads.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// StorageConfig selects the object storage backend used for uploads.
type StorageConfig struct {
	Driver          string
	LocalDir        string
	PublicBaseURL   string
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3ForcePath     bool
	DocumentsBucket string
	MediaBucket     string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// DocumentsConfig validates student document uploads.
type DocumentsConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// AIConfig configures the hosted completion provider.
type AIConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// TranslationConfig tunes the bulk translation runner.
type TranslationConfig struct {
	Delay  time.Duration
	RunTTL time.Duration
}

// LocaleConfig lists the locales the catalog is translated into.
type LocaleConfig struct {
	Default   string
	Supported []string
}

// SchedulerConfig toggles periodic maintenance jobs.
type SchedulerConfig struct {
	Enabled                   bool
	RefreshTokenPurgeSchedule string
	TranslationReaperSchedule string
}

// ApplicationsConfig governs application submission.
type ApplicationsConfig struct {
	IdempotencyHeader string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		S3Endpoint:      v.GetString("STORAGE_S3_ENDPOINT"),
		S3Region:        v.GetString("STORAGE_S3_REGION"),
		S3AccessKey:     v.GetString("STORAGE_S3_ACCESS_KEY"),
		S3SecretKey:     v.GetString("STORAGE_S3_SECRET_KEY"),
		S3ForcePath:     v.GetBool("STORAGE_S3_FORCE_PATH_STYLE"),
		DocumentsBucket: v.GetString("DOCUMENTS_BUCKET"),
		MediaBucket:     v.GetString("MEDIA_BUCKET"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
	}

	maxDocumentSize := v.GetInt64("DOCUMENTS_MAX_FILE_SIZE")
	if maxDocumentSize <= 0 {
		maxDocumentSize = 10 * 1024 * 1024
	}
	cfg.Documents = DocumentsConfig{
		MaxFileSizeBytes: maxDocumentSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("DOCUMENTS_ALLOWED_MIME_TYPES")),
	}

	cfg.AI = AIConfig{
		Provider: strings.ToLower(v.GetString("AI_PROVIDER")),
		APIKey:   v.GetString("AI_API_KEY"),
		BaseURL:  strings.TrimRight(v.GetString("AI_BASE_URL"), "/"),
		Model:    v.GetString("AI_MODEL"),
		Timeout:  parseDuration(v.GetString("AI_TIMEOUT"), 60*time.Second),
	}

	cfg.Translation = TranslationConfig{
		Delay:  parseDuration(v.GetString("TRANSLATION_DELAY"), 500*time.Millisecond),
		RunTTL: parseDuration(v.GetString("TRANSLATION_RUN_TTL"), 6*time.Hour),
	}

	cfg.Locales = LocaleConfig{
		Default:   v.GetString("DEFAULT_LOCALE"),
		Supported: splitAndTrim(v.GetString("SUPPORTED_LOCALES")),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:                   v.GetBool("ENABLE_SCHEDULER"),
		RefreshTokenPurgeSchedule: v.GetString("REFRESH_TOKEN_PURGE_SCHEDULE"),
		TranslationReaperSchedule: v.GetString("TRANSLATION_REAPER_SCHEDULE"),
	}

	cfg.Applications = ApplicationsConfig{
		IdempotencyHeader: v.GetString("IDEMPOTENCY_HEADER"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studyabroad")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "studyabroad-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files")
	v.SetDefault("STORAGE_S3_ENDPOINT", "")
	v.SetDefault("STORAGE_S3_REGION", "us-east-1")
	v.SetDefault("STORAGE_S3_ACCESS_KEY", "")
	v.SetDefault("STORAGE_S3_SECRET_KEY", "")
	v.SetDefault("STORAGE_S3_FORCE_PATH_STYLE", true)
	v.SetDefault("DOCUMENTS_BUCKET", "application-documents")
	v.SetDefault("MEDIA_BUCKET", "universities")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")

	v.SetDefault("DOCUMENTS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("DOCUMENTS_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png,application/vnd.openxmlformats-officedocument.wordprocessingml.document")

	v.SetDefault("AI_PROVIDER", AIProviderOpenAI)
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("AI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_TIMEOUT", "60s")

	v.SetDefault("TRANSLATION_DELAY", "500ms")
	v.SetDefault("TRANSLATION_RUN_TTL", "6h")

	v.SetDefault("DEFAULT_LOCALE", "en")
	v.SetDefault("SUPPORTED_LOCALES", "en,ar,fr,ru,tr")

	v.SetDefault("ENABLE_SCHEDULER", false)
	v.SetDefault("REFRESH_TOKEN_PURGE_SCHEDULE", "0 0 * * * *")
	v.SetDefault("TRANSLATION_REAPER_SCHEDULE", "0 */10 * * * *")

	v.SetDefault("IDEMPOTENCY_HEADER", "Idempotency-Key")
}

// TranslatableLocales returns the supported locales except the default one.
func (c LocaleConfig) TranslatableLocales() []string {
	result := make([]string, 0, len(c.Supported))
	for _, locale := range c.Supported {
		if locale == c.Default {
			continue
		}
		result = append(result, locale)
	}
	return result
}

// IsSupported reports whether the locale is configured.
func (c LocaleConfig) IsSupported(locale string) bool {
	for _, l := range c.Supported {
		if l == locale {
			return true
		}
	}
	return false
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
