package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Sources     SourcesConfig     `mapstructure:"sources"`
	VLM         VLMConfig         `mapstructure:"vlm"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Download    DownloadConfig    `mapstructure:"download"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
	Progress    ProgressConfig    `mapstructure:"progress"`
	Inspiration InspirationConfig `mapstructure:"inspiration"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// StorageConfig selects the job image backend. Results and uploaded
// guidelines always live on the local filesystem.
type StorageConfig struct {
	Type       string   `mapstructure:"type"` // local, s3, r2, s3compatible
	ImagesRoot string   `mapstructure:"images_root"`
	ResultsDir string   `mapstructure:"results_dir"`
	UploadsDir string   `mapstructure:"uploads_dir"`
	S3         S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the driver-specific connection string.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SourcesConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	Unsplash ProviderConfig `mapstructure:"unsplash"`
	Pexels   ProviderConfig `mapstructure:"pexels"`
	Library  LibraryConfig  `mapstructure:"library"`
}

// LibraryConfig points the local library provider at a directory tree.
type LibraryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type VLMConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AnalysisConfig struct {
	BatchSize         int           `mapstructure:"batch_size"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffUnit       time.Duration `mapstructure:"backoff_unit"`
	BatchTimeout      time.Duration `mapstructure:"batch_timeout"`
	BatchPacing       time.Duration `mapstructure:"batch_pacing"`
	MaxGuidelineChars int           `mapstructure:"max_guideline_chars"`
	Workers           int           `mapstructure:"workers"`
	MaxDimension      int           `mapstructure:"max_dimension"`
	JPEGQuality       int           `mapstructure:"jpeg_quality"`
}

type DownloadConfig struct {
	Pacing       time.Duration `mapstructure:"pacing"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxImages    int           `mapstructure:"max_images"`
	DefaultLimit int           `mapstructure:"default_limit"`
}

type JobsConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type ProgressConfig struct {
	BufferSize   int           `mapstructure:"buffer_size"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

type InspirationConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout"`
	MaxCount        int           `mapstructure:"max_count"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.images_root", "./data/images")
	v.SetDefault("storage.results_dir", "./data/results")
	v.SetDefault("storage.uploads_dir", "./data/uploads")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("storage.s3.bucket", "surrogates")

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/surrogates.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("sources.timeout", 30*time.Second)
	v.SetDefault("sources.unsplash.enabled", true)
	v.SetDefault("sources.unsplash.base_url", "https://api.unsplash.com")
	v.SetDefault("sources.pexels.enabled", true)
	v.SetDefault("sources.pexels.base_url", "https://api.pexels.com/v1")
	v.SetDefault("sources.library.enabled", false)
	v.SetDefault("sources.library.path", "./data/library")

	v.SetDefault("vlm.provider", "openai")
	v.SetDefault("vlm.model", "gpt-4o")
	v.SetDefault("vlm.base_url", "https://api.openai.com/v1")
	v.SetDefault("vlm.max_tokens", 1000)
	v.SetDefault("vlm.timeout", 90*time.Second)

	v.SetDefault("analysis.batch_size", 2)
	v.SetDefault("analysis.max_attempts", 3)
	v.SetDefault("analysis.backoff_unit", 2*time.Second)
	v.SetDefault("analysis.batch_timeout", 60*time.Second)
	v.SetDefault("analysis.batch_pacing", time.Second)
	v.SetDefault("analysis.max_guideline_chars", 3000)
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.max_dimension", 1024)
	v.SetDefault("analysis.jpeg_quality", 85)

	v.SetDefault("download.pacing", 500*time.Millisecond)
	v.SetDefault("download.timeout", 30*time.Second)
	v.SetDefault("download.max_images", 50)
	v.SetDefault("download.default_limit", 10)

	v.SetDefault("jobs.retention", 24*time.Hour)
	v.SetDefault("jobs.sweep_interval", 10*time.Minute)
	v.SetDefault("jobs.timeout", 30*time.Minute)

	v.SetDefault("progress.buffer_size", 32)
	v.SetDefault("progress.ping_interval", 30*time.Second)

	v.SetDefault("inspiration.model", "gemini-1.5-flash")
	v.SetDefault("inspiration.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("inspiration.timeout", 30*time.Second)
	v.SetDefault("inspiration.liveness_timeout", 3*time.Second)
	v.SetDefault("inspiration.max_count", 10)
}

// Load reads configuration from configPath (or ./configs/config.yaml when
// empty), a .env file and the environment, in increasing priority.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and endpoints commonly injected by the deployment.
	_ = v.BindEnv("vlm.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("vlm.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("vlm.model", "VLM_MODEL")
	_ = v.BindEnv("sources.unsplash.api_key", "UNSPLASH_API_KEY")
	_ = v.BindEnv("sources.pexels.api_key", "PEXELS_API_KEY")
	_ = v.BindEnv("inspiration.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("cache.addr", "REDIS_ADDR")
	_ = v.BindEnv("cache.password", "REDIS_PASSWORD")
	_ = v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("storage.s3.access_key", "S3_ACCESS_KEY")
	_ = v.BindEnv("storage.s3.secret_key", "S3_SECRET_KEY")
	_ = v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	_ = v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.host", "DATABASE_HOST")
	_ = v.BindEnv("database.user", "DATABASE_USER")
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD")
	_ = v.BindEnv("database.dbname", "DATABASE_NAME")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
