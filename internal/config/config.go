package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pkglogger "github.com/damoang/image-organizer/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config is the resolved application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Storage       StorageConfig       `yaml:"storage"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Nonce         NonceConfig         `yaml:"nonce"`
	Gallery       GalleryConfig       `yaml:"gallery"`
	Admin         AdminConfig         `yaml:"admin"`
	CORS          CORSConfig          `yaml:"cors"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig media repository connection
type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // mysql or sqlite
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	Path            string `yaml:"path"` // sqlite file
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN returns the mysql DSN (or the sqlite path)
func (d DatabaseConfig) GetDSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// RedisConfig cache / rate limit / upload key backend
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// StorageConfig upload destination; S3-compatible when Bucket is set, local directory otherwise
type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CDNURL          string `yaml:"cdn_url"`
	BasePath        string `yaml:"base_path"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	LocalDir        string `yaml:"local_dir"`
	LocalURL        string `yaml:"local_url"`
}

// UseS3 reports whether uploads go to S3-compatible storage
func (s StorageConfig) UseS3() bool {
	return s.Bucket != ""
}

// ElasticsearchConfig optional search index
type ElasticsearchConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addresses []string `yaml:"addresses"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Index     string   `yaml:"index"`
}

// NonceConfig security token settings
type NonceConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// GalleryConfig gallery and upload policy defaults
type GalleryConfig struct {
	DefaultLimit       int              `yaml:"default_limit"`
	MaxLimit           int              `yaml:"max_limit"`
	DefaultColumns     int              `yaml:"default_columns"`
	MaxUploadSize      int64            `yaml:"max_upload_size"` // bytes
	AllowedTypes       []string         `yaml:"allowed_types"`
	ReviewByDefault    bool             `yaml:"review_by_default"`
	ThumbnailWidth     int              `yaml:"thumbnail_width"`
	LargeWidth         int              `yaml:"large_width"`
	UploadRateLimit    int              `yaml:"upload_rate_limit"`
	UploadRateWindow   time.Duration    `yaml:"upload_rate_window"`
	UploadKeyTTL       time.Duration    `yaml:"upload_key_ttl"`
	CacheEnabled       bool             `yaml:"cache_enabled"`
	SearchResultLimit  int              `yaml:"search_result_limit"`
	UploadKeyMinLength int              `yaml:"upload_key_min_length"`
	Instances          []InstanceConfig `yaml:"instances"`
}

// InstanceConfig a gallery instance defined by the site operator.
// Upload settings are only taken from here, never from request parameters.
type InstanceConfig struct {
	ID             string               `yaml:"id"`
	IDs            []int64              `yaml:"ids"`
	Categories     []string             `yaml:"categories"`
	Tags           []string             `yaml:"tags"`
	FilterTaxonomy string               `yaml:"filter_taxonomy"`
	Columns        int                  `yaml:"columns"`
	Limit          int                  `yaml:"limit"`
	ShowFilter     bool                 `yaml:"show_filter"`
	ShowSearch     *bool                `yaml:"show_search"`
	Upload         InstanceUploadConfig `yaml:"upload"`
}

// InstanceUploadConfig per-instance upload policy
type InstanceUploadConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Review      *bool  `yaml:"review"` // nil = gallery.review_by_default
	Category    string `yaml:"category"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	KeyRequired bool   `yaml:"key_required"`
}

// Instance returns the configured instance with the given id
func (g GalleryConfig) Instance(id string) (InstanceConfig, bool) {
	for _, inst := range g.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return InstanceConfig{}, false
}

// AdminConfig admin API access
type AdminConfig struct {
	APIKey string `yaml:"api_key"`
}

// CORSConfig allowed origins (comma separated)
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// IsDevelopment reports whether the server runs with development defaults
func (c *Config) IsDevelopment() bool {
	return pkglogger.IsDevelopment(c.Server.Env)
}

// Default returns a configuration usable for local development
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Env: "local", Port: 8080, Mode: "debug"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "gallery.db", MaxIdleConns: 5, MaxOpenConns: 20, ConnMaxLifetime: 300},
		Redis:    RedisConfig{Host: "localhost", Port: 6379, PoolSize: 10},
		Storage:  StorageConfig{LocalDir: "uploads", LocalURL: "/uploads"},
		Elasticsearch: ElasticsearchConfig{
			Index: "gallery-media",
		},
		Nonce: NonceConfig{TTL: 12 * time.Hour},
		Gallery: GalleryConfig{
			DefaultLimit:       12,
			MaxLimit:           100,
			DefaultColumns:     4,
			MaxUploadSize:      10 * 1024 * 1024,
			AllowedTypes:       []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
			ReviewByDefault:    true,
			ThumbnailWidth:     300,
			LargeWidth:         1600,
			UploadRateLimit:    5,
			UploadRateWindow:   10 * time.Minute,
			UploadKeyTTL:       24 * time.Hour,
			CacheEnabled:       true,
			SearchResultLimit:  500,
			UploadKeyMinLength: 8,
		},
	}
}

// Load reads a YAML config file on top of the defaults, then applies env overrides.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		pkglogger.Warn("config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run safely with
func (c *Config) Validate() error {
	if c.Nonce.Secret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("nonce.secret is required outside development")
		}
		c.Nonce.Secret = "dev-insecure-nonce-secret"
	}
	if c.Nonce.TTL <= 0 {
		return fmt.Errorf("nonce.ttl must be positive")
	}
	g := c.Gallery
	if g.DefaultLimit < 1 || g.MaxLimit < g.DefaultLimit {
		return fmt.Errorf("gallery limits invalid: default=%d max=%d", g.DefaultLimit, g.MaxLimit)
	}
	if g.MaxUploadSize <= 0 {
		return fmt.Errorf("gallery.max_upload_size must be positive")
	}
	if len(g.AllowedTypes) == 0 {
		return fmt.Errorf("gallery.allowed_types must not be empty")
	}
	seen := make(map[string]bool, len(g.Instances))
	for _, inst := range g.Instances {
		if inst.ID == "" || seen[inst.ID] {
			return fmt.Errorf("gallery.instances: ids must be unique and non-empty (%q)", inst.ID)
		}
		seen[inst.ID] = true
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver)
	}
	return nil
}

// applyEnv overrides selected values from IO_* environment variables
func applyEnv(c *Config) {
	setString("APP_ENV", &c.Server.Env)
	setInt("IO_PORT", &c.Server.Port)
	setString("IO_DB_DRIVER", &c.Database.Driver)
	setString("IO_DB_HOST", &c.Database.Host)
	setInt("IO_DB_PORT", &c.Database.Port)
	setString("IO_DB_USER", &c.Database.User)
	setString("IO_DB_PASSWORD", &c.Database.Password)
	setString("IO_DB_NAME", &c.Database.DBName)
	setString("IO_DB_PATH", &c.Database.Path)
	setBool("IO_REDIS_ENABLED", &c.Redis.Enabled)
	setString("IO_REDIS_HOST", &c.Redis.Host)
	setInt("IO_REDIS_PORT", &c.Redis.Port)
	setString("IO_REDIS_PASSWORD", &c.Redis.Password)
	setString("IO_S3_BUCKET", &c.Storage.Bucket)
	setString("IO_S3_ENDPOINT", &c.Storage.Endpoint)
	setString("IO_S3_ACCESS_KEY_ID", &c.Storage.AccessKeyID)
	setString("IO_S3_SECRET_ACCESS_KEY", &c.Storage.SecretAccessKey)
	setString("IO_NONCE_SECRET", &c.Nonce.Secret)
	setString("IO_ADMIN_API_KEY", &c.Admin.APIKey)
	setString("IO_CORS_ORIGINS", &c.CORS.AllowOrigins)
	if v := os.Getenv("IO_ES_ADDRESSES"); v != "" {
		c.Elasticsearch.Addresses = strings.Split(v, ",")
		c.Elasticsearch.Enabled = true
	}
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// LogResolved logs the effective non-secret configuration
func LogResolved(c *Config) {
	pkglogger.GetLogger().Info().
		Str("env", c.Server.Env).
		Int("port", c.Server.Port).
		Str("db_driver", c.Database.Driver).
		Bool("redis", c.Redis.Enabled).
		Bool("s3", c.Storage.UseS3()).
		Bool("elasticsearch", c.Elasticsearch.Enabled).
		Int("default_limit", c.Gallery.DefaultLimit).
		Int64("max_upload_size", c.Gallery.MaxUploadSize).
		Strs("allowed_types", c.Gallery.AllowedTypes).
		Bool("review_by_default", c.Gallery.ReviewByDefault).
		Msg("configuration resolved")
}
