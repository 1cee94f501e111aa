package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	JWT             JWTConfig             `mapstructure:"jwt"`
	Log             LogConfig             `mapstructure:"log"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Storage         StorageConfig         `mapstructure:"storage"`
	Transcode       TranscodeConfig       `mapstructure:"transcode"`
	Access          AccessConfig          `mapstructure:"access"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig configures the MySQL connection.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the optional authorization cache.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
	AuthCacheTTL time.Duration `mapstructure:"auth_cache_ttl"`
}

// KafkaConfig configures lifecycle event publishing.
type KafkaConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

type KafkaTopicsConfig struct {
	VideoEvents string `mapstructure:"video_events"`
}

// JWTConfig covers both caller-identity verification and playback tokens.
type JWTConfig struct {
	Secret           string        `mapstructure:"secret"`
	Issuer           string        `mapstructure:"issuer"`
	PlaybackTokenTTL time.Duration `mapstructure:"playback_token_ttl"`
	AllowQueryToken  bool          `mapstructure:"allow_query_token"`
}

// LogConfig configures the logrus backend.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// MinioConfig configures optional source archival to object storage.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// StorageConfig holds the two filesystem roots shared read-only by the
// pipeline and the gateway. Both are injected at construction time so tests
// can point them at temporary directories.
type StorageConfig struct {
	StorageRoot   string `mapstructure:"storage_root"`
	KeysRoot      string `mapstructure:"keys_root"`
	ArchiveSource bool   `mapstructure:"archive_source"`
}

// TranscodeConfig groups the engine and segmenting parameters.
type TranscodeConfig struct {
	FFmpeg FFmpegConfig `mapstructure:"ffmpeg"`
	HLS    HLSConfig    `mapstructure:"hls"`
}

// FFmpegConfig locates and tunes the external engine binaries.
type FFmpegConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	ProbePath   string        `mapstructure:"probe_path"`
	VideoCodec  string        `mapstructure:"video_codec"`
	VideoPreset string        `mapstructure:"video_preset"`
	Threads     int           `mapstructure:"threads"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HLSConfig fixes the segmenting parameters shared by every rendition.
type HLSConfig struct {
	SegmentDuration         int `mapstructure:"segment_duration"`
	MaxConcurrentRenditions int `mapstructure:"max_concurrent_renditions"`
	QueueCapacity           int `mapstructure:"queue_capacity"`
}

// AccessConfig is the deployment-mode switch for the gateway. Both operating
// modes are supported: fully enforced enrollment checks with segments routed
// through the gateway, and open delivery with segments served from the
// static storage prefix.
type AccessConfig struct {
	EnforceEnrollment       bool   `mapstructure:"enforce_enrollment"`
	ServeSegmentsViaGateway bool   `mapstructure:"serve_segments_via_gateway"`
	FrontendOrigin          string `mapstructure:"frontend_origin"`
	APIBase                 string `mapstructure:"api_base"`
}

// ServiceRegistryConfig configures etcd registration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

var (
	globalMu sync.RWMutex
	global   *Config
)

// SetGlobalConfig stores the process-wide configuration.
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = cfg
}

// GetGlobalConfig returns the process-wide configuration, nil before Load.
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Load reads the YAML configuration file, applies GO_VIDEO_* environment
// overrides, and fills defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("service_registry.enabled", false)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.client_id", "video-service")
	v.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	v.SetDefault("kafka.topics.video_events", "video.events")
	v.SetDefault("access.enforce_enrollment", true)
	v.SetDefault("access.serve_segments_via_gateway", true)

	v.SetEnvPrefix("GO_VIDEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

func (c *Config) normalize() {
	if c.Server.Port == 0 {
		c.Server.Port = 8084
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}

	if c.Storage.StorageRoot == "" {
		c.Storage.StorageRoot = "storage"
	}
	if c.Storage.KeysRoot == "" {
		c.Storage.KeysRoot = "keys"
	}
	if c.Transcode.FFmpeg.BinaryPath == "" {
		c.Transcode.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Transcode.FFmpeg.ProbePath == "" {
		c.Transcode.FFmpeg.ProbePath = "ffprobe"
	}
	if c.Transcode.FFmpeg.VideoCodec == "" {
		c.Transcode.FFmpeg.VideoCodec = "libx264"
	}
	if c.Transcode.FFmpeg.VideoPreset == "" {
		c.Transcode.FFmpeg.VideoPreset = "veryfast"
	}
	if c.Transcode.FFmpeg.Threads < 0 {
		c.Transcode.FFmpeg.Threads = 0
	}
	if c.Transcode.FFmpeg.Timeout == 0 {
		c.Transcode.FFmpeg.Timeout = time.Hour
	}
	if c.Transcode.HLS.SegmentDuration <= 0 {
		c.Transcode.HLS.SegmentDuration = 6
	}
	if c.Transcode.HLS.MaxConcurrentRenditions <= 0 {
		c.Transcode.HLS.MaxConcurrentRenditions = 2
	}
	if c.Transcode.HLS.QueueCapacity <= 0 {
		c.Transcode.HLS.QueueCapacity = 32
	}

	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "video-service"
	}
	if c.JWT.PlaybackTokenTTL == 0 {
		c.JWT.PlaybackTokenTTL = 2 * time.Hour
	}

	if c.Access.APIBase == "" {
		c.Access.APIBase = "/api/video"
	}
	if c.Access.FrontendOrigin == "" {
		c.Access.FrontendOrigin = "http://localhost:3000"
	}

	if c.Redis.AuthCacheTTL == 0 {
		c.Redis.AuthCacheTTL = 30 * time.Second
	}

	if c.ServiceRegistry.ServiceName == "" {
		c.ServiceRegistry.ServiceName = "video-service"
	}
	if c.ServiceRegistry.DialTimeout == 0 {
		c.ServiceRegistry.DialTimeout = 5 * time.Second
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
}

// GetDSN builds the MySQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	charset := c.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, charset)
}

// GetRedisAddr joins host and port.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
