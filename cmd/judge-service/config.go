package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"codejudge/internal/common/auth"
	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/judge0"
	"codejudge/pkg/utils/logger"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 3 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultRedisKeyPrefix  = "codejudge:"

	envMySQLDSN       = "CODEJUDGE_MYSQL_DSN"
	envRedisPassword  = "CODEJUDGE_REDIS_PASSWORD"
	envJudge0Token    = "CODEJUDGE_JUDGE0_TOKEN"
	envJWTSecret      = "CODEJUDGE_JWT_SECRET"
	envMinIOSecretKey = "CODEJUDGE_MINIO_SECRET_KEY"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// KafkaConfig holds Kafka settings. An empty broker list disables event publishing.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ClientID      string        `yaml:"clientID"`
	MinBytes      int           `yaml:"minBytes"`
	MaxBytes      int           `yaml:"maxBytes"`
	MaxWait       time.Duration `yaml:"maxWait"`
	BatchSize     int           `yaml:"batchSize"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	RequiredAcks  int           `yaml:"requiredAcks"`
	Compression   string        `yaml:"compression"`
	JudgedTopic   string        `yaml:"judgedTopic"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	Concurrency   int           `yaml:"concurrency"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryDelay    time.Duration `yaml:"retryDelay"`

	// DeadLetterTopic receives judged events the activity consumer gave up on.
	DeadLetterTopic string `yaml:"deadLetterTopic"`
}

// Enabled reports whether Kafka is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// SourceConfig holds source archive settings. An empty bucket disables archiving.
type SourceConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// JudgeConfig holds judging settings.
type JudgeConfig struct {
	PollInterval    time.Duration `yaml:"pollInterval"`
	MaxPollAttempts int           `yaml:"maxPollAttempts"`
	MaxConcurrent   int           `yaml:"maxConcurrent"`
	MaxCodeBytes    int           `yaml:"maxCodeBytes"`
	IdempotencyTTL  time.Duration `yaml:"idempotencyTTL"`
	AccountLimit    int           `yaml:"accountLimit"`
	IPLimit         int           `yaml:"ipLimit"`
	LimitWindow     time.Duration `yaml:"limitWindow"`
	DBTimeout       time.Duration `yaml:"dbTimeout"`
	CacheTimeout    time.Duration `yaml:"cacheTimeout"`
	MQTimeout       time.Duration `yaml:"mqTimeout"`
	StorageTimeout  time.Duration `yaml:"storageTimeout"`
}

// ProblemConfig holds problem catalogue settings.
type ProblemConfig struct {
	CacheTTL         time.Duration `yaml:"cacheTTL"`
	EmptyTTL         time.Duration `yaml:"emptyTTL"`
	LanguageLocalTTL time.Duration `yaml:"languageLocalTTL"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ActivityConfig holds account activity settings.
type ActivityConfig struct {
	ProfileTTL time.Duration `yaml:"profileTTL"`
	DBTimeout  time.Duration `yaml:"dbTimeout"`
}

// AuthConfig holds token verification and route roles.
type AuthConfig struct {
	auth.Config `yaml:",inline"`
	AdminRoles  []string `yaml:"adminRoles"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Database db.PoolConfig       `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Kafka    KafkaConfig         `yaml:"kafka"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Source   SourceConfig        `yaml:"source"`
	Judge0   judge0.Config       `yaml:"judge0"`
	Judge    JudgeConfig         `yaml:"judge"`
	Problem  ProblemConfig       `yaml:"problem"`
	Activity ActivityConfig      `yaml:"activity"`
	Auth     AuthConfig          `yaml:"auth"`
}

// defaultAppConfig is decoded over, so keys missing from the file keep these values.
func defaultAppConfig() AppConfig {
	redisCfg := cache.DefaultRedisConfig()
	redisCfg.KeyPrefix = defaultRedisKeyPrefix
	return AppConfig{
		Server: ServerConfig{
			Addr:         defaultHTTPAddr,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		Redis: redisCfg,
		Kafka: KafkaConfig{
			JudgedTopic:   "submission.judged",
			ConsumerGroup: "codejudge-activity",
		},
		Judge: JudgeConfig{
			MaxCodeBytes:   64 * 1024,
			LimitWindow:    time.Minute,
			DBTimeout:      3 * time.Second,
			CacheTimeout:   time.Second,
			MQTimeout:      3 * time.Second,
			StorageTimeout: 5 * time.Second,
		},
		Problem: ProblemConfig{Timeout: 3 * time.Second},
		Auth:    AuthConfig{AdminRoles: []string{"admin"}},
	}
}

func decodeFile(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file failed: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s failed: %w", path, err)
	}
	return nil
}

// loadDotEnv loads envPath into the process environment. A missing file is not an error.
func loadDotEnv(envPath string) error {
	if envPath == "" {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads path over the defaults, then the optional .env file and CODEJUDGE_* overrides.
func loadAppConfig(path, envPath string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := loadDotEnv(envPath); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)

	if cfg.Source.Bucket == "" {
		cfg.Source.Bucket = cfg.MinIO.Bucket
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every missing required setting at once.
func (c *AppConfig) validate() error {
	var errs []error
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	require(c.Database.DSN != "", "database dsn is required")
	require(c.Redis.Addr != "", "redis addr is required")
	require(c.Judge0.BaseURL != "", "judge0 baseURL is required")
	require(c.Auth.Secret != "", "auth secret is required")
	require(c.Judge.MaxCodeBytes > 0, "judge maxCodeBytes must be positive")
	require(c.Judge.LimitWindow > 0, "judge limitWindow must be positive")
	return errors.Join(errs...)
}

// applyEnvOverrides replaces secrets with values from the environment when present.
func applyEnvOverrides(cfg *AppConfig) {
	override := func(key string, target *string) {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*target = value
		}
	}
	override(envMySQLDSN, &cfg.Database.DSN)
	override(envRedisPassword, &cfg.Redis.Password)
	override(envJudge0Token, &cfg.Judge0.AuthToken)
	override(envJWTSecret, &cfg.Auth.Secret)
	override(envMinIOSecretKey, &cfg.MinIO.SecretKey)
}

func (k KafkaConfig) toMQConfig() mq.KafkaConfig {
	cfg := mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		MinBytes:     k.MinBytes,
		MaxBytes:     k.MaxBytes,
		MaxWait:      k.MaxWait,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		ReadTimeout:  k.ReadTimeout,
		WriteTimeout: k.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(k.RequiredAcks),
	}
	cfg.Compression = parseCompression(k.Compression)
	return cfg
}

func (k KafkaConfig) toSubscribeOptions() mq.SubscribeOptions {
	return mq.SubscribeOptions{
		Group:           k.ConsumerGroup,
		Workers:         k.Concurrency,
		MaxAttempts:     k.MaxRetries + 1,
		Backoff:         k.RetryDelay,
		DeadLetterTopic: k.DeadLetterTopic,
	}
}

func parseCompression(raw string) kafka.Compression {
	switch strings.ToLower(raw) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}
