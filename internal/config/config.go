package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Name           string `mapstructure:"name"`
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	InstanceID     string `mapstructure:"instance_id"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
}

type StoreConf struct {
	Driver string `mapstructure:"driver"` // mongo | memory
}

type MongoConf struct {
	URI          string `mapstructure:"uri"`
	Database     string `mapstructure:"database"`
	Transactions bool   `mapstructure:"transactions"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	Driver         string `mapstructure:"driver"` // s3 | memory
	PublicRead     bool   `mapstructure:"public_read"`
	PresignTTL     int    `mapstructure:"presign_ttl_seconds"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type MediaConf struct {
	MaxImageDimension int `mapstructure:"max_image_dimension"`
	JPEGQuality       int `mapstructure:"jpeg_quality"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConf struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type JWTConf struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	Secret        string `mapstructure:"secret"`
}

type TwilioConf struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	BaseURL    string `mapstructure:"base_url"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type VerificationConf struct {
	OTPTTLMinutes    int `mapstructure:"otp_ttl_minutes"`
	MaxAttempts      int `mapstructure:"max_attempts"`
	RateLimitPerHour int `mapstructure:"rate_limit_per_hour"`
}

type RateLimitConf struct {
	IPPerMinute    int `mapstructure:"ip_per_minute"`
	SendsPerMinute int `mapstructure:"sends_per_minute"`
}

type WSConf struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
}

type ConsulConf struct {
	Addr        string `mapstructure:"addr"`
	ServiceName string `mapstructure:"service_name"`
	ServiceHost string `mapstructure:"service_host"`
}

type Config struct {
	App          AppConf          `mapstructure:"app"`
	Store        StoreConf        `mapstructure:"store"`
	Mongo        MongoConf        `mapstructure:"mongodb"`
	AWS          AWSConf          `mapstructure:"aws"`
	S3           S3Conf           `mapstructure:"s3"`
	Media        MediaConf        `mapstructure:"media"`
	Redis        RedisConf        `mapstructure:"redis"`
	Kafka        KafkaConf        `mapstructure:"kafka"`
	JWT          JWTConf          `mapstructure:"jwt"`
	Twilio       TwilioConf       `mapstructure:"twilio"`
	Verification VerificationConf `mapstructure:"verification"`
	RateLimit    RateLimitConf    `mapstructure:"ratelimit"`
	WS           WSConf           `mapstructure:"ws"`
	Consul       ConsulConf       `mapstructure:"consul"`
	Log          struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	PresignTTL      time.Duration
	OTPTTL          time.Duration
	PingInterval    time.Duration
	WriteDeadline   time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "conversation-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8083)
	v.SetDefault("app.instance_id", "")
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "chat")
	v.SetDefault("mongodb.transactions", false)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("s3.driver", "s3")
	v.SetDefault("s3.public_read", false)
	v.SetDefault("s3.presign_ttl_seconds", 7*24*3600)
	v.SetDefault("s3.max_upload_bytes", 50*1024*1024)
	v.SetDefault("media.max_image_dimension", 2048)
	v.SetDefault("media.jpeg_quality", 85)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "chat")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "chat.events")
	v.SetDefault("kafka.group_id", "")
	v.SetDefault("jwt.public_key_path", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from_number", "")
	v.SetDefault("twilio.base_url", "https://api.twilio.com")
	v.SetDefault("twilio.max_retries", 3)
	v.SetDefault("verification.otp_ttl_minutes", 5)
	v.SetDefault("verification.max_attempts", 5)
	v.SetDefault("verification.rate_limit_per_hour", 5)
	v.SetDefault("ratelimit.ip_per_minute", 120)
	v.SetDefault("ratelimit.sends_per_minute", 60)
	v.SetDefault("ws.ping_interval_seconds", 25)
	v.SetDefault("ws.write_deadline_seconds", 10)
	v.SetDefault("ws.max_message_size_bytes", 65536)
	v.SetDefault("consul.addr", "")
	v.SetDefault("consul.service_name", "conversation-service")
	v.SetDefault("consul.service_host", "")
	v.SetDefault("log.level", "")
}

// Load reads path (if it exists) on top of the defaults. Values from .env
// and the process environment win, e.g. MONGODB_URI or KAFKA_ENABLED.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.derive()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) derive() {
	c.ShutdownTimeout = time.Duration(c.App.ShutdownSecond) * time.Second
	c.PresignTTL = time.Duration(c.S3.PresignTTL) * time.Second
	c.OTPTTL = time.Duration(c.Verification.OTPTTLMinutes) * time.Minute
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	if c.App.InstanceID == "" {
		c.App.InstanceID = uuid.NewString()
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = c.App.Name + "-" + c.App.InstanceID
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("mongodb.uri and mongodb.database are required for the mongo store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.JWT.PublicKeyPath == "" && c.JWT.Secret == "" {
		return errors.New("jwt.public_key_path or jwt.secret must be set")
	}
	switch c.S3.Driver {
	case "s3":
		if c.AWS.Bucket == "" {
			return errors.New("aws.bucket is required for the s3 blob store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown s3.driver %q", c.S3.Driver)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	if c.Verification.MaxAttempts <= 0 {
		return errors.New("verification.max_attempts must be positive")
	}
	return nil
}
