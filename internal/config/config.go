package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Queue    QueueConfig
	Worker   WorkerConfig
	Upload   UploadConfig
	Billing  BillingConfig
	Quotas   QuotaConfig
	Logger   Logger
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// QueueConfig drives the redis job queue: retry budget, backoff base, and
// the split retention windows for completed vs failed entries.
type QueueConfig struct {
	PendingKey         string
	ProcessingKey      string
	DelayedKey         string
	FailedKey          string
	MaxAttempts        int
	BackoffBaseSeconds int
	CompletedTTLHours  int
	FailedTTLHours     int
	LockTTLMinutes     int
}

type WorkerConfig struct {
	Concurrency          int
	MaxCPUUsage          float64
	DequeueTimeoutSecs   int
	RecoveryIntervalSecs int
	StaleAfterSecs       int
}

type UploadConfig struct {
	TempDir string
}

type BillingConfig struct {
	MeterURL  string
	APIKey    string
	EventName string
}

type QuotaConfig struct {
	FreeMonthlyConversions int64
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
