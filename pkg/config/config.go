package config

import "time"

// Support definition support_service YAML structure
type Support struct {
	Port string `mapstructure:"port"`

	Mongo    DatabaseConfig `mapstructure:"mongo"`
	PG       DatabaseConfig `mapstructure:"pg"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitConfig   `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`

	Directory ServiceConfig `mapstructure:"directory"`
}

// Directory definition directory_service YAML structure
type Directory struct {
	Port       string        `mapstructure:"port"`
	IP         string        `mapstructure:"ip"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
}

// ServiceConfig definition service port & name
type ServiceConfig struct {
	Port string `mapstructure:"service_port"`
	Name string `mapstructure:"service_name"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// RabbitConfig definition rabbitmq setting
type RabbitConfig struct {
	IP            string `mapstructure:"ip"`
	Port          string `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	PushQueue     string `mapstructure:"push_queue"`
	ResultQueue   string `mapstructure:"result_queue"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition kafka setting
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	BucketName    string `mapstructure:"bucket_name"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
