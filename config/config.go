package config

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Provider  ProviderConfig  `yaml:"provider"`
	Backend   BackendConfig   `yaml:"backend"`
	ParcelBox ParcelBoxConfig `yaml:"parcelbox"`
}

// DatabaseConfig: журнал попыток. Пустой host отключает его.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Username string `yaml:"username"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD, overwrite"`
	DBName   string `yaml:"name" validate:"required_with=Host"`
	SSLMode  string `yaml:"ssl_mode"`
}

// KafkaConfig: публикация переходов. Пустой host отключает её.
type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	TransitionsTopicName     string `yaml:"transitions_topic_name"`
	TransitionsConsumerGroup string `yaml:"transitions_consumer_group"`
}

type RedisConfig struct {
	Host      string `yaml:"host" validate:"required"`
	Port      int    `yaml:"port" validate:"required,min=1,max=65535"`
	KeyPrefix string `yaml:"key_prefix"`
}

type ProviderConfig struct {
	Mode           string `yaml:"mode" validate:"omitempty,oneof=fake seventeentrack"`
	BaseURL        string `yaml:"base_url" validate:"omitempty,url"`
	APIKey         string `yaml:"api_key" env:"TRACKING_API_KEY, overwrite" validate:"required_if=Mode seventeentrack"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=0"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url" env:"BACKEND_BASE_URL, overwrite" validate:"omitempty,url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=0"`
}

type ParcelBoxConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// PushToken: токен устройства; пустой значит "нет разрешения", регистрация пропускается.
	PushToken string `yaml:"push_token" env:"PUSH_TOKEN, overwrite"`

	SettleDelayMillis   int `yaml:"settle_delay_millis" validate:"min=0"`
	SubmitWindowSeconds int `yaml:"submit_window_seconds" validate:"min=0"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	if err := ApplyEnv(context.Background(), &config, envconfig.OsLookuper()); err != nil {
		return nil, err
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyEnv накладывает секреты и значения установки из окружения поверх YAML.
func ApplyEnv(ctx context.Context, cfg *Config, l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return fmt.Errorf("failed to apply env: %w", err)
	}
	return nil
}

func Validate(cfg *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
