package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"thermal-backend/pkg/errors"
)

type Config struct {
	Server     ServerConfig
	Model      ModelConfig
	ThinQ      ThinQConfig
	ClickHouse ClickHouseConfig
	MQTT       MQTTConfig
	Training   TrainingConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"5000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ModelConfig struct {
	ArtifactPath string `envconfig:"MODEL_PATH" default:"./models/ensemble_service_age.bin"`
	FeatureSet   string `envconfig:"MODEL_FEATURE_SET" default:"service_age"`
}

type ThinQConfig struct {
	BaseURL  string        `envconfig:"THINQ_BASE_URL" default:"https://api-kic.lgthinq.com"`
	Token    string        `envconfig:"THINQ_PAT"`
	APIKey   string        `envconfig:"THINQ_API_KEY"`
	Country  string        `envconfig:"THINQ_COUNTRY" default:"KR"`
	ClientID string        `envconfig:"THINQ_CLIENT_ID" default:"thermal-backend"`
	DeviceID string        `envconfig:"THINQ_DEVICE_ID"`
	Timeout  time.Duration `envconfig:"THINQ_TIMEOUT" default:"10s"`

	ConditionalControl bool `envconfig:"THINQ_CONDITIONAL_CONTROL" default:"false"`
}

type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Addr     string `envconfig:"CLICKHOUSE_ADDR" default:"localhost:9000"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"thermal"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASS"`
}

type MQTTConfig struct {
	Enabled       bool   `envconfig:"MQTT_ENABLED" default:"false"`
	Broker        string `envconfig:"MQTT_BROKER" default:"tcp://localhost:1883"`
	ClientID      string `envconfig:"MQTT_CLIENT_ID" default:"thermal-backend"`
	Username      string `envconfig:"MQTT_USERNAME"`
	Password      string `envconfig:"MQTT_PASSWORD"`
	DecisionTopic string `envconfig:"MQTT_TOPIC_COMFORT" default:"thermal/{device_id}/comfort"`
	QoS           byte   `envconfig:"MQTT_QOS" default:"1"`
}

type TrainingConfig struct {
	DataPath  string `envconfig:"TRAINING_DATA_PATH" default:"./data/merged_data.csv"`
	OutputDir string `envconfig:"TRAINING_OUTPUT_DIR" default:"./models"`
	Seed      int64  `envconfig:"TRAINING_SEED" default:"42"`
	Folds     int    `envconfig:"TRAINING_FOLDS" default:"5"`
}

type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	Env   string `envconfig:"APP_ENV" default:"development"`
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges envconfig cannot express
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	if c.Model.ArtifactPath == "" {
		return fmt.Errorf("MODEL_PATH must not be empty")
	}
	if c.ThinQ.Timeout <= 0 {
		return fmt.Errorf("invalid THINQ_TIMEOUT: %s", c.ThinQ.Timeout)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid MQTT_QOS: %d", c.MQTT.QoS)
	}
	if c.Training.Folds < 2 {
		return fmt.Errorf("invalid TRAINING_FOLDS: %d", c.Training.Folds)
	}
	return nil
}
