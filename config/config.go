package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"
)

// Config is the process configuration, read from the environment or from the
// YAML file named by CONFIG_PATH.
type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"development"`
	Port         string `yaml:"port" env:"PORT" env-default:"8080"`
	StoreBackend string `yaml:"store_backend" env:"STORE_BACKEND" env-default:"mongo"`
	JWTSecret    string `yaml:"jwt_secret" env:"JWT_SECRET"`
	CORSOrigins  string `yaml:"cors_origins" env:"CORS_ALLOWED_ORIGINS"`

	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Firebase FirebaseConfig `yaml:"firebase"`

	SweepInterval  time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL" env-default:"5m"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"IDEMPOTENCY_TTL" env-default:"24h"`
}

type MongoConfig struct {
	URI    string `yaml:"uri" env:"MONGO_URI"`
	DBName string `yaml:"db_name" env:"DB_NAME" env-default:"affiliate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type KafkaConfig struct {
	Brokers     string `yaml:"brokers" env:"KAFKA_BROKERS"`
	PayoutTopic string `yaml:"payout_topic" env:"KAFKA_PAYOUT_TOPIC" env-default:"affiliate.payment-qualifications"`
}

func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type SMTPConfig struct {
	Host       string `yaml:"host" env:"SMTP_HOST"`
	Port       int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User       string `yaml:"user" env:"SMTP_USER"`
	Pass       string `yaml:"pass" env:"SMTP_PASS"`
	AdminEmail string `yaml:"admin_email" env:"ADMIN_EMAIL"`
}

type FirebaseConfig struct {
	CredentialsBase64 string `yaml:"credentials_base64" env:"FIREBASE_CREDENTIALS_BASE64"`
	CredentialsFile   string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	ProjectID         string `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
}

// Load reads .env (if present) and then the typed configuration.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreBackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND=%s", StoreBackendMongo)
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTSecret == "" && c.Env != "development" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}
