package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Name string `yaml:"name"`
	// Таймаут одного HTTP запроса в секундах
	FetchTimeout int `yaml:"fetch_timeout"`
	// Интервал между запусками обновления в режиме serve, в секундах
	ProcessingInterval int    `yaml:"processing_interval"`
	MaxBodyBytes       int64  `yaml:"max_body_bytes"`
	UserAgent          string `yaml:"user_agent"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	UserName string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
	SSLMode  string `yaml:"sslmode"`
}

type KafkaTopics struct {
	ItemsUpdated string `yaml:"items_updated"`
}

type KafkaConfig struct {
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

type Config struct {
	App     AppConfig     `yaml:"app"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
	DB      DBConfig      `yaml:"db"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

func (c *Config) GetAppName() string {
	return c.App.Name
}

func (c *Config) GetFetchTimeout() time.Duration {
	return time.Duration(c.App.FetchTimeout) * time.Second
}

func (c *Config) GetAppProcessingInterval() time.Duration {
	return time.Duration(c.App.ProcessingInterval) * time.Second
}

func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// KafkaEnabled сообщает, настроена ли публикация событий.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Topics.ItemsUpdated != ""
}

// DSN возвращает строку подключения для pgx.
func (d DBConfig) DSN() string {
	return d.url("postgres")
}

// MigrateURL возвращает адрес БД для golang-migrate (драйвер pgx/v5).
func (d DBConfig) MigrateURL() string {
	return d.url("pgx5")
}

func (d DBConfig) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(d.UserName, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "placefeeds"
	}
	if c.App.FetchTimeout <= 0 {
		c.App.FetchTimeout = 10
	}
	if c.App.ProcessingInterval <= 0 {
		c.App.ProcessingInterval = 3600
	}
	if c.App.MaxBodyBytes <= 0 {
		c.App.MaxBodyBytes = 10 << 20
	}
	if c.App.UserAgent == "" {
		c.App.UserAgent = c.App.Name
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.DB.Host == "" {
		c.DB.Host = "localhost"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.DBName == "" {
		errs = append(errs, errors.New("db.db_name is required"))
	}
	if c.DB.UserName == "" {
		errs = append(errs, errors.New("db.username is required"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topics.ItemsUpdated == "" {
		errs = append(errs, errors.New("kafka.topics.items_updated is required when brokers are set"))
	}
	return errors.Join(errs...)
}

// LoadConfig читает YAML файл, подставляя переменные окружения. Переменные
// можно задать в файле .env рядом с программой.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file is empty")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
