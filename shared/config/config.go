package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
	HTTPPort int    `yaml:"http_port" validate:"required"`

	// Origins allowed by CORS for the JSON API
	AllowedOrigins []string `yaml:"allowed_origins"`
	SecureCookies  bool     `yaml:"secure_cookies"`

	// Coarse per-IP request throttle in front of every endpoint
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"required"`
	RequestBurst      int     `yaml:"request_burst" validate:"required"`

	Queue      Queue      `yaml:"queue"`
	Worker     Worker     `yaml:"worker"`
	Moderation Moderation `yaml:"moderation"`

	BanRefreshInterval time.Duration `yaml:"ban_refresh_interval" validate:"required"` // seconds
	DefaultName        string        `yaml:"default_name"`
}

type Queue struct {
	Name      string        `yaml:"name" validate:"required"`
	ResultTTL time.Duration `yaml:"result_ttl" validate:"required"` // seconds
}

type Worker struct {
	Concurrency int           `yaml:"concurrency" validate:"required,min=1"`
	PollTimeout time.Duration `yaml:"poll_timeout" validate:"required"` // seconds
	ID          string        `yaml:"id"`
}

type Moderation struct {
	AkismetBlog    string        `yaml:"akismet_blog"`
	AkismetTimeout time.Duration `yaml:"akismet_timeout"` // seconds
	DnsblProviders []string      `yaml:"dnsbl_providers"`
	DnsblTimeout   time.Duration `yaml:"dnsbl_timeout"` // seconds
}

type Private struct {
	Pg          Pg     `yaml:"pg"`
	Redis       Redis  `yaml:"redis"`
	AkismetKey  string `yaml:"akismet_key" env:"AKISMET_KEY"`
	IdentSecret string `yaml:"ident_secret" env:"IDENT_SECRET" validate:"required"`
}

type Pg struct {
	Host     string `yaml:"host" env:"PG_HOST" validate:"required"`
	Port     int    `yaml:"port" env:"PG_PORT" validate:"required"`
	User     string `yaml:"user" env:"PG_USER" validate:"required"`
	Password string `yaml:"password" env:"PG_PASSWORD"`
	Dbname   string `yaml:"dbname" env:"PG_DBNAME" validate:"required"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" validate:"required"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

func (p *Public) ResultTTL() time.Duration {
	return p.Queue.ResultTTL * time.Second
}

func (p *Public) PollTimeout() time.Duration {
	return p.Worker.PollTimeout * time.Second
}

func (p *Public) BanRefresh() time.Duration {
	return p.BanRefreshInterval * time.Second
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic("can't unmarshal config file")
	}
}

// MustLoad reads public.yaml and private.yaml from configFolder.
// Secrets in Private may be overridden by environment variables.
func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)
	if err := cleanenv.UpdateEnv(&private); err != nil {
		panic(fmt.Sprintf("can't read config from env: %v", err))
	}

	cfg := &Config{Public: public, Private: private}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
	return cfg
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}
