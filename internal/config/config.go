// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Окружения, в которых может работать сервис.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Драйверы хранилища пользователей.
const (
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	HTTPServer      `yaml:"http_server"`
	JWTToken        `yaml:"jwttoken"`
	Password        `yaml:"password"`
	RateLimit       `yaml:"rate_limit"`
	RabbitMQ        `yaml:"rabbitmq"`
	Pages           `yaml:"pages"`
}

// Storage структура для настройки хранилища пользователей
type Storage struct {
	Driver                  string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	StorageConnectionString string `yaml:"connection_string" env:"STORAGE_CONNECTION_STRING"`
	Database                string `yaml:"database" env:"STORAGE_DATABASE" env-default:"userprefs"`
	Collection              string `yaml:"collection" env:"STORAGE_COLLECTION" env-default:"users"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес означает, что профили кешируются в памяти процесса.
type RedisConnection struct {
	AddressRedis  string        `yaml:"address" env:"REDIS_ADDRESS"`
	PasswordRedis string        `yaml:"password" env:"REDIS_PASSWORD"`
	User          string        `yaml:"user" env:"REDIS_USER"`
	DB            int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries    int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout   time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	TimeoutRedis  time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном.
// Время жизни токена фиксировано и в конфиг не вынесено.
type JWTToken struct {
	JWTSecretKey string `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
}

// Password структура для настройки хеширования паролей
type Password struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"15"`
}

// RateLimit структура для настройки ограничения частоты запросов на вход и регистрацию
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

// RabbitMQ структура для настройки публикации событий аккаунтов.
// Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"accounts"`
}

// Pages структура с путями к статике и файлу команд
type Pages struct {
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR" env-default:"./web"`
	TeamsFile string `yaml:"teams_file" env:"TEAMS_FILE" env-default:"./web/teams.json"`
}

// MustLoad загружает конфиг из файла CONFIG_PATH, если он задан, иначе только из переменных окружения.
// Переменные окружения всегда перекрывают значения из файла.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг и проверяет обязательные поля.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	var cfg Config

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.StorageConnectionString == "" {
		return nil, fmt.Errorf("%s: storage connection string is not set", op)
	}
	switch cfg.Driver {
	case DriverPostgres, DriverMongoDB:
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
	}
	return &cfg, nil
}

// IsProd сообщает, запущен ли сервис в продакшене.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  ConnectionString: %s\n"+
			"  Database: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"Password:\n"+
			"  BcryptCost: %d\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Exchange: %s\n",
		c.Env,
		c.Driver,
		mask(c.StorageConnectionString),
		c.Database,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		mask(c.JWTSecretKey),
		c.BcryptCost,
		mask(c.URL),
		c.Exchange,
	)
}

func mask(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "***"
}
