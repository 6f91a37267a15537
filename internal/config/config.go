package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string        `yaml:"http-port" env:"HTTP_PORT" env-default:"8080"`
	HeartbeatInterval time.Duration `yaml:"heartbeat-interval" env:"HEARTBEAT_INTERVAL" env-default:"15s"`
	DefaultOrder      string        `yaml:"default-order" env:"DEFAULT_ORDER" env-default:"asc"`
	BotSeed           uint64        `yaml:"bot-seed" env:"BOT_SEED"`
	Store             Store         `yaml:"store"`
}

type Store struct {
	Driver string        `yaml:"driver" env:"STORE_DRIVER" env-default:"memory"`
	TTL    time.Duration `yaml:"ttl" env:"STORE_TTL" env-default:"24h"`
	Redis  Redis         `yaml:"redis"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Load reads the yaml file at path with environment overrides. A missing file
// falls back to environment variables and defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read environment: %w", err)
		}
		return config, nil
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}
	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
