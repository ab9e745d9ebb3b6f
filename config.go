package delay

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		Store    StoreConfig    `toml:"store" envPrefix:"STORE_"`
		Autosave AutosaveConfig `toml:"autosave" envPrefix:"AUTOSAVE_"`
		Command  CommandConfig  `toml:"command" envPrefix:"COMMAND_"`
		Notify   NotifyConfig   `toml:"notify" envPrefix:"NOTIFY_"`
	}

	StoreConfig struct {
		Backend     string   `toml:"backend" env:"BACKEND"`
		Path        string   `toml:"path" env:"PATH"`
		Addr        string   `toml:"addr" env:"ADDR"`
		Password    string   `toml:"password" env:"PASSWORD"`
		Prefix      string   `toml:"prefix" env:"PREFIX"`
		PostgresURL string   `toml:"postgres_url" env:"POSTGRES_URL"`
		S3          S3Config `toml:"s3" envPrefix:"S3_"`
		DB          int      `toml:"db" env:"DB"`
	}

	S3Config struct {
		Bucket   string `toml:"bucket" env:"BUCKET"`
		Key      string `toml:"key" env:"KEY"`
		Region   string `toml:"region" env:"REGION"`
		Endpoint string `toml:"endpoint" env:"ENDPOINT"`
	}

	AutosaveConfig struct {
		EveryTicks   int64         `toml:"every_ticks" env:"EVERY_TICKS"`
		MaxQueueSize int           `toml:"max_queue_size" env:"MAX_QUEUE_SIZE"`
		SaveTimeout  time.Duration `toml:"save_timeout" env:"SAVE_TIMEOUT"`
	}

	// CommandConfig holds the two tunables the command front end reads from
	// the host's option registry
	CommandConfig struct {
		Name            string `toml:"name" env:"NAME"`
		PermissionLevel int    `toml:"permission_level" env:"PERMISSION_LEVEL"`
	}

	NotifyConfig struct {
		NATSURL string `toml:"nats_url" env:"NATS_URL"`
		Subject string `toml:"subject" env:"SUBJECT"`
	}
)

const (
	EnvPrefix = "DELAY_"

	DefaultStoreBackend        = BackendFile
	DefaultRedisEndpoint       = "localhost:6379"
	DefaultRedisPrefix         = "delay"
	DefaultRedisDB             = 0
	DefaultS3Key               = "delay/archive.jsonl"
	DefaultS3Region            = "us-east-1"
	DefaultAutosaveTicks       = 6000
	DefaultAutosaveQueueSize   = 16
	DefaultAutosaveSaveTimeout = 30 * time.Second
	DefaultCommandName         = "delay"
	DefaultPermissionLevel     = 4
	DefaultNotifySubject       = "delay.event"
)

func DefaultConfig() Config {
	return Config{
		Store:    DefaultStoreConfig(),
		Autosave: DefaultAutosaveConfig(),
		Command:  DefaultCommandConfig(),
		Notify: NotifyConfig{
			Subject: DefaultNotifySubject,
		},
	}
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend: DefaultStoreBackend,
		Path:    DefaultFilePath,
		Addr:    DefaultRedisEndpoint,
		Prefix:  DefaultRedisPrefix,
		DB:      DefaultRedisDB,
		S3: S3Config{
			Key:    DefaultS3Key,
			Region: DefaultS3Region,
		},
	}
}

func DefaultAutosaveConfig() AutosaveConfig {
	return AutosaveConfig{
		EveryTicks:   DefaultAutosaveTicks,
		MaxQueueSize: DefaultAutosaveQueueSize,
		SaveTimeout:  DefaultAutosaveSaveTimeout,
	}
}

func DefaultCommandConfig() CommandConfig {
	return CommandConfig{
		Name:            DefaultCommandName,
		PermissionLevel: DefaultPermissionLevel,
	}
}

// LoadConfig starts from DefaultConfig, applies the TOML file at path if
// one is given and exists, then applies DELAY_* environment overrides
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix: EnvPrefix,
	}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration values that cannot work
func (c Config) Validate() error {
	if c.Command.Name == "" {
		return errors.New("command name is required")
	}
	if c.Command.PermissionLevel < 0 {
		return fmt.Errorf("permission level %d is negative",
			c.Command.PermissionLevel)
	}
	if c.Autosave.EveryTicks < 0 {
		return fmt.Errorf("autosave interval %d is negative",
			c.Autosave.EveryTicks)
	}
	return nil
}
