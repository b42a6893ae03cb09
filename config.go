package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"wtfSocial/database"
	pkglog "wtfSocial/log"
)

// Config holds every setting of the app. Values come, in rising priority, from
// DefaultConfig, an optional .config.json file and SOCIAL_* environment
// variables (a .env file is loaded into the environment first).
// SOCIAL_DATABASE_HOST overrides database.host, and so on.
type Config struct {
	Host       string               `mapstructure:"host"`
	Port       int                  `mapstructure:"port"`
	Env        string               `mapstructure:"env"`
	ClientURL  string               `mapstructure:"client_url"`
	Pepper     string               `mapstructure:"pepper"`
	HMACKey    string               `mapstructure:"hmac_key"`
	CSRFKey    string               `mapstructure:"csrf_key"`
	SessionTTL time.Duration        `mapstructure:"session_ttl"`
	Store      StoreConfig          `mapstructure:"store"`
	Database   PostgresConfig       `mapstructure:"database"`
	Redis      database.RedisConfig `mapstructure:"redis"`
	Log        pkglog.Config        `mapstructure:"log"`
}

// StoreConfig picks the tree backend: memory, redis, postgres or sqlite.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// Addr is the address the http server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

func (pc PostgresConfig) Dialect() string {
	return "postgres"
}

func (pc PostgresConfig) ConnectionInfo() string {
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
}

func DefaultConfig() Config {
	return Config{
		Host:       "localhost",
		Port:       1111,
		Env:        "dev",
		ClientURL:  "http://localhost:3000",
		Pepper:     "secret-random-string",
		HMACKey:    "secret-hmac-key",
		SessionTTL: 7 * 24 * time.Hour,
		Store: StoreConfig{
			Driver:     "memory",
			SQLitePath: "wtf_social.db",
		},
		Database: DefaultPostgresConfig(),
		Redis: database.RedisConfig{
			Address: "localhost:6379",
			Prefix:  "wtfsocial:",
		},
		Log: pkglog.Config{
			Level:       "debug",
			Pretty:      true,
			ServiceName: "wtf-social",
		},
	}
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "",
		Name:     "wtf_social",
	}
}

// LoadConfig loads the configuration from the working directory.
// With isProd set a .config.json file is required.
func LoadConfig(isProd bool) (Config, error) {
	return loadConfig(".", isProd)
}

func loadConfig(dir string, isProd bool) (Config, error) {
	// A missing .env file is fine, the environment may be set up otherwise.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName(".config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("SOCIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if isProd {
			return Config{}, errors.New("a .config.json file is required in production")
		}
	} else {
		logger := pkglog.L()
		logger.Info().Str("file", v.ConfigFileUsed()).Msg("loaded config file")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return c, nil
}

// setDefaults registers every key, which is also what makes AutomaticEnv
// consider them during Unmarshal.
func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("host", c.Host)
	v.SetDefault("port", c.Port)
	v.SetDefault("env", c.Env)
	v.SetDefault("client_url", c.ClientURL)
	v.SetDefault("pepper", c.Pepper)
	v.SetDefault("hmac_key", c.HMACKey)
	v.SetDefault("csrf_key", c.CSRFKey)
	v.SetDefault("session_ttl", c.SessionTTL)

	v.SetDefault("store.driver", c.Store.Driver)
	v.SetDefault("store.sqlite_path", c.Store.SQLitePath)

	v.SetDefault("database.host", c.Database.Host)
	v.SetDefault("database.port", c.Database.Port)
	v.SetDefault("database.user", c.Database.User)
	v.SetDefault("database.password", c.Database.Password)
	v.SetDefault("database.name", c.Database.Name)

	v.SetDefault("redis.address", c.Redis.Address)
	v.SetDefault("redis.password", c.Redis.Password)
	v.SetDefault("redis.db", c.Redis.DB)
	v.SetDefault("redis.prefix", c.Redis.Prefix)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.pretty", c.Log.Pretty)
	v.SetDefault("log.service_name", c.Log.ServiceName)
}
