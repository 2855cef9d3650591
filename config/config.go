package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port         string
		AllowOrigins []string
		SecureCookie bool
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	JWT struct {
		Secret string
	}
	Game struct {
		SaveTTLHours int
	}
	Match struct {
		PlayerTTL int // seconds
	}
	Log struct {
		Level string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.allowOrigins", []string{"*"})
	v.SetDefault("server.secureCookie", false)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("game.saveTTLHours", 168)
	v.SetDefault("match.playerTTL", 300)
	v.SetDefault("log.level", "info")
}

// Load reads .env, then the yaml file named by CARTE_CONFIG (default
// config/config.yaml), then CARTE_* environment overrides. A missing file is
// not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	path := os.Getenv("CARTE_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("CARTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}
