package config

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// MinSecretBytes is the smallest accepted HMAC-SHA256 key.
const MinSecretBytes = 32

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Admin struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"admin"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Driver   string `mapstructure:"driver"`
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Password PasswordConfig `mapstructure:"password"`
	Cache    struct {
		UserTTL time.Duration `mapstructure:"userTTL"`
	} `mapstructure:"cache"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

// JWTConfig holds the token signing settings.
type JWTConfig struct {
	// Secret is the base64-encoded HMAC key.
	Secret string `mapstructure:"secret"`
	// Expiration is the token lifetime in milliseconds.
	Expiration int64 `mapstructure:"expiration"`
}

// TTL converts Expiration to a duration. The configured unit is milliseconds.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.Expiration) * time.Millisecond
}

// SecretKey decodes Secret and enforces the minimum key size.
func (j JWTConfig) SecretKey() ([]byte, error) {
	if j.Secret == "" {
		return nil, errors.New("jwt.secret is not configured")
	}
	key, err := base64.StdEncoding.DecodeString(j.Secret)
	if err != nil {
		return nil, fmt.Errorf("jwt.secret is not valid base64: %w", err)
	}
	if len(key) < MinSecretBytes {
		return nil, fmt.Errorf("jwt.secret must decode to at least %d bytes, got %d", MinSecretBytes, len(key))
	}
	return key, nil
}

type PasswordConfig struct {
	Cost    int `mapstructure:"cost"`
	Workers int `mapstructure:"workers"`
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if _, err := c.JWT.SecretKey(); err != nil {
		return err
	}
	if c.JWT.Expiration <= 0 {
		return fmt.Errorf("jwt.expiration must be a positive number of milliseconds, got %d", c.JWT.Expiration)
	}
	switch c.Repositories.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("repositories.driver must be postgres or memory, got %q", c.Repositories.Driver)
	}
	return nil
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// FABRICO_JWT_SECRET overrides jwt.secret, etc.
	v.SetEnvPrefix("fabrico")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
