package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type AppConfig struct {
	ServerAddr      string        `mapstructure:"SERVER_ADDR" validate:"min=2"`
	GinMode         string        `mapstructure:"GIN_MODE" validate:"oneof=debug release test"`
	LogFile         string        `mapstructure:"LOG_FILE"`
	UndoMaxSize     int           `mapstructure:"UNDO_MAX_SIZE" validate:"min=1"`
	SeedSampleTasks bool          `mapstructure:"SEED_SAMPLE_TASKS"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"nonzero_duration"`
	// CORSAllowOrigins is a comma separated list, "*" for any origin, empty to disable.
	CORSAllowOrigins string `mapstructure:"CORS_ALLOW_ORIGINS"`
}

func (c *AppConfig) Validate() error {
	v := validator.New()

	_ = v.RegisterValidation("nonzero_duration", func(fl validator.FieldLevel) bool {
		if d, ok := fl.Field().Interface().(time.Duration); ok {
			return d > 0
		} else {
			return false
		}
	})
	if err := v.Struct(c); err != nil {
		return err
	}
	return nil
}

// AllowOrigins splits CORSAllowOrigins.
func (c *AppConfig) AllowOrigins() []string {
	var res []string
	for _, o := range strings.Split(c.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			res = append(res, o)
		}
	}
	return res
}

// LoadAppConfig reads name.ext from the first matching path, then applies env overrides.
// A missing file is fine, defaults and env are used then.
func LoadAppConfig(name, ext string, paths ...string) (*AppConfig, error) {
	v := viper.New()
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.SetConfigName(name)
	v.SetConfigType(ext)
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDR", ":5000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("UNDO_MAX_SIZE", 10)
	v.SetDefault("SEED_SAMPLE_TASKS", true)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
