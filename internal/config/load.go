package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load reads the config file at path over the defaults and applies PATHWISE_* environment overrides.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	for section, values := range DefaultSettings() {
		for key, value := range values.(map[string]any) {
			v.SetDefault(section+"."+key, value)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			var settings map[string]any
			if err := json.Unmarshal(data, &settings); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			if err := ValidateSettings(settings); err != nil {
				return Config{}, err
			}
			v.SetConfigType("json")
			if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}
