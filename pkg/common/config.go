/** Copyright 2020-2023 Alibaba Group Holding Limited.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	TWZ_ABI_VERSION_MAJOR = 0
	TWZ_ABI_VERSION_MINOR = 3
	TWZ_ABI_VERSION_PATCH = 0

	TWZ_ABI_VERSION = ((TWZ_ABI_VERSION_MAJOR*1000)+TWZ_ABI_VERSION_MINOR)*1000 +
		TWZ_ABI_VERSION_PATCH
)

var TWZ_ABI_VERSION_STRING = fmt.Sprintf(
	"%d.%d.%d",
	TWZ_ABI_VERSION_MAJOR,
	TWZ_ABI_VERSION_MINOR,
	TWZ_ABI_VERSION_PATCH,
)

const (
	DEFAULT_MAX_FOT_ENTRIES = 64
	DEFAULT_MAX_EXTS        = 8
	DEFAULT_OBJECT_UNITS    = 1
	DEFAULT_MAP_ATTEMPTS    = 3
	DEFAULT_MAP_RETRY_DELAY = 10 * time.Millisecond

	envPrefix = "TWZABI"
)

// Config holds the tunables shared by the local runtime and the tools.
type Config struct {
	LogLevel      int           `mapstructure:"log_level"`
	MaxFotEntries uint32        `mapstructure:"max_fot_entries"`
	MaxExts       uint32        `mapstructure:"max_exts"`
	ObjectUnits   uint32        `mapstructure:"object_units"`
	MapAttempts   uint          `mapstructure:"map_attempts"`
	MapRetryDelay time.Duration `mapstructure:"map_retry_delay"`
}

func DefaultConfig() Config {
	return Config{
		MaxFotEntries: DEFAULT_MAX_FOT_ENTRIES,
		MaxExts:       DEFAULT_MAX_EXTS,
		ObjectUnits:   DEFAULT_OBJECT_UNITS,
		MapAttempts:   DEFAULT_MAP_ATTEMPTS,
		MapRetryDelay: DEFAULT_MAP_RETRY_DELAY,
	}
}

// NewViper returns a viper instance preloaded with defaults and bound to
// TWZABI_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("max_fot_entries", def.MaxFotEntries)
	v.SetDefault("max_exts", def.MaxExts)
	v.SetDefault("object_units", def.ObjectUnits)
	v.SetDefault("map_attempts", def.MapAttempts)
	v.SetDefault("map_retry_delay", def.MapRetryDelay)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags exposes the config keys as command-line flags on fs.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	def := DefaultConfig()
	fs.Int("log-level", def.LogLevel, "log verbosity (0 is info, higher is more verbose)")
	fs.Uint32("max-fot-entries", def.MaxFotEntries, "FOT capacity of objects created by the local runtime")
	fs.Uint32("max-exts", def.MaxExts, "metadata extension capacity of objects created by the local runtime")
	fs.Uint32("object-units", def.ObjectUnits, "default object size, in 4KiB units")

	for key, flag := range map[string]string{
		"log_level":       "log-level",
		"max_fot_entries": "max-fot-entries",
		"max_exts":        "max-exts",
		"object_units":    "object-units",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return errors.Wrapf(err, "failed to bind flag %s", flag)
		}
	}
	return nil
}

// LoadConfig reads the optional config file and returns the merged result
// of defaults, file, environment and bound flags.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %s", path)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}
	if cfg.MaxFotEntries == 0 {
		return Config{}, errors.New("max_fot_entries must be positive")
	}
	if cfg.MapAttempts == 0 {
		cfg.MapAttempts = 1
	}
	return cfg, nil
}
