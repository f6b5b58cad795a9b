package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/parley/pkg/dotdir"
)

// EnvPrefix is prepended to every environment variable override,
// e.g. PARLEY_SERVER_LISTEN or PARLEY_INFERENCE_PROVIDER.
const EnvPrefix = "PARLEY"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// found via dotdir resolution, and binds environment variables
// with the PARLEY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PARLEY_SERVER_LISTEN, PARLEY_STORAGE_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper resolves every registered config key through v and returns the
// effective Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	cfg.Version = v.GetInt("version")

	for _, key := range ValidConfigKeys() {
		var raw string
		if key == "eventstream.brokers" {
			raw = strings.Join(v.GetStringSlice(key), ",")
		} else {
			raw = v.GetString(key)
		}
		if raw == "" {
			continue
		}

		if err := configKeys[key].set(cfg, raw); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	v.SetDefault("inference.provider", d.Inference.Provider)
	v.SetDefault("inference.model_id", d.Inference.ModelID)
	v.SetDefault("inference.region", d.Inference.Region)
	v.SetDefault("inference.endpoint", d.Inference.Endpoint)
	v.SetDefault("inference.max_tokens", d.Inference.MaxTokens)
	v.SetDefault("inference.temperature", d.Inference.Temperature)
	v.SetDefault("inference.top_p", d.Inference.TopP)
	v.SetDefault("inference.failure_policy", d.Inference.FailurePolicy)

	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.dynamodb_table", d.Storage.DynamoDBTable)
	v.SetDefault("storage.dynamodb_endpoint", d.Storage.DynamoDBEndpoint)
	v.SetDefault("storage.bolt_path", d.Storage.BoltPath)

	v.SetDefault("session.max_turns", d.Session.MaxTurns)
	v.SetDefault("session.rehydrate", d.Session.Rehydrate)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.debug", d.Log.Debug)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.dir", d.Telemetry.Dir)

	v.SetDefault("client.target", d.Client.Target)
}
