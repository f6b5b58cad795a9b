package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent parley configuration stored as config.toml
// in the .parley/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Inference   InferenceConfig   `toml:"inference"`
	Storage     StorageConfig     `toml:"storage"`
	Session     SessionConfig     `toml:"session"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Log         LogConfig         `toml:"log"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
	Client      ClientConfig      `toml:"client"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Listen         string `toml:"listen,omitempty"`
	RequestTimeout string `toml:"request_timeout,omitempty"`
}

// InferenceConfig selects the text generation backend and its decoding
// parameters.
type InferenceConfig struct {
	Provider      string  `toml:"provider,omitempty"`
	ModelID       string  `toml:"model_id,omitempty"`
	Region        string  `toml:"region,omitempty"`
	Endpoint      string  `toml:"endpoint,omitempty"`
	MaxTokens     uint    `toml:"max_tokens,omitempty"`
	Temperature   float64 `toml:"temperature"`
	TopP          float64 `toml:"top_p,omitempty"`
	FailurePolicy string  `toml:"failure_policy,omitempty"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Provider         string `toml:"provider,omitempty"`
	SQLitePath       string `toml:"sqlite_path,omitempty"`
	PostgresDSN      string `toml:"postgres_dsn,omitempty"`
	DynamoDBTable    string `toml:"dynamodb_table,omitempty"`
	DynamoDBEndpoint string `toml:"dynamodb_endpoint,omitempty"`
	BoltPath         string `toml:"bolt_path,omitempty"`
}

// SessionConfig holds in-process session settings.
type SessionConfig struct {
	// MaxTurns bounds the number of turns rendered into a prompt.
	// Zero renders the whole transcript.
	MaxTurns  uint `toml:"max_turns,omitempty"`
	Rehydrate bool `toml:"rehydrate,omitempty"`
}

// EventStreamConfig holds conversation event publishing settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// LogConfig holds server logging settings.
type LogConfig struct {
	File  string `toml:"file,omitempty"`
	JSON  bool   `toml:"json,omitempty"`
	Debug bool   `toml:"debug,omitempty"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled,omitempty"`
	Dir     string `toml:"dir,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// parley server (parley chat, parley history). The target is a full URL.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":          stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.request_timeout": stringKey(func(c *Config) *string { return &c.Server.RequestTimeout }),

	"inference.provider":       stringKey(func(c *Config) *string { return &c.Inference.Provider }),
	"inference.model_id":       stringKey(func(c *Config) *string { return &c.Inference.ModelID }),
	"inference.region":         stringKey(func(c *Config) *string { return &c.Inference.Region }),
	"inference.endpoint":       stringKey(func(c *Config) *string { return &c.Inference.Endpoint }),
	"inference.max_tokens":     uintKey("inference.max_tokens", func(c *Config) *uint { return &c.Inference.MaxTokens }),
	"inference.temperature":    floatKey("inference.temperature", func(c *Config) *float64 { return &c.Inference.Temperature }),
	"inference.top_p":          floatKey("inference.top_p", func(c *Config) *float64 { return &c.Inference.TopP }),
	"inference.failure_policy": stringKey(func(c *Config) *string { return &c.Inference.FailurePolicy }),

	"storage.provider":          stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":       stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":      stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.dynamodb_table":    stringKey(func(c *Config) *string { return &c.Storage.DynamoDBTable }),
	"storage.dynamodb_endpoint": stringKey(func(c *Config) *string { return &c.Storage.DynamoDBEndpoint }),
	"storage.bolt_path":         stringKey(func(c *Config) *string { return &c.Storage.BoltPath }),

	"session.max_turns": uintKey("session.max_turns", func(c *Config) *uint { return &c.Session.MaxTurns }),
	"session.rehydrate": boolKey("session.rehydrate", func(c *Config) *bool { return &c.Session.Rehydrate }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = splitList(v)
			return nil
		},
	},
	"eventstream.topic": stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"log.file":  stringKey(func(c *Config) *string { return &c.Log.File }),
	"log.json":  boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.debug": boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),

	"telemetry.enabled": boolKey("telemetry.enabled", func(c *Config) *bool { return &c.Telemetry.Enabled }),
	"telemetry.dir":     stringKey(func(c *Config) *string { return &c.Telemetry.Dir }),

	"client.target": stringKey(func(c *Config) *string { return &c.Client.Target }),
}

// splitList parses a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
