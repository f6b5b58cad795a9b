package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --target on "parley chat" and "parley history") cannot drift.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagRequestTimeout  = "request-timeout"
	FlagProvider        = "provider"
	FlagModelID         = "model-id"
	FlagRegion          = "region"
	FlagEndpoint        = "endpoint"
	FlagFailurePolicy   = "failure-policy"
	FlagStorageProvider = "storage"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagDynamoDBTable   = "dynamodb-table"
	FlagDynamoEndpoint  = "dynamodb-endpoint"
	FlagBoltPath        = "bolt"
	FlagMaxTurns        = "max-turns"
	FlagRehydrate       = "rehydrate"
	FlagEventProvider   = "events"
	FlagLogFile         = "log-file"
	FlagLogJSON         = "log-json"
	FlagTelemetry       = "telemetry"
	FlagTarget          = "target"
)

// Flags is the registry of every parley flag.
var Flags = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the API server to listen on"},
	FlagRequestTimeout:  {Name: "request-timeout", ViperKey: "server.request_timeout", Description: "Per-request timeout (e.g. 30s, 5m)"},
	FlagProvider:        {Name: "provider", Shorthand: "p", ViperKey: "inference.provider", Description: "Inference provider (bedrock, ollama)"},
	FlagModelID:         {Name: "model-id", Shorthand: "m", ViperKey: "inference.model_id", Description: "Model identifier passed to the inference provider"},
	FlagRegion:          {Name: "region", ViperKey: "inference.region", Description: "AWS region for Bedrock"},
	FlagEndpoint:        {Name: "endpoint", ViperKey: "inference.endpoint", Description: "Inference endpoint override (Ollama URL or Bedrock endpoint)"},
	FlagFailurePolicy:   {Name: "failure-policy", ViperKey: "inference.failure_policy", Description: "Inference failure policy (degrade, propagate)"},
	FlagStorageProvider: {Name: "storage", Shorthand: "s", ViperKey: "storage.provider", Description: "Record store (inmemory, sqlite, postgres, dynamodb, bolt)"},
	FlagSQLite:          {Name: "sqlite", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database"},
	FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagDynamoDBTable:   {Name: "dynamodb-table", ViperKey: "storage.dynamodb_table", Description: "DynamoDB table name"},
	FlagDynamoEndpoint:  {Name: "dynamodb-endpoint", ViperKey: "storage.dynamodb_endpoint", Description: "DynamoDB endpoint override (e.g. DynamoDB Local)"},
	FlagBoltPath:        {Name: "bolt", ViperKey: "storage.bolt_path", Description: "Path to bbolt database"},
	FlagMaxTurns:        {Name: "max-turns", ViperKey: "session.max_turns", Description: "Turns rendered into each prompt (0 for all)"},
	FlagRehydrate:       {Name: "rehydrate", ViperKey: "session.rehydrate", Description: "Resume unknown sessions from the record store"},
	FlagEventProvider:   {Name: "events", ViperKey: "eventstream.provider", Description: "Event publisher (nop, kafka)"},
	FlagLogFile:         {Name: "log-file", ViperKey: "log.file", Description: "Also write JSON logs to this rotated file"},
	FlagLogJSON:         {Name: "log-json", ViperKey: "log.json", Description: "Write JSON logs to stdout"},
	FlagTelemetry:       {Name: "telemetry", ViperKey: "telemetry.enabled", Description: "Export traces and metrics to rotated files"},
	FlagTarget:          {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "parley server URL"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
