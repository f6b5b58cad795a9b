package config

const (
	defaultListen         = ":8080"
	defaultRequestTimeout = "5m"

	defaultInferenceProvider = "bedrock"
	defaultModelID           = "amazon.titan-text-express-v1"
	defaultRegion            = "us-east-1"
	defaultMaxTokens         = 4096
	defaultTopP              = 1
	defaultFailurePolicy     = "degrade"

	defaultStorageProvider = "inmemory"
	defaultDynamoDBTable   = "conversations"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "parley.conversations"

	defaultClientTarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:         defaultListen,
			RequestTimeout: defaultRequestTimeout,
		},
		Inference: InferenceConfig{
			Provider:      defaultInferenceProvider,
			ModelID:       defaultModelID,
			Region:        defaultRegion,
			MaxTokens:     defaultMaxTokens,
			Temperature:   0,
			TopP:          defaultTopP,
			FailurePolicy: defaultFailurePolicy,
		},
		Storage: StorageConfig{
			Provider:      defaultStorageProvider,
			DynamoDBTable: defaultDynamoDBTable,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
