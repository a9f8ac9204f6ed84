package config

// Config represents the full application configuration.
type Config struct {
	Server        ServerConfig              `yaml:"server"`
	GitHub        GitHubConfig              `yaml:"github"`
	Review        ReviewConfig              `yaml:"review"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
	Store         StoreConfig               `yaml:"store"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`
}

// GitHubConfig configures GitHub App authentication and the API client.
//
// PrivateKey takes precedence over PrivateKeyPath when both are set. When
// neither AppID nor a key is configured the service falls back to Token
// (a personal access token) for all API calls.
type GitHubConfig struct {
	AppID          int64  `yaml:"appID"`
	PrivateKey     string `yaml:"privateKey"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
	WebhookSecret  string `yaml:"webhookSecret"`
	Token          string `yaml:"token"`
	APIBaseURL     string `yaml:"apiBaseURL"`
}

// ReviewConfig configures the review pipeline.
type ReviewConfig struct {
	// Provider selects which configured LLM provider generates reviews.
	Provider string `yaml:"provider"`

	// MaxFileChars is the per-file character budget included in the prompt.
	// File contents beyond this budget are truncated, not dropped.
	MaxFileChars int `yaml:"maxFileChars"`

	// MaxTokens caps the generation output length.
	MaxTokens int `yaml:"maxTokens"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level         string `yaml:"level"`         // debug, info, error
	Format        string `yaml:"format"`        // json, human
	RedactSecrets bool   `yaml:"redactSecrets"` // Redact tokens and keys in logs
}
