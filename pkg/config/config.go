package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// DefaultEndpoint is where a locally started Tabby server listens.
const DefaultEndpoint = "http://localhost:8080"

// Config holds everything the adapter needs to reach a Tabby server.
type Config struct {
	// Endpoint is the server root, without the /v1 suffix.
	Endpoint string
	// Token authenticates against the server. Empty is valid: local
	// instances often run without auth.
	Token string
	// ChatModel is sent as the model id on chat completions. Tabby ignores
	// it unless multiple chat models are loaded, so empty is valid.
	ChatModel string
	// CompletionModel is the model id for the legacy text-completion
	// fallback. Defaults to ChatModel.
	CompletionModel string

	RequestTimeout    time.Duration
	MaxOutputTokens   int64
	Temperature       float64
	RequestsPerMinute int

	// AgentConfigPath overrides the Tabby agent config file consulted for
	// credentials. Empty means the per-user default location.
	AgentConfigPath string
}

func getEnv(key, defaultValue string, printEnv bool) string {
	logger := log.Default()
	value := os.Getenv(key)
	if printEnv {
		logger.Info("Env", "key", key, "value", value)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration, printEnv bool) (time.Duration, error) {
	raw := getEnv(key, "", printEnv)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvInt(key string, defaultValue int64, printEnv bool) (int64, error) {
	raw := getEnv(key, "", printEnv)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64, printEnv bool) (float64, error) {
	raw := getEnv(key, "", printEnv)
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// LoadConfig reads the environment (after loading .env when present) and
// returns a normalized, validated configuration.
func LoadConfig(printEnv bool) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{
		Endpoint:        getEnv("TABBY_ENDPOINT", DefaultEndpoint, printEnv),
		Token:           getEnv("TABBY_TOKEN", "", printEnv),
		ChatModel:       getEnv("TABBY_CHAT_MODEL", "", printEnv),
		CompletionModel: getEnv("TABBY_COMPLETION_MODEL", "", printEnv),
		AgentConfigPath: getEnv("TABBY_AGENT_CONFIG", "", printEnv),
	}

	var err error
	if conf.RequestTimeout, err = getEnvDuration("TABBY_REQUEST_TIMEOUT", 30*time.Second, printEnv); err != nil {
		return nil, err
	}
	if conf.MaxOutputTokens, err = getEnvInt("TABBY_MAX_OUTPUT_TOKENS", 0, printEnv); err != nil {
		return nil, err
	}
	if conf.Temperature, err = getEnvFloat("TABBY_TEMPERATURE", 0.7, printEnv); err != nil {
		return nil, err
	}
	rpm, err := getEnvInt("TABBY_RPM", 0, printEnv)
	if err != nil {
		return nil, err
	}
	conf.RequestsPerMinute = int(rpm)

	if err := conf.Normalize(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Normalize canonicalizes the endpoint and validates field ranges. It is
// idempotent.
func (c *Config) Normalize() error {
	endpoint, err := NormalizeEndpoint(c.Endpoint)
	if err != nil {
		return err
	}
	c.Endpoint = endpoint

	if c.CompletionModel == "" {
		c.CompletionModel = c.ChatModel
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", c.Temperature)
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens %d is negative", c.MaxOutputTokens)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute %d is negative", c.RequestsPerMinute)
	}
	return nil
}

// APIBase returns the OpenAI-compatible API root of the server.
func (c *Config) APIBase() string {
	return c.Endpoint + "/v1"
}

// NormalizeEndpoint canonicalizes a user-supplied server URL. Users paste
// endpoints both with and without the /v1 suffix and with trailing slashes;
// all forms normalize to "scheme://host[:port][/path]".
func NormalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", fmt.Errorf("endpoint is empty")
	}

	endpoint = strings.TrimRight(endpoint, "/")
	for strings.HasSuffix(endpoint, "/v1") {
		endpoint = strings.TrimSuffix(endpoint, "/v1")
		endpoint = strings.TrimRight(endpoint, "/")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint %q: missing host", raw)
	}
	return endpoint, nil
}
