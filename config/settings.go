// Package config provides application settings loaded from a TOML file and
// environment variables.
//
// Settings are created via Load() which handles:
// - Default value application
// - Optional TOML file decoding
// - Environment variable overrides with validation
// - Provider-specific credential lookup at call time

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings holds all application configuration.
type Settings struct {
	Dispatch  DispatchConfig            `toml:"dispatch"`
	Retrieval RetrievalConfig           `toml:"retrieval"`
	Providers map[string]ProviderConfig `toml:"providers"`
	Storage   StorageConfig             `toml:"storage"`
}

// DispatchConfig holds dispatcher tuning.
type DispatchConfig struct {
	RetrievalTimeoutMS int    `toml:"retrieval_timeout_ms"`
	LocalDelayMS       int    `toml:"local_delay_ms"`
	DefaultSource      string `toml:"default_source"`
}

// RetrievalConfig selects and tunes the context retriever.
type RetrievalConfig struct {
	// Retriever is "none", "lexical", "gemini" or "openai".
	Retriever      string  `toml:"retriever"`
	TopK           int     `toml:"top_k"`
	MinScore       float64 `toml:"min_score"`
	EmbeddingModel string  `toml:"embedding_model"`
	KnowledgeFile  string  `toml:"knowledge_file"`
}

// ProviderConfig holds per-provider model settings.
type ProviderConfig struct {
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   uint32  `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	RateLimit   float64 `toml:"rate_limit"` // requests per second, 0 = unlimited
	// RequestTimeoutMS bounds one HTTP request, 0 = no bound.
	RequestTimeoutMS int `toml:"request_timeout_ms"`
}

// StorageConfig holds persistence paths.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// RetrievalTimeout returns the retrieval budget as a duration.
func (s Settings) RetrievalTimeout() time.Duration {
	return time.Duration(s.Dispatch.RetrievalTimeoutMS) * time.Millisecond
}

// LocalDelay returns the simulated local latency as a duration.
func (s Settings) LocalDelay() time.Duration {
	return time.Duration(s.Dispatch.LocalDelayMS) * time.Millisecond
}

// Provider returns the configuration for a provider (aliases accepted).
func (s Settings) Provider(name string) ProviderConfig {
	return s.Providers[normalizeProvider(name)]
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"gemini":  {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
	"chatgpt": {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"google": "gemini",
	"openai": "chatgpt",
	"gpt":    "chatgpt",
}

// Default returns settings with every default applied and no file or
// environment input.
func Default() Settings {
	s := Settings{
		Dispatch: DispatchConfig{
			RetrievalTimeoutMS: 3000,
			DefaultSource:      "local",
		},
		Retrieval: RetrievalConfig{
			Retriever: "lexical",
			TopK:      3,
		},
		Providers: map[string]ProviderConfig{},
		Storage: StorageConfig{
			DBPath: ".askbase/askbase.db",
		},
	}
	for name, info := range providers {
		s.Providers[name] = ProviderConfig{
			Model:            info.defaultModel,
			MaxTokens:        1024,
			Temperature:      0.7,
			RequestTimeoutMS: 60000,
		}
	}
	return s
}

// Load builds settings from defaults, then the TOML file at path (skipped
// when path is empty or the file does not exist), then the environment.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			md, err := toml.DecodeFile(path, &s)
			if err != nil {
				return Settings{}, fmt.Errorf("failed to decode config file %s: %w", path, err)
			}
			fillProviderDefaults(&s, md)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks settings for values the dispatcher cannot run with.
func (s Settings) Validate() error {
	if s.Dispatch.RetrievalTimeoutMS <= 0 {
		return fmt.Errorf("retrieval timeout must be positive, got %dms", s.Dispatch.RetrievalTimeoutMS)
	}
	if s.Dispatch.LocalDelayMS < 0 {
		return fmt.Errorf("local delay must not be negative, got %dms", s.Dispatch.LocalDelayMS)
	}
	switch s.Retrieval.Retriever {
	case "none", "lexical", "gemini", "openai":
	default:
		return fmt.Errorf("unknown retriever: %q", s.Retrieval.Retriever)
	}
	if s.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", s.Retrieval.TopK)
	}
	for name, p := range s.Providers {
		if p.RequestTimeoutMS < 0 {
			return fmt.Errorf("%s request timeout must not be negative, got %dms", name, p.RequestTimeoutMS)
		}
	}
	return nil
}

// fillProviderDefaults restores defaults for provider fields a partial
// [providers.x] table left unset.
func fillProviderDefaults(s *Settings, md toml.MetaData) {
	defaults := Default()
	if s.Providers == nil {
		s.Providers = map[string]ProviderConfig{}
	}
	for name, def := range defaults.Providers {
		p, ok := s.Providers[name]
		if !ok {
			s.Providers[name] = def
			continue
		}
		if p.Model == "" {
			p.Model = def.Model
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = def.MaxTokens
		}
		if !md.IsDefined("providers", name, "temperature") {
			p.Temperature = def.Temperature
		}
		if !md.IsDefined("providers", name, "request_timeout_ms") {
			p.RequestTimeoutMS = def.RequestTimeoutMS
		}
		s.Providers[name] = p
	}
}

func applyEnv(s *Settings) error {
	timeout, err := getEnvInt("ASKBASE_RETRIEVAL_TIMEOUT_MS", s.Dispatch.RetrievalTimeoutMS)
	if err != nil {
		return err
	}
	s.Dispatch.RetrievalTimeoutMS = timeout

	delay, err := getEnvInt("ASKBASE_LOCAL_DELAY_MS", s.Dispatch.LocalDelayMS)
	if err != nil {
		return err
	}
	s.Dispatch.LocalDelayMS = delay

	if val := os.Getenv("ASKBASE_SOURCE"); val != "" {
		s.Dispatch.DefaultSource = val
	}
	if val := os.Getenv("ASKBASE_RETRIEVER"); val != "" {
		s.Retrieval.Retriever = strings.ToLower(val)
	}

	topK, err := getEnvInt("ASKBASE_TOP_K", s.Retrieval.TopK)
	if err != nil {
		return err
	}
	s.Retrieval.TopK = topK

	minScore, err := getEnvFloat64("ASKBASE_MIN_SCORE", s.Retrieval.MinScore)
	if err != nil {
		return err
	}
	s.Retrieval.MinScore = minScore

	if val := os.Getenv("ASKBASE_DB"); val != "" {
		s.Storage.DBPath = val
	}

	for name, info := range providers {
		p := s.Providers[name]
		if val := os.Getenv(info.modelEnv); val != "" {
			p.Model = val
		}
		if p.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", p.MaxTokens); err != nil {
			return err
		}
		if p.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", p.Temperature); err != nil {
			return err
		}
		if p.RateLimit, err = getEnvFloat64("ASKBASE_RATE_LIMIT", p.RateLimit); err != nil {
			return err
		}
		if p.RequestTimeoutMS, err = getEnvInt("ASKBASE_REQUEST_TIMEOUT_MS", p.RequestTimeoutMS); err != nil {
			return err
		}
		s.Providers[name] = p
	}
	return nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
// It is read on every call so keys added after startup are picked up.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := strings.TrimSpace(os.Getenv(info.apiKeyEnv))
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// APIKeyEnv returns the environment variable holding a provider's key.
func APIKeyEnv(provider string) string {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return ""
	}
	return info.apiKeyEnv
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
