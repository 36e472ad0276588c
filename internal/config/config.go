package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Caption CaptionConfig `yaml:"caption"`
	Speech  SpeechConfig  `yaml:"speech"`
	AI      AIConfig      `yaml:"ai"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-request deadline, 0 disables
}

// StorageConfig holds the upload tree settings.
type StorageConfig struct {
	UploadDir         string   `yaml:"upload_dir"`
	MaxFileSize       int64    `yaml:"max_file_size"` // bytes
	AllowedExtensions []string `yaml:"allowed_extensions"`

	// AudioRetention removes generated audio older than this on every
	// CleanupSchedule tick. Zero keeps audio until it is deleted.
	AudioRetention  time.Duration `yaml:"audio_retention"`
	CleanupSchedule string        `yaml:"cleanup_schedule"` // cron expression
}

// ProviderConfig describes one model backend.
type ProviderConfig struct {
	Type   string `yaml:"type"`    // "gemini", "openai", "anthropic"
	URL    string `yaml:"url"`     // base URL
	APIKey string `yaml:"api_key"` // API key
	Model  string `yaml:"model"`   // model identifier sent to the backend
}

// Enabled reports whether the provider has enough settings to be tried.
func (p ProviderConfig) Enabled() bool {
	return p.Type != "" || p.URL != ""
}

// CaptionConfig lists the captioning backends in the order they are tried.
type CaptionConfig struct {
	Primary   ProviderConfig `yaml:"primary"`
	Secondary ProviderConfig `yaml:"secondary"`
	Prompt    string         `yaml:"prompt"`
}

// SpeechConfig holds text-to-speech backend settings.
type SpeechConfig struct {
	URL         string         `yaml:"url"` // XTTS-compatible speech server
	Model       string         `yaml:"model"`
	Language    string         `yaml:"language"`
	Temperature float64        `yaml:"temperature"`
	Timeout     time.Duration  `yaml:"timeout"`
	Fallback    ProviderConfig `yaml:"fallback"`
}

// AIConfig holds inference settings shared by the model backends.
type AIConfig struct {
	Device          string `yaml:"device"` // auto, cpu, cuda
	MaxStoryLength  int    `yaml:"max_story_length"`
	AudioSampleRate int    `yaml:"audio_sample_rate"`
	AudioFormat     string `yaml:"audio_format"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
			},
			RequestTimeout: 120 * time.Second,
		},
		Storage: StorageConfig{
			UploadDir:         "./uploads",
			MaxFileSize:       10 << 20,
			AllowedExtensions: []string{"jpg", "jpeg", "png", "webp"},
			CleanupSchedule:   "@hourly",
		},
		Caption: CaptionConfig{
			Primary: ProviderConfig{
				Type:  "gemini",
				Model: "gemini-2.5-flash",
			},
			Secondary: ProviderConfig{
				Type:  "openai",
				URL:   "http://localhost:11434/v1",
				Model: "llava",
			},
			Prompt: "Describe this image in one short sentence. Start with a lowercase article and do not end with a period.",
		},
		Speech: SpeechConfig{
			URL:         "http://localhost:8020",
			Model:       "tts_models/multilingual/multi-dataset/xtts_v2",
			Language:    "en",
			Temperature: 0.75,
			Timeout:     60 * time.Second,
			Fallback: ProviderConfig{
				Type:  "openai",
				Model: "tts-1",
			},
		},
		AI: AIConfig{
			Device:          "auto",
			MaxStoryLength:  500,
			AudioSampleRate: 22050,
			AudioFormat:     "wav",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

// Load reads a YAML configuration file at path and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory and then
// applies environment overrides. If the file does not exist, defaults are used.
// Any other error (e.g. permission denied, malformed YAML, bad env value) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = defaults()
	}
	if err := cfg.ApplyEnv(EnvLookup(os.Environ())); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnvLookup indexes "KEY=value" pairs by name, ignoring case. An exact
// match wins over other spellings of the same name.
func EnvLookup(environ []string) func(string) (string, bool) {
	exact := make(map[string]string, len(environ))
	folded := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		exact[k] = v
		folded[strings.ToUpper(k)] = v
	}
	return func(key string) (string, bool) {
		if v, ok := exact[key]; ok {
			return v, true
		}
		v, ok := folded[strings.ToUpper(key)]
		return v, ok
	}
}

// ApplyEnv overrides settings from environment variables. Comma-separated
// values are accepted for list settings.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	integer := func(key string, set func(int64)) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		set(n)
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	provider := func(prefix string, p *ProviderConfig) {
		str(prefix+"_TYPE", &p.Type)
		str(prefix+"_URL", &p.URL)
		str(prefix+"_API_KEY", &p.APIKey)
		str(prefix+"_MODEL", &p.Model)
	}

	str("HOST", &c.Server.Host)
	integer("PORT", func(n int64) { c.Server.Port = int(n) })
	list("CORS_ORIGINS", &c.Server.CORSOrigins)
	duration("REQUEST_TIMEOUT", &c.Server.RequestTimeout)

	str("UPLOAD_DIR", &c.Storage.UploadDir)
	integer("MAX_FILE_SIZE", func(n int64) { c.Storage.MaxFileSize = n })
	list("ALLOWED_EXTENSIONS", &c.Storage.AllowedExtensions)
	duration("AUDIO_RETENTION", &c.Storage.AudioRetention)
	str("CLEANUP_SCHEDULE", &c.Storage.CleanupSchedule)

	// GEMINI_API_KEY is the SDK's conventional name; the explicit
	// CAPTION_PRIMARY_API_KEY below still wins.
	if c.Caption.Primary.Type == "gemini" {
		str("GEMINI_API_KEY", &c.Caption.Primary.APIKey)
	}
	provider("CAPTION_PRIMARY", &c.Caption.Primary)
	provider("CAPTION_SECONDARY", &c.Caption.Secondary)
	str("KOSMOS_MODEL_PATH", &c.Caption.Secondary.Model)

	str("TTS_URL", &c.Speech.URL)
	str("XTTS_MODEL_PATH", &c.Speech.Model)
	str("TTS_MODEL", &c.Speech.Model)
	duration("TTS_TIMEOUT", &c.Speech.Timeout)
	if c.Speech.Fallback.Type == "openai" {
		str("OPENAI_API_KEY", &c.Speech.Fallback.APIKey)
	}
	str("TTS_API_KEY", &c.Speech.Fallback.APIKey)
	provider("TTS_FALLBACK", &c.Speech.Fallback)

	str("DEVICE", &c.AI.Device)
	integer("MAX_STORY_LENGTH", func(n int64) { c.AI.MaxStoryLength = int(n) })
	integer("AUDIO_SAMPLE_RATE", func(n int64) { c.AI.AudioSampleRate = int(n) })
	str("AUDIO_FORMAT", &c.AI.AudioFormat)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	str("METRICS_ENDPOINT", &c.Metrics.Endpoint)

	return errors.Join(errs...)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.AI.Device {
	case "auto", "cpu", "cuda":
	default:
		errs = append(errs, fmt.Errorf("ai.device must be auto, cpu or cuda, got %q", c.AI.Device))
	}
	if c.Storage.UploadDir == "" {
		errs = append(errs, errors.New("storage.upload_dir is required"))
	}
	if c.Storage.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("storage.max_file_size must be positive, got %d", c.Storage.MaxFileSize))
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("storage.allowed_extensions must not be empty"))
	}
	if c.Storage.AudioRetention < 0 {
		errs = append(errs, fmt.Errorf("storage.audio_retention must not be negative, got %s", c.Storage.AudioRetention))
	}
	if c.Storage.AudioRetention > 0 && c.Storage.CleanupSchedule == "" {
		errs = append(errs, errors.New("storage.cleanup_schedule is required when audio_retention is set"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.AI.AudioFormat == "" {
		errs = append(errs, errors.New("ai.audio_format is required"))
	}
	if c.AI.MaxStoryLength < 0 {
		errs = append(errs, fmt.Errorf("ai.max_story_length must not be negative, got %d", c.AI.MaxStoryLength))
	}
	return errors.Join(errs...)
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
