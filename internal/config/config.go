package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Transcribe TranscribeConfig
	Story      StoryConfig
	Speech     SpeechConfig
}

type ServerConfig struct {
	Host       string
	Port       int
	ScratchDir string
	SessionTTL time.Duration
}

type StorageConfig struct {
	Region           string
	Bucket           string
	AudioPrefix      string
	TranscriptPrefix string
}

type TranscribeConfig struct {
	LanguageCode string
	MediaFormat  string
	PollInterval time.Duration
	MaxInterval  time.Duration
	MaxWait      time.Duration
}

type StoryConfig struct {
	Backend      string // "anthropic" or "openai"
	AnthropicKey string
	OpenAIKey    string
	Model        string
	OpenAIModel  string
	MaxTokens    int
}

type SpeechConfig struct {
	Backend     string // "polly" or "openai"
	Voice       string
	Engine      string
	OpenAIKey   string
	OpenAIModel string
	OpenAIVoice string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxTokens, err := getEnvInt("STORY_MAX_TOKENS", 512)
	if err != nil {
		return nil, fmt.Errorf("invalid STORY_MAX_TOKENS: %w", err)
	}

	sessionTTL, err := getEnvDuration("SESSION_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	pollInterval, err := getEnvDuration("TRANSCRIBE_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_POLL_INTERVAL: %w", err)
	}

	maxInterval, err := getEnvDuration("TRANSCRIBE_MAX_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_MAX_INTERVAL: %w", err)
	}

	maxWait, err := getEnvDuration("TRANSCRIBE_MAX_WAIT", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIBE_MAX_WAIT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:       getEnv("SERVER_HOST", "0.0.0.0"),
			Port:       port,
			ScratchDir: getEnv("SCRATCH_DIR", os.TempDir()),
			SessionTTL: sessionTTL,
		},
		Storage: StorageConfig{
			Region:           getEnv("AWS_REGION", "us-west-2"),
			Bucket:           getEnv("STORAGE_BUCKET", ""),
			AudioPrefix:      getEnv("STORAGE_AUDIO_PREFIX", "recordings"),
			TranscriptPrefix: getEnv("STORAGE_TRANSCRIPT_PREFIX", "transcripts"),
		},
		Transcribe: TranscribeConfig{
			LanguageCode: getEnv("TRANSCRIBE_LANGUAGE_CODE", "en-US"),
			MediaFormat:  getEnv("TRANSCRIBE_MEDIA_FORMAT", "wav"),
			PollInterval: pollInterval,
			MaxInterval:  maxInterval,
			MaxWait:      maxWait,
		},
		Story: StoryConfig{
			Backend:      getEnv("STORY_BACKEND", "anthropic"),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:        getEnv("STORY_MODEL", "claude-3-haiku-20240307"),
			OpenAIModel:  getEnv("STORY_OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:    maxTokens,
		},
		Speech: SpeechConfig{
			Backend:     getEnv("SPEECH_BACKEND", "polly"),
			Voice:       getEnv("SPEECH_VOICE", "Ivy"),
			Engine:      getEnv("SPEECH_ENGINE", "neural"),
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel: getEnv("SPEECH_OPENAI_MODEL", "tts-1"),
			OpenAIVoice: getEnv("SPEECH_OPENAI_VOICE", "alloy"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Storage.Bucket == "" {
		missing = append(missing, "STORAGE_BUCKET")
	}
	if c.Story.Backend == "anthropic" && c.Story.AnthropicKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if c.Story.Backend == "openai" && c.Story.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Speech.Backend == "openai" && c.Speech.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
