package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweaver/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "en-US", cfg.Transcribe.LanguageCode)
	assert.Equal(t, "wav", cfg.Transcribe.MediaFormat)
	assert.Equal(t, 5*time.Second, cfg.Transcribe.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Transcribe.MaxWait)
	assert.Equal(t, "anthropic", cfg.Story.Backend)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.Story.Model)
	assert.Equal(t, 512, cfg.Story.MaxTokens)
	assert.Equal(t, "polly", cfg.Speech.Backend)
	assert.Equal(t, "Ivy", cfg.Speech.Voice)
	assert.Equal(t, "neural", cfg.Speech.Engine)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TRANSCRIBE_POLL_INTERVAL", "250ms")
	t.Setenv("STORY_BACKEND", "openai")
	t.Setenv("SPEECH_VOICE", "Joanna")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Transcribe.PollInterval)
	assert.Equal(t, "openai", cfg.Story.Backend)
	assert.Equal(t, "Joanna", cfg.Speech.Voice)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := config.Load()
	require.Error(t, err)
}

func TestValidateMissingBucket(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "")
	t.Setenv("ANTHROPIC_API_KEY", "key")

	cfg, err := config.Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BUCKET")
}

func TestValidateBackendKeys(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "bkt")
	t.Setenv("STORY_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestAddr(t *testing.T) {
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "3000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3000", cfg.Addr())
}
