package transcribe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweaver/internal/transcribe"
)

func TestExtractTranscript(t *testing.T) {
	t.Parallel()

	doc := []byte(`{"results":{"transcripts":[{"transcript":"hello world"}]}}`)
	got, err := transcribe.ExtractTranscript(doc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestExtractTranscriptFirstEntryWins(t *testing.T) {
	t.Parallel()

	doc := []byte(`{"results":{"transcripts":[{"transcript":"first"},{"transcript":"second"}]}}`)
	got, err := transcribe.ExtractTranscript(doc)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestExtractTranscriptMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `not json at all`},
		{"missing results", `{}`},
		{"empty transcripts", `{"results":{"transcripts":[]}}`},
		{"wrong shape", `{"results":"oops"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := transcribe.ExtractTranscript([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}
