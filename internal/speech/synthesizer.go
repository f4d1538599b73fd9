// Package speech converts generated story text into narration audio.
package speech

import "context"

// Synthesizer abstracts a text-to-speech backend. Output is MP3 bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Name() string
}
