// Package story turns a spoken-request transcript into a children's
// story, poem, or joke using a generative language model.
package story

import "context"

// Generator abstracts a generative-text backend.
type Generator interface {
	// Generate returns prose for the given transcript. An empty return
	// with a nil error never happens; providers report failures as
	// errors and callers must treat an empty story as one.
	Generate(ctx context.Context, transcript string) (string, error)
	Name() string
}
