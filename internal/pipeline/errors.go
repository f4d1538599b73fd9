package pipeline

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step that produced a failure.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageTranscribe Stage = "transcribe"
	StageGenerate   Stage = "generate"
	StageSynthesize Stage = "synthesize"
)

var (
	// ErrEmptyStory is returned when the model call succeeds but yields
	// no usable text. Callers treat it exactly like a provider failure.
	ErrEmptyStory = errors.New("model returned an empty story")

	// ErrEmptyAudio is returned when synthesis yields no audio bytes.
	ErrEmptyAudio = errors.New("synthesizer returned no audio")
)

// StageError wraps a failure with the stage it occurred in. Every stage
// reports through this one shape so the caller only ever has to decide
// "did this stage produce a usable value".
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// FailedStage extracts the stage from an error returned by Run, or ""
// when the error did not come from a pipeline stage.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
