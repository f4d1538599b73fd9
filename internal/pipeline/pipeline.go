// Package pipeline chains upload, transcription, story generation, and
// narration synthesis into one run per recorded clip.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"taleweaver/internal/speech"
	"taleweaver/internal/storage"
	"taleweaver/internal/story"
	"taleweaver/internal/transcribe"
)

// Scratch file names inside a per-run work directory.
const (
	RecordingFile = "recording.wav"
	NarrationFile = "story.mp3"
)

// Progress receives coarse updates while a run advances. Heartbeat fires
// once per transcription poll so a UI can keep a busy indicator alive.
type Progress interface {
	Stage(stage Stage)
	Heartbeat()
}

type nopProgress struct{}

func (nopProgress) Stage(Stage) {}
func (nopProgress) Heartbeat()  {}

// TranscriptionRunner waits for an asynchronous transcription job and
// resolves the transcript result URI.
type TranscriptionRunner interface {
	Run(ctx context.Context, req transcribe.JobRequest, notify transcribe.Notifier) (string, error)
}

// Config holds the fixed cloud-side locations and job parameters.
type Config struct {
	Bucket           string
	AudioPrefix      string
	TranscriptPrefix string
	MediaFormat      string
	LanguageCode     string
}

// Result is the product of a successful run.
type Result struct {
	JobName    string
	Transcript string
	Story      string
	AudioPath  string
}

// Pipeline owns the stage collaborators. It is safe for concurrent runs
// as long as each run gets its own work directory.
type Pipeline struct {
	store  storage.ObjectStore
	jobs   TranscriptionRunner
	gen    story.Generator
	tts    speech.Synthesizer
	cfg    Config
	logger *slog.Logger
}

func New(store storage.ObjectStore, jobs TranscriptionRunner, gen story.Generator, tts speech.Synthesizer, cfg Config) *Pipeline {
	if cfg.MediaFormat == "" {
		cfg.MediaFormat = "wav"
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	return &Pipeline{
		store:  store,
		jobs:   jobs,
		gen:    gen,
		tts:    tts,
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// Run executes the full chain: save the clip, upload it, transcribe it,
// generate a story from the transcript, synthesize narration, and write
// the MP3 into workDir. The first failing stage halts the run; there is
// no retry and no partial success.
func (p *Pipeline) Run(ctx context.Context, audio []byte, workDir string, progress Progress) (*Result, error) {
	if progress == nil {
		progress = nopProgress{}
	}

	jobName := "TranscribeJob-" + uuid.NewString()
	log := p.logger.With("job", jobName)

	progress.Stage(StageIngest)

	inputPath := filepath.Join(workDir, RecordingFile)
	if err := os.WriteFile(inputPath, audio, 0o644); err != nil {
		return nil, stageErr(StageIngest, fmt.Errorf("save recording: %w", err))
	}

	audioLoc := storage.Location{
		Bucket: p.cfg.Bucket,
		Key:    path.Join(p.cfg.AudioPrefix, jobName+"."+p.cfg.MediaFormat),
	}
	if err := p.store.Upload(ctx, inputPath, audioLoc); err != nil {
		return nil, stageErr(StageIngest, fmt.Errorf("upload recording: %w", err))
	}
	log.Info("recording uploaded", "location", audioLoc.String(), "bytes", len(audio))

	progress.Stage(StageTranscribe)

	transcriptURI, err := p.jobs.Run(ctx, transcribe.JobRequest{
		Name:         jobName,
		MediaURI:     audioLoc.String(),
		MediaFormat:  p.cfg.MediaFormat,
		LanguageCode: p.cfg.LanguageCode,
		OutputBucket: p.cfg.Bucket,
		OutputKey:    path.Join(p.cfg.TranscriptPrefix, jobName+".json"),
	}, transcribe.NotifierFunc(func(string) { progress.Heartbeat() }))
	if err != nil {
		return nil, stageErr(StageTranscribe, err)
	}

	transcript, err := p.fetchTranscript(ctx, transcriptURI)
	if err != nil {
		return nil, stageErr(StageTranscribe, err)
	}
	log.Info("transcript extracted", "chars", len(transcript))

	progress.Stage(StageGenerate)

	storyText, err := p.gen.Generate(ctx, transcript)
	if err != nil {
		return nil, stageErr(StageGenerate, err)
	}
	if strings.TrimSpace(storyText) == "" {
		return nil, stageErr(StageGenerate, ErrEmptyStory)
	}
	log.Info("story generated", "provider", p.gen.Name(), "chars", len(storyText))

	progress.Stage(StageSynthesize)

	narration, err := p.tts.Synthesize(ctx, storyText)
	if err != nil {
		return nil, stageErr(StageSynthesize, err)
	}
	if len(narration) == 0 {
		return nil, stageErr(StageSynthesize, ErrEmptyAudio)
	}

	outputPath := filepath.Join(workDir, NarrationFile)
	if err := os.WriteFile(outputPath, narration, 0o644); err != nil {
		return nil, stageErr(StageSynthesize, fmt.Errorf("save narration: %w", err))
	}
	log.Info("narration written", "provider", p.tts.Name(), "path", outputPath, "bytes", len(narration))

	return &Result{
		JobName:    jobName,
		Transcript: transcript,
		Story:      storyText,
		AudioPath:  outputPath,
	}, nil
}

// fetchTranscript resolves the result URI, reads the result document,
// and pulls out the plain-text transcript.
func (p *Pipeline) fetchTranscript(ctx context.Context, uri string) (string, error) {
	loc, err := storage.ParseTranscriptURI(uri)
	if err != nil {
		return "", err
	}

	data, err := p.store.Fetch(ctx, loc)
	if err != nil {
		return "", fmt.Errorf("fetch transcript %s: %w", loc, err)
	}

	return transcribe.ExtractTranscript(data)
}
