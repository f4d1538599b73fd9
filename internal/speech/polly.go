package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// PollySynthesizer narrates text with Amazon Polly.
type PollySynthesizer struct {
	client *polly.Client
	voice  string
	engine string
}

func NewPollySynthesizer(cfg aws.Config, voice, engine string) *PollySynthesizer {
	if voice == "" {
		voice = "Ivy"
	}
	if engine == "" {
		engine = "neural"
	}
	return &PollySynthesizer{
		client: polly.NewFromConfig(cfg),
		voice:  voice,
		engine: engine,
	}
}

func (s *PollySynthesizer) Name() string { return "polly" }

func (s *PollySynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormatMp3,
		VoiceId:      types.VoiceId(s.voice),
		Engine:       types.Engine(s.engine),
	})
	if err != nil {
		return nil, fmt.Errorf("polly synthesize: %w", err)
	}

	if out.AudioStream == nil {
		return nil, fmt.Errorf("polly synthesize: response contains no audio stream")
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("polly read audio stream: %w", err)
	}
	return audio, nil
}
