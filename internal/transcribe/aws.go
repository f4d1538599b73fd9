package transcribe

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

// transcribeAPI is the slice of the Amazon Transcribe client this
// service calls.
type transcribeAPI interface {
	StartTranscriptionJob(ctx context.Context, in *awstranscribe.StartTranscriptionJobInput, opts ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *awstranscribe.GetTranscriptionJobInput, opts ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error)
	DeleteTranscriptionJob(ctx context.Context, in *awstranscribe.DeleteTranscriptionJobInput, opts ...func(*awstranscribe.Options)) (*awstranscribe.DeleteTranscriptionJobOutput, error)
}

// AWSService drives Amazon Transcribe jobs.
type AWSService struct {
	client transcribeAPI
}

func NewAWSService(cfg aws.Config) *AWSService {
	return &AWSService{client: awstranscribe.NewFromConfig(cfg)}
}

func (s *AWSService) Name() string { return "aws-transcribe" }

func (s *AWSService) Start(ctx context.Context, req JobRequest) error {
	_, err := s.client.StartTranscriptionJob(ctx, &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.Name),
		Media: &types.Media{
			MediaFileUri: aws.String(req.MediaURI),
		},
		MediaFormat:      types.MediaFormat(req.MediaFormat),
		LanguageCode:     types.LanguageCode(req.LanguageCode),
		OutputBucketName: aws.String(req.OutputBucket),
		OutputKey:        aws.String(req.OutputKey),
	})
	if err != nil {
		return fmt.Errorf("start transcription job: %w", err)
	}
	return nil
}

func (s *AWSService) Status(ctx context.Context, name string) (JobState, error) {
	out, err := s.client.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
	})
	if err != nil {
		return JobState{}, fmt.Errorf("get transcription job: %w", err)
	}

	job := out.TranscriptionJob
	if job == nil {
		return JobState{}, fmt.Errorf("get transcription job %s: no job in response", name)
	}
	state := JobState{Status: JobStatus(job.TranscriptionJobStatus)}
	if job.Transcript != nil && job.Transcript.TranscriptFileUri != nil {
		state.TranscriptURI = *job.Transcript.TranscriptFileUri
	}
	return state, nil
}

func (s *AWSService) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteTranscriptionJob(ctx, &awstranscribe.DeleteTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("delete transcription job: %w", err)
	}
	return nil
}
