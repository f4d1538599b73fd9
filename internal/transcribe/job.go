// Package transcribe runs asynchronous speech-to-text jobs against a
// cloud transcription service and waits for them to finish.
package transcribe

import "context"

// JobStatus is the provider-reported state of a transcription job.
type JobStatus string

const (
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further status transition can occur.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobRequest describes a transcription job to submit.
type JobRequest struct {
	Name         string
	MediaURI     string
	MediaFormat  string
	LanguageCode string
	OutputBucket string
	OutputKey    string
}

// JobState is a point-in-time snapshot of a submitted job. TranscriptURI
// is set only once the job has completed.
type JobState struct {
	Status        JobStatus
	TranscriptURI string
}

// Service is the transcription provider contract.
type Service interface {
	Start(ctx context.Context, req JobRequest) error
	Status(ctx context.Context, name string) (JobState, error)
	Delete(ctx context.Context, name string) error
	Name() string
}

// Notifier receives a signal on every poll iteration so a UI can show a
// working indicator while the job is in flight.
type Notifier interface {
	Working(jobName string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(jobName string)

func (f NotifierFunc) Working(jobName string) { f(jobName) }
