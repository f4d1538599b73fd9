package web

import (
	"time"

	"taleweaver/internal/pipeline"
)

// SessionStatus is the lifecycle state of one story session.
type SessionStatus string

const (
	StatusProcessing SessionStatus = "processing"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
)

// Session tracks one record-to-playback run.
type Session struct {
	ID         string        `json:"id"`
	Status     SessionStatus `json:"status"`
	Stage      string        `json:"stage,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	Story      string        `json:"story,omitempty"`
	Error      string        `json:"error,omitempty"`
	AudioURL   string        `json:"audioUrl,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`

	audioPath string
	workDir   string
}

// ProgressEvent is pushed to websocket subscribers as a run advances.
// AudioData carries the finished narration as a base64 data URI so the
// page can autoplay it without another round trip.
type ProgressEvent struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	Stage     string        `json:"stage,omitempty"`
	Working   bool          `json:"working,omitempty"`
	Message   string        `json:"message,omitempty"`
	Story     string        `json:"story,omitempty"`
	AudioURL  string        `json:"audioUrl,omitempty"`
	AudioData string        `json:"audioData,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// stageMessages are the generic, user-facing failure texts per stage.
var stageMessages = map[pipeline.Stage]string{
	pipeline.StageIngest:     "We couldn't save your recording. Please try again.",
	pipeline.StageTranscribe: "We couldn't understand your recording. Please try again.",
	pipeline.StageGenerate:   "Storytime Buddy couldn't think of a story. Please try again.",
	pipeline.StageSynthesize: "We couldn't read the story aloud. Please try again.",
}

func failureMessage(stage pipeline.Stage) string {
	if msg, ok := stageMessages[stage]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
