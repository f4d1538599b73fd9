package transcribe

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoTranscript is returned when a result document does not carry a
// transcript at the expected schema path.
var ErrNoTranscript = errors.New("result document contains no transcript")

// Result mirrors the JSON document a completed job writes to the output
// bucket. Only the fields the pipeline reads are mapped.
type Result struct {
	JobName string `json:"jobName"`
	Status  string `json:"status"`
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ExtractTranscript decodes a result document and returns the first
// transcript entry. A document that does not conform to the schema is a
// format error, not an empty transcript.
func ExtractTranscript(data []byte) (string, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return "", fmt.Errorf("decode result document: %w", err)
	}
	if len(res.Results.Transcripts) == 0 {
		return "", ErrNoTranscript
	}
	return res.Results.Transcripts[0].Transcript, nil
}
