package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrBadTranscriptURI is returned when a transcript URI does not match
// the expected S3 HTTPS shape.
var ErrBadTranscriptURI = errors.New("invalid transcript URI")

// Location identifies a blob in the object store.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// ObjectStore abstracts the content-storage service.
type ObjectStore interface {
	Upload(ctx context.Context, localPath string, loc Location) error
	Fetch(ctx context.Context, loc Location) ([]byte, error)
	Name() string
}

// ParseTranscriptURI extracts (bucket, key) from a Transcribe result URI
// of the form https://<host>.amazonaws.com/<bucket>/<key...>. The key may
// itself contain slashes. Anything else fails with ErrBadTranscriptURI;
// this is a strict format contract, not a general URL parser.
func ParseTranscriptURI(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrBadTranscriptURI, err)
	}

	if u.Scheme != "https" || !strings.Contains(u.Host, ".amazonaws.com") {
		return Location{}, fmt.Errorf("%w: %q", ErrBadTranscriptURI, raw)
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("%w: cannot split bucket and key from %q", ErrBadTranscriptURI, raw)
	}

	return Location{Bucket: parts[0], Key: parts[1]}, nil
}
