package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweaver/internal/pipeline"
	"taleweaver/internal/web"
)

type fakeRunner struct {
	story string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, _ []byte, workDir string, progress pipeline.Progress) (*pipeline.Result, error) {
	if progress != nil {
		progress.Stage(pipeline.StageIngest)
		progress.Stage(pipeline.StageTranscribe)
		progress.Heartbeat()
	}
	if f.err != nil {
		return nil, f.err
	}

	audioPath := filepath.Join(workDir, pipeline.NarrationFile)
	if err := os.WriteFile(audioPath, []byte("mp3-data"), 0o644); err != nil {
		return nil, err
	}
	return &pipeline.Result{
		JobName:    "TranscribeJob-test",
		Transcript: "tell me a story",
		Story:      f.story,
		AudioPath:  audioPath,
	}, nil
}

func newTestApp(t *testing.T, runner web.StoryRunner) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := web.NewApp(logger, runner, t.TempDir())
	srv := httptest.NewServer(app.Router())
	t.Cleanup(srv.Close)
	return srv
}

func postRecording(t *testing.T, srv *httptest.Server, audio []byte) map[string]any {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "recording.wav")
	require.NoError(t, err)
	_, err = fw.Write(audio)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/stories", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var session map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func waitForStatus(t *testing.T, srv *httptest.Server, id, want string) map[string]any {
	t.Helper()

	var session map[string]any
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/api/stories/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		session = map[string]any{}
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return false
		}
		return session["status"] == want
	}, 2*time.Second, 10*time.Millisecond)
	return session
}

func TestStoryLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestApp(t, &fakeRunner{story: "Once upon a time."})

	created := postRecording(t, srv, []byte("fake-audio"))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "processing", created["status"])

	session := waitForStatus(t, srv, id, "completed")
	assert.Equal(t, "Once upon a time.", session["story"])
	assert.Equal(t, "tell me a story", session["transcript"])
	assert.Equal(t, "/api/stories/"+id+"/audio", session["audioUrl"])

	resp, err := http.Get(srv.URL + "/api/stories/" + id + "/audio")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-data"), audio)
}

func TestStoryFailureSurfacesStageMessage(t *testing.T) {
	t.Parallel()

	stageErr := &pipeline.StageError{Stage: pipeline.StageGenerate, Err: pipeline.ErrEmptyStory}
	srv := newTestApp(t, &fakeRunner{err: stageErr})

	created := postRecording(t, srv, []byte("fake-audio"))
	id, _ := created["id"].(string)

	session := waitForStatus(t, srv, id, "failed")
	assert.Equal(t, "generate", session["stage"])
	errMsg, _ := session["error"].(string)
	assert.NotEmpty(t, errMsg)

	// Narration was never produced.
	resp, err := http.Get(srv.URL + "/api/stories/" + id + "/audio")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateStoryRequiresAudioField(t *testing.T) {
	t.Parallel()

	srv := newTestApp(t, &fakeRunner{story: "x"})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no audio here"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/stories", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknownSession(t *testing.T) {
	t.Parallel()

	srv := newTestApp(t, &fakeRunner{})

	resp, err := http.Get(srv.URL + "/api/stories/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestApp(t, &fakeRunner{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndexServed(t *testing.T) {
	t.Parallel()

	srv := newTestApp(t, &fakeRunner{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "TaleWeaver")
}

// burstRunner blocks until released, then hammers the progress callback
// from several goroutines at once, the way transcription heartbeats and
// stage changes can overlap in a real run.
type burstRunner struct {
	ready <-chan struct{}
}

func (r *burstRunner) Run(_ context.Context, _ []byte, workDir string, progress pipeline.Progress) (*pipeline.Result, error) {
	<-r.ready

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				progress.Heartbeat()
			}
		}()
	}
	wg.Wait()

	audioPath := filepath.Join(workDir, pipeline.NarrationFile)
	if err := os.WriteFile(audioPath, []byte("mp3-data"), 0o644); err != nil {
		return nil, err
	}
	return &pipeline.Result{
		JobName:    "TranscribeJob-test",
		Transcript: "tell me a story",
		Story:      "Once upon a time.",
		AudioPath:  audioPath,
	}, nil
}

func TestWebsocketSurvivesConcurrentProgressEvents(t *testing.T) {
	t.Parallel()

	ready := make(chan struct{})
	srv := newTestApp(t, &burstRunner{ready: ready})

	created := postRecording(t, srv, []byte("fake-audio"))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + id
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// First frame is the session snapshot; once it arrives the
	// subscription is registered and the run can be released.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var snapshot map[string]any
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, "processing", snapshot["status"])
	close(ready)

	working := 0
	for {
		var evt map[string]any
		require.NoError(t, conn.ReadJSON(&evt), "connection broke mid-run after %d working events", working)
		if evt["working"] == true {
			working++
		}
		if evt["status"] == "completed" {
			assert.Equal(t, "Once upon a time.", evt["story"])
			break
		}
	}
	assert.Equal(t, 200, working)
}

func TestRunnerErrorIsNotLeakedVerbatim(t *testing.T) {
	t.Parallel()

	srv := newTestApp(t, &fakeRunner{err: errors.New("aws: AccessDenied on bucket xyz")})

	created := postRecording(t, srv, []byte("fake-audio"))
	id, _ := created["id"].(string)

	session := waitForStatus(t, srv, id, "failed")
	errMsg, _ := session["error"].(string)
	assert.NotContains(t, errMsg, "AccessDenied")
}
