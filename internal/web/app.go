// Package web hosts the browser-facing session layer: the recording
// page, the story API, and per-session progress over websockets.
package web

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"taleweaver/internal/pipeline"
)

//go:embed static
var staticFiles embed.FS

const defaultMaxUploadBytes = 25 * 1024 * 1024

// runTimeout bounds one pipeline run end to end, transcription wait
// included.
const runTimeout = 20 * time.Minute

// StoryRunner is the pipeline contract the app drives.
type StoryRunner interface {
	Run(ctx context.Context, audio []byte, workDir string, progress pipeline.Progress) (*pipeline.Result, error)
}

// wsClient serializes writes to one websocket connection. The snapshot
// write on subscribe and broadcasts from the pipeline goroutine would
// otherwise hit the connection concurrently, which gorilla/websocket
// does not allow.
type wsClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// App serves the UI and owns the in-memory session map. One pipeline run
// per session; each run gets its own scratch directory.
type App struct {
	logger *slog.Logger
	router *chi.Mux
	runner StoryRunner

	scratchDir     string
	maxUploadBytes int64

	mu       sync.RWMutex
	sessions map[string]*Session
	subs     map[string]map[*wsClient]struct{}

	upgrader websocket.Upgrader
}

func NewApp(logger *slog.Logger, runner StoryRunner, scratchDir string) *App {
	app := &App{
		logger:         logger,
		router:         chi.NewRouter(),
		runner:         runner,
		scratchDir:     scratchDir,
		maxUploadBytes: defaultMaxUploadBytes,
		sessions:       make(map[string]*Session),
		subs:           make(map[string]map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	app.registerRoutes()
	return app
}

func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) registerRoutes() {
	a.router.Use(chimiddleware.RequestID)
	a.router.Use(chimiddleware.RealIP)
	a.router.Use(chimiddleware.Recoverer)

	a.router.Get("/healthz", a.health)
	a.router.Post("/api/stories", a.createStory)
	a.router.Get("/api/stories/{id}", a.getStory)
	a.router.Get("/api/stories/{id}/audio", a.storyAudio)
	a.router.Get("/ws/{id}", a.sessionWS)

	assets, _ := fs.Sub(staticFiles, "static")
	a.router.Handle("/*", http.FileServer(http.FS(assets)))
}

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createStory accepts a recorded clip as multipart form field "audio",
// registers a session, and kicks off the pipeline in the background.
func (a *App) createStory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	if err := r.ParseMultipartForm(a.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid upload"})
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "audio field required"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty audio upload"})
		return
	}

	workDir, err := os.MkdirTemp(a.scratchDir, "taleweaver-")
	if err != nil {
		a.logger.Error("failed to create session scratch dir", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Status:    StatusProcessing,
		Stage:     string(pipeline.StageIngest),
		CreatedAt: now,
		UpdatedAt: now,
		workDir:   workDir,
	}

	a.mu.Lock()
	a.sessions[session.ID] = session
	a.mu.Unlock()

	a.logger.Info("story session created", "session", session.ID, "audio_bytes", len(audio))
	go a.runStory(session.ID, audio, workDir)

	writeJSON(w, http.StatusAccepted, session)
}

func (a *App) runStory(sessionID string, audio []byte, workDir string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	res, err := a.runner.Run(ctx, audio, workDir, &sessionProgress{app: a, id: sessionID})
	if err != nil {
		stage := pipeline.FailedStage(err)
		a.logger.Error("story run failed", "session", sessionID, "stage", stage, "error", err)
		a.updateSession(sessionID, func(s *Session) {
			s.Status = StatusFailed
			s.Stage = string(stage)
			s.Error = failureMessage(stage)
		})
		a.broadcast(sessionID, ProgressEvent{
			ID:     sessionID,
			Status: StatusFailed,
			Stage:  string(stage),
			Error:  failureMessage(stage),
		})
		return
	}

	audioURL := "/api/stories/" + sessionID + "/audio"
	a.updateSession(sessionID, func(s *Session) {
		s.Status = StatusCompleted
		s.Stage = ""
		s.Transcript = res.Transcript
		s.Story = res.Story
		s.AudioURL = audioURL
		s.audioPath = res.AudioPath
	})

	a.broadcast(sessionID, ProgressEvent{
		ID:        sessionID,
		Status:    StatusCompleted,
		Story:     res.Story,
		AudioURL:  audioURL,
		AudioData: audioDataURI(res.AudioPath),
	})
	a.logger.Info("story session completed", "session", sessionID)
}

func (a *App) getStory(w http.ResponseWriter, r *http.Request) {
	session, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *App) storyAudio(w http.ResponseWriter, r *http.Request) {
	session, ok := a.getSession(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if session.Status != StatusCompleted || session.audioPath == "" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "narration not ready"})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, session.audioPath)
}

func (a *App) sessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	session, ok := a.getSession(sessionID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn}

	a.mu.Lock()
	if a.subs[sessionID] == nil {
		a.subs[sessionID] = make(map[*wsClient]struct{})
	}
	a.subs[sessionID][client] = struct{}{}
	a.mu.Unlock()

	_ = client.writeJSON(snapshotEvent(session))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	a.mu.Lock()
	delete(a.subs[sessionID], client)
	a.mu.Unlock()
	_ = conn.Close()
}

// snapshotEvent turns the current session state into the event a fresh
// subscriber sees first.
func snapshotEvent(s *Session) ProgressEvent {
	evt := ProgressEvent{
		ID:     s.ID,
		Status: s.Status,
		Stage:  s.Stage,
		Error:  s.Error,
	}
	if s.Status == StatusCompleted {
		evt.Story = s.Story
		evt.AudioURL = s.AudioURL
		evt.AudioData = audioDataURI(s.audioPath)
	}
	return evt
}

func (a *App) broadcast(sessionID string, evt ProgressEvent) {
	a.mu.RLock()
	clients := make([]*wsClient, 0, len(a.subs[sessionID]))
	for c := range a.subs[sessionID] {
		clients = append(clients, c)
	}
	a.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(evt); err != nil {
			a.mu.Lock()
			delete(a.subs[sessionID], c)
			a.mu.Unlock()
			_ = c.conn.Close()
		}
	}
}

func (a *App) getSession(id string) (*Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sessions[id]
	if !ok {
		return nil, false
	}
	clone := *s
	return &clone, true
}

func (a *App) updateSession(id string, fn func(*Session)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[id]; ok {
		fn(s)
		s.UpdatedAt = time.Now()
	}
}

// StartCleanupLoop reclaims expired sessions and their scratch dirs.
func (a *App) StartCleanupLoop(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.cleanup(ttl)
			}
		}
	}()
}

func (a *App) cleanup(ttl time.Duration) {
	now := time.Now()
	cutoff := now.Add(-ttl)
	// A processing session whose last update is older than the run
	// timeout has no live goroutine behind it anymore; it is reclaimed
	// like any other, so an interrupted run cannot pin its scratch dir
	// forever.
	stuckCutoff := now.Add(-runTimeout)
	var expired []Session

	a.mu.Lock()
	for id, s := range a.sessions {
		if !s.UpdatedAt.Before(cutoff) {
			continue
		}
		if s.Status == StatusProcessing && !s.UpdatedAt.Before(stuckCutoff) {
			continue
		}
		expired = append(expired, *s)
		delete(a.sessions, id)
	}
	a.mu.Unlock()

	for _, s := range expired {
		if s.workDir != "" {
			_ = os.RemoveAll(s.workDir)
		}
	}

	if len(expired) > 0 {
		a.logger.Info("session cleanup completed", "removed", len(expired))
	}
}

// sessionProgress forwards pipeline progress to websocket subscribers.
type sessionProgress struct {
	app *App
	id  string
}

func (p *sessionProgress) Stage(stage pipeline.Stage) {
	p.app.updateSession(p.id, func(s *Session) {
		s.Stage = string(stage)
	})
	p.app.broadcast(p.id, ProgressEvent{ID: p.id, Status: StatusProcessing, Stage: string(stage)})
}

func (p *sessionProgress) Heartbeat() {
	p.app.broadcast(p.id, ProgressEvent{
		ID:      p.id,
		Status:  StatusProcessing,
		Stage:   string(pipeline.StageTranscribe),
		Working: true,
	})
}

// audioDataURI base64-embeds the narration file for autoplay in the
// browser; empty on any read error, the audio URL still works.
func audioDataURI(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
