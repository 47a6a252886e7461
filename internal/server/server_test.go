package server

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/castro/internal/bus"
	"github.com/desertthunder/castro/internal/downloads"
	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/player"
	"github.com/desertthunder/castro/internal/repositories"
	"github.com/desertthunder/castro/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// recordingTransport mirrors the engine's action dispatch for handler tests.
type recordingTransport struct {
	calls []string
}

func (tr *recordingTransport) PlayerAction(action string) error {
	switch action {
	case "play", "pause", "stop", "skip_forwards", "skip_backwards":
		tr.calls = append(tr.calls, action)
		return nil
	default:
		return shared.ErrInvalidArgument
	}
}

type fixture struct {
	handler   *LibraryHandler
	router    *BasicRouter
	podcasts  *repositories.PodcastRepository
	episodes  *repositories.EpisodeRepository
	tracker   *downloads.Tracker
	transport *recordingTransport
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	logger := shared.NewLogger(io.Discard)
	f := &fixture{
		podcasts:  repositories.NewPodcastRepository(db),
		episodes:  repositories.NewEpisodeRepository(db),
		tracker:   downloads.NewTracker(),
		transport: &recordingTransport{},
	}
	f.handler = NewLibraryHandler(f.podcasts, f.episodes, f.tracker, player.New(nil, 0.8, logger), f.transport, logger)
	f.router = NewBasicRouter()
	f.router.Handler(f.handler)
	return f
}

func (f *fixture) seed(t *testing.T) (*models.Podcast, *models.Episode) {
	t.Helper()

	podcast := &models.Podcast{Title: "Go Time", FeedURL: "http://example.com/feed.xml"}
	if err := f.podcasts.Create(podcast); err != nil {
		t.Fatalf("failed to seed podcast: %v", err)
	}
	episode := &models.Episode{
		PodcastID:       podcast.ID,
		GUID:            "ep-1",
		Title:           "Episode One",
		AudioURL:        "http://example.com/ep-1.mp3",
		DurationSeconds: 1800,
	}
	if err := f.episodes.Create(episode); err != nil {
		t.Fatalf("failed to seed episode: %v", err)
	}
	return podcast, episode
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestListPodcasts(t *testing.T) {
	f := setupFixture(t)
	f.seed(t)

	rec := get(t, f.router, "/api/podcasts")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var podcasts []models.Podcast
	decode(t, rec, &podcasts)
	if len(podcasts) != 1 || podcasts[0].Title != "Go Time" {
		t.Errorf("unexpected podcast list: %v", podcasts)
	}
}

func TestListEpisodesForPodcast(t *testing.T) {
	f := setupFixture(t)
	podcast, episode := f.seed(t)
	if err := f.episodes.UpsertProgress(episode.ID, 600, false); err != nil {
		t.Fatalf("failed to seed progress: %v", err)
	}

	rec := get(t, f.router, "/api/podcasts/"+itoa(podcast.ID)+"/episodes")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var episodes []models.EpisodeWithProgress
	decode(t, rec, &episodes)
	if len(episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(episodes))
	}
	if episodes[0].Progress.ListenedSeconds != 600 {
		t.Errorf("expected listened_seconds 600, got %d", episodes[0].Progress.ListenedSeconds)
	}
}

func TestListEpisodesUnknownPodcast(t *testing.T) {
	f := setupFixture(t)

	rec := get(t, f.router, "/api/podcasts/99/episodes")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetEpisodeWithProgress(t *testing.T) {
	f := setupFixture(t)
	_, episode := f.seed(t)
	if err := f.episodes.UpsertProgress(episode.ID, 42, false); err != nil {
		t.Fatalf("failed to seed progress: %v", err)
	}

	rec := get(t, f.router, "/api/episodes/"+itoa(episode.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Episode  models.EpisodeWithPodcast `json:"episode"`
		Progress models.EpisodeProgress    `json:"progress"`
	}
	decode(t, rec, &body)
	if body.Episode.Episode.Title != "Episode One" {
		t.Errorf("unexpected episode: %+v", body.Episode)
	}
	if body.Progress.ListenedSeconds != 42 {
		t.Errorf("expected progress 42, got %d", body.Progress.ListenedSeconds)
	}
}

func TestGetEpisodeMissing(t *testing.T) {
	f := setupFixture(t)

	rec := get(t, f.router, "/api/episodes/12345")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	var body map[string]string
	decode(t, rec, &body)
	if body["error"] == "" {
		t.Error("expected an error message in the body")
	}
}

func TestGetEpisodeBadID(t *testing.T) {
	f := setupFixture(t)

	rec := get(t, f.router, "/api/episodes/not-a-number")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDownloadSnapshot(t *testing.T) {
	f := setupFixture(t)

	rec := get(t, f.router, "/api/downloads")
	var statuses []DownloadStatus
	decode(t, rec, &statuses)
	if len(statuses) != 0 {
		t.Fatalf("expected empty snapshot, got %v", statuses)
	}

	if _, err := f.tracker.Begin(7); err != nil {
		t.Fatalf("failed to begin tracking: %v", err)
	}

	rec = get(t, f.router, "/api/downloads")
	decode(t, rec, &statuses)
	if len(statuses) != 1 || statuses[0].EpisodeID != 7 {
		t.Errorf("expected episode 7 in flight, got %v", statuses)
	}
}

func TestPlayerStatusEndpoint(t *testing.T) {
	f := setupFixture(t)

	rec := get(t, f.router, "/api/player")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status PlayerStatus
	decode(t, rec, &status)
	if status.State != "stopped" {
		t.Errorf("expected stopped, got %s", status.State)
	}
	if status.Volume != 0.8 {
		t.Errorf("expected volume 0.8, got %f", status.Volume)
	}
}

func post(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestPlayerActionEndpoint(t *testing.T) {
	f := setupFixture(t)

	rec := post(t, f.router, "/api/player/pause", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.transport.calls) != 1 || f.transport.calls[0] != "pause" {
		t.Errorf("expected a pause dispatch, got %v", f.transport.calls)
	}

	var status PlayerStatus
	decode(t, rec, &status)
	if status.State != "stopped" {
		t.Errorf("expected stopped, got %s", status.State)
	}
}

func TestPlayerActionUnknown(t *testing.T) {
	f := setupFixture(t)

	rec := post(t, f.router, "/api/player/rewind_to_start", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if len(f.transport.calls) != 0 {
		t.Errorf("expected no dispatch, got %v", f.transport.calls)
	}
}

func TestPlayerSeekWithoutEpisode(t *testing.T) {
	f := setupFixture(t)

	rec := post(t, f.router, "/api/player/seek", `{"position_seconds": 30}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestPlayerSeekBadBody(t *testing.T) {
	f := setupFixture(t)

	rec := post(t, f.router, "/api/player/seek", "not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = post(t, f.router, "/api/player/seek", `{"position_seconds": -5}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a negative position, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := setupFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/podcasts", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	router := NewBasicRouter()
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	router.Use(mw("outer"), mw("inner"))
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	get(t, router, "/ping")
	want := []string{"outer", "inner", "handler"}
	for i, name := range want {
		if i >= len(order) || order[i] != name {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := NewBasicRouter()
	router.Use(RequestID())
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := get(t, router, "/ping")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected an X-Request-ID header")
	}
}

func TestEventStream(t *testing.T) {
	b := bus.New(shared.NewLogger(io.Discard))
	defer b.Close()

	router := NewBasicRouter()
	router.Handler(NewEventsHandler(b, shared.NewLogger(io.Discard)))
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)

	// The handshake comment confirms the subscription exists before we
	// publish; the bus has no replay.
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read handshake: %v", err)
	}
	if !strings.HasPrefix(line, ": connected") {
		t.Fatalf("unexpected handshake line %q", line)
	}

	if err := b.Publish(bus.Notification{Signal: bus.SignalDownloadDone, Payload: map[string]any{"episode_id": 7}}); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	var event, data string
	for event == "" || data == "" {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended early: %v", err)
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}

	if event != bus.SignalDownloadDone {
		t.Errorf("expected event %s, got %s", bus.SignalDownloadDone, event)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("failed to decode event data: %v", err)
	}
	if payload["episode_id"] != float64(7) {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
