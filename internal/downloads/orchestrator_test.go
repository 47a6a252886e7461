package downloads

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/repositories"
	"github.com/desertthunder/castro/internal/shared"
)

// stubFeedService serves a fixed payload (or a custom stream) as episode media.
type stubFeedService struct {
	payload []byte
	stream  io.ReadCloser
	total   int64
	err     error
}

func (s *stubFeedService) ImportPodcastFromURL(ctx context.Context, url string) (*models.Podcast, []models.Episode, error) {
	return nil, nil, shared.ErrNotImplemented
}

func (s *stubFeedService) FetchMediaStream(ctx context.Context, episode *models.Episode) (io.ReadCloser, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	if s.stream != nil {
		return s.stream, s.total, nil
	}
	return io.NopCloser(bytes.NewReader(s.payload)), int64(len(s.payload)), nil
}

// failingReader yields some bytes, then an error.
type failingReader struct {
	data []byte
	read bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		n := copy(p, f.data)
		return n, nil
	}
	return 0, fmt.Errorf("connection reset")
}

func (f *failingReader) Close() error { return nil }

// gatedReader blocks after the first chunk until released.
type gatedReader struct {
	first   sync.Once
	release chan struct{}
}

func (g *gatedReader) Read(p []byte) (int, error) {
	var sentFirst bool
	g.first.Do(func() {
		sentFirst = true
	})
	if sentFirst {
		return copy(p, []byte("chunk")), nil
	}
	<-g.release
	return 0, io.EOF
}

func (g *gatedReader) Close() error { return nil }

func setupOrchestrator(t *testing.T, feeds *stubFeedService) (*Orchestrator, *repositories.EpisodeRepository, *Tracker, *models.Episode, string) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	episode := seedEpisodeRow(t, db)

	repo := repositories.NewEpisodeRepository(db)
	tracker := NewTracker()
	dir := t.TempDir()
	orch := NewOrchestrator(repo, feeds, tracker, dir, shared.NewLogger(io.Discard))

	return orch, repo, tracker, episode, dir
}

func seedEpisodeRow(t *testing.T, db *sql.DB) *models.Episode {
	t.Helper()

	podcasts := repositories.NewPodcastRepository(db)
	podcast := &models.Podcast{Title: "Test Cast", FeedURL: "http://example.com/feed.xml"}
	if err := podcasts.Create(podcast); err != nil {
		t.Fatalf("failed to seed podcast: %v", err)
	}

	episodes := repositories.NewEpisodeRepository(db)
	episode := &models.Episode{
		PodcastID:   podcast.ID,
		GUID:        "ep-1",
		Title:       "Episode One",
		AudioURL:    "http://example.com/ep1.mp3",
		PublishedAt: time.Now(),
	}
	if err := episodes.Create(episode); err != nil {
		t.Fatalf("failed to seed episode: %v", err)
	}
	return episode
}

func TestOrchestratorRun(t *testing.T) {
	payload := bytes.Repeat([]byte("abc123"), 10_000)
	feeds := &stubFeedService{payload: payload}
	orch, repo, tracker, episode, dir := setupOrchestrator(t, feeds)

	if err := orch.Run(context.Background(), episode.ID); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	got, err := repo.Get(episode.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.DownloadState != models.DownloadStateDownloaded {
		t.Errorf("expected downloaded state, got %s", got.DownloadState)
	}
	if got.ContentLocalPath == "" {
		t.Fatal("expected local path to be set")
	}

	data, err := os.ReadFile(got.ContentLocalPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("downloaded file does not match payload")
	}

	wantPath := filepath.Join(dir, fmt.Sprintf("%d", episode.PodcastID), fmt.Sprintf("%d.mp3", episode.ID))
	if got.ContentLocalPath != wantPath {
		t.Errorf("media stored at %s, want %s", got.ContentLocalPath, wantPath)
	}

	// Tracker entry is gone after completion.
	if _, ok := tracker.Progress(episode.ID); ok {
		t.Error("expected tracker entry to be released after completion")
	}
}

func TestOrchestratorRollbackOnStreamFailure(t *testing.T) {
	feeds := &stubFeedService{
		stream: &failingReader{data: []byte("partial")},
		total:  1000,
	}
	orch, repo, tracker, episode, dir := setupOrchestrator(t, feeds)

	err := orch.Run(context.Background(), episode.ID)
	if !errors.Is(err, shared.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}

	// Persisted state equals the pre-download value, not "downloading".
	got, repoErr := repo.Get(episode.ID)
	if repoErr != nil {
		t.Fatalf("Get returned error: %v", repoErr)
	}
	if got.DownloadState != models.DownloadStateNone {
		t.Errorf("expected not_downloaded after failure, got %s", got.DownloadState)
	}
	if got.ContentLocalPath != "" {
		t.Errorf("expected empty local path after failure, got %q", got.ContentLocalPath)
	}

	// No partial files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty download dir, found %d entries", len(entries))
	}

	// Progress reads return absent state.
	if _, ok := tracker.Progress(episode.ID); ok {
		t.Error("expected tracker entry to be released after failure")
	}
}

func TestOrchestratorRollbackOnFetchFailure(t *testing.T) {
	feeds := &stubFeedService{err: fmt.Errorf("%w: dns failure", shared.ErrAPIRequest)}
	orch, repo, tracker, episode, _ := setupOrchestrator(t, feeds)

	if err := orch.Run(context.Background(), episode.ID); !errors.Is(err, shared.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed, got %v", err)
	}

	got, err := repo.Get(episode.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.DownloadState != models.DownloadStateNone {
		t.Errorf("expected not_downloaded, got %s", got.DownloadState)
	}
	if _, ok := tracker.Progress(episode.ID); ok {
		t.Error("expected tracker entry to be released")
	}
}

func TestOrchestratorRejectsDuplicateStart(t *testing.T) {
	release := make(chan struct{})
	feeds := &stubFeedService{stream: &gatedReader{release: release}, total: -1}
	orch, _, tracker, episode, _ := setupOrchestrator(t, feeds)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- orch.Run(context.Background(), episode.ID)
	}()

	// Wait for the first run to claim the tracker entry.
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := tracker.Progress(episode.ID); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first download never claimed the tracker entry")
		case <-time.After(time.Millisecond):
		}
	}

	if err := orch.Run(context.Background(), episode.ID); !errors.Is(err, shared.ErrAlreadyDownloading) {
		t.Errorf("expected ErrAlreadyDownloading for duplicate start, got %v", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Errorf("first download returned error: %v", err)
	}
}

func TestOrchestratorDownloading(t *testing.T) {
	feeds := &stubFeedService{payload: []byte("audio")}
	orch, _, tracker, episode, _ := setupOrchestrator(t, feeds)

	if orch.Downloading(episode.ID) {
		t.Error("expected no in-flight transfer before Run")
	}

	if _, err := tracker.Begin(episode.ID); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if !orch.Downloading(episode.ID) {
		t.Error("expected an in-flight transfer after Begin")
	}

	tracker.End(episode.ID)
	if orch.Downloading(episode.ID) {
		t.Error("expected no in-flight transfer after End")
	}
}

func TestOrchestratorRejectsDownloadedEpisode(t *testing.T) {
	feeds := &stubFeedService{payload: []byte("audio")}
	orch, _, _, episode, _ := setupOrchestrator(t, feeds)

	if err := orch.Run(context.Background(), episode.ID); err != nil {
		t.Fatalf("first Run returned error: %v", err)
	}

	if err := orch.Run(context.Background(), episode.ID); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for already-downloaded episode, got %v", err)
	}
}

func TestMediaFileName(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"http://example.com/show/ep1.mp3", filepath.Join("7", "1.mp3")},
		{"http://example.com/show/ep1.m4a", filepath.Join("7", "1.m4a")},
		{"http://example.com/stream?id=5", filepath.Join("7", "1.mp3")},
	}

	for _, c := range cases {
		ep := &models.Episode{ID: 1, PodcastID: 7, AudioURL: c.url}
		if got := mediaFileName(ep); got != c.want {
			t.Errorf("mediaFileName(%s) = %s, want %s", c.url, got, c.want)
		}
	}
}

func TestOrchestratorContextCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	feeds := &stubFeedService{stream: &gatedReader{release: release}, total: -1}
	orch, repo, _, episode, _ := setupOrchestrator(t, feeds)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := orch.Run(ctx, episode.ID); !errors.Is(err, shared.ErrDownloadFailed) {
		t.Fatalf("expected ErrDownloadFailed for cancelled context, got %v", err)
	}

	got, err := repo.Get(episode.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.DownloadState != models.DownloadStateNone {
		t.Errorf("expected rollback to not_downloaded, got %s", got.DownloadState)
	}
}
