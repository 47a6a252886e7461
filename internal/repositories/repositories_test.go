package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func seedPodcast(t *testing.T, db *sql.DB, feedURL string) *models.Podcast {
	t.Helper()

	repo := NewPodcastRepository(db)
	podcast := &models.Podcast{Title: "Test Cast", FeedURL: feedURL}
	if err := repo.Create(podcast); err != nil {
		t.Fatalf("failed to seed podcast: %v", err)
	}
	return podcast
}

func seedEpisode(t *testing.T, db *sql.DB, podcastID int64, guid string, published time.Time) *models.Episode {
	t.Helper()

	repo := NewEpisodeRepository(db)
	episode := &models.Episode{
		PodcastID:       podcastID,
		GUID:            guid,
		Title:           "Episode " + guid,
		AudioURL:        "http://example.com/" + guid + ".mp3",
		DurationSeconds: 1800,
		PublishedAt:     published,
	}
	if err := repo.Create(episode); err != nil {
		t.Fatalf("failed to seed episode: %v", err)
	}
	return episode
}

func TestPodcastRepository(t *testing.T) {
	t.Run("Create assigns an ID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		podcast := seedPodcast(t, db, "http://example.com/feed.xml")
		if podcast.ID == 0 {
			t.Error("podcast ID should be set after creation")
		}
	})

	t.Run("Get and GetByFeedURL", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPodcastRepository(db)
		created := seedPodcast(t, db, "http://example.com/feed.xml")

		got, err := repo.Get(created.ID)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if got.FeedURL != created.FeedURL {
			t.Errorf("expected feed URL %s, got %s", created.FeedURL, got.FeedURL)
		}

		byURL, err := repo.GetByFeedURL(created.FeedURL)
		if err != nil {
			t.Fatalf("GetByFeedURL returned error: %v", err)
		}
		if byURL.ID != created.ID {
			t.Errorf("expected ID %d, got %d", created.ID, byURL.ID)
		}
	})

	t.Run("Get missing podcast", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPodcastRepository(db)
		if _, err := repo.Get(404); !errors.Is(err, shared.ErrPodcastNotFound) {
			t.Errorf("expected ErrPodcastNotFound, got %v", err)
		}
	})

	t.Run("List orders by title", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPodcastRepository(db)
		for _, title := range []string{"zebra", "Alpha"} {
			p := &models.Podcast{Title: title, FeedURL: "http://example.com/" + title}
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create podcast: %v", err)
			}
		}

		podcasts, err := repo.List()
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(podcasts) != 2 {
			t.Fatalf("expected 2 podcasts, got %d", len(podcasts))
		}
		if podcasts[0].Title != "Alpha" {
			t.Errorf("expected Alpha first, got %s", podcasts[0].Title)
		}
	})

	t.Run("Delete cascades to episodes", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPodcastRepository(db)
		episodes := NewEpisodeRepository(db)

		podcast := seedPodcast(t, db, "http://example.com/feed.xml")
		episode := seedEpisode(t, db, podcast.ID, "ep-1", time.Now())

		if err := repo.Delete(podcast.ID); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}

		if _, err := episodes.Get(episode.ID); !errors.Is(err, shared.ErrEpisodeNotFound) {
			t.Errorf("expected cascade delete of episodes, got %v", err)
		}
	})
}

func TestEpisodeRepository(t *testing.T) {
	t.Run("Create is idempotent per GUID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEpisodeRepository(db)
		podcast := seedPodcast(t, db, "http://example.com/feed.xml")

		seedEpisode(t, db, podcast.ID, "ep-1", time.Now())
		dup := &models.Episode{PodcastID: podcast.ID, GUID: "ep-1", Title: "dup", AudioURL: "x"}
		if err := repo.Create(dup); err != nil {
			t.Fatalf("duplicate create should be a no-op, got %v", err)
		}

		episodes, err := repo.ListForPodcast(podcast.ID)
		if err != nil {
			t.Fatalf("ListForPodcast returned error: %v", err)
		}
		if len(episodes) != 1 {
			t.Errorf("expected 1 episode, got %d", len(episodes))
		}
	})

	t.Run("GetWithPodcast joins metadata", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEpisodeRepository(db)
		podcast := seedPodcast(t, db, "http://example.com/feed.xml")
		episode := seedEpisode(t, db, podcast.ID, "ep-1", time.Now())

		full, err := repo.GetWithPodcast(episode.ID)
		if err != nil {
			t.Fatalf("GetWithPodcast returned error: %v", err)
		}
		if full.Podcast.ID != podcast.ID {
			t.Errorf("expected podcast %d, got %d", podcast.ID, full.Podcast.ID)
		}
	})

	t.Run("ListLatest orders newest first", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEpisodeRepository(db)
		podcast := seedPodcast(t, db, "http://example.com/feed.xml")

		older := seedEpisode(t, db, podcast.ID, "older", time.Now().Add(-24*time.Hour))
		newer := seedEpisode(t, db, podcast.ID, "newer", time.Now())

		latest, err := repo.ListLatest(10)
		if err != nil {
			t.Fatalf("ListLatest returned error: %v", err)
		}
		if len(latest) != 2 {
			t.Fatalf("expected 2 episodes, got %d", len(latest))
		}
		if latest[0].Episode.ID != newer.ID || latest[1].Episode.ID != older.ID {
			t.Error("episodes not ordered newest first")
		}
	})

	t.Run("progress upsert and history", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEpisodeRepository(db)
		podcast := seedPodcast(t, db, "http://example.com/feed.xml")
		episode := seedEpisode(t, db, podcast.ID, "ep-1", time.Now())

		// No progress yet: zero-value record
		progress, err := repo.GetProgress(episode.ID)
		if err != nil {
			t.Fatalf("GetProgress returned error: %v", err)
		}
		if progress.ListenedSeconds != 0 || progress.Completed {
			t.Error("expected zero progress for fresh episode")
		}

		if err := repo.UpsertProgress(episode.ID, 120, false); err != nil {
			t.Fatalf("UpsertProgress returned error: %v", err)
		}
		if err := repo.UpsertProgress(episode.ID, 300, true); err != nil {
			t.Fatalf("second UpsertProgress returned error: %v", err)
		}

		progress, err = repo.GetProgress(episode.ID)
		if err != nil {
			t.Fatalf("GetProgress returned error: %v", err)
		}
		if progress.ListenedSeconds != 300 || !progress.Completed {
			t.Errorf("expected 300s completed, got %ds completed=%v", progress.ListenedSeconds, progress.Completed)
		}

		history, err := repo.ListListenHistory()
		if err != nil {
			t.Fatalf("ListListenHistory returned error: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("expected 1 history entry, got %d", len(history))
		}
	})

	t.Run("FindLastPlayed skips completed episodes", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEpisodeRepository(db)
		podcast := seedPodcast(t, db, "http://example.com/feed.xml")
		done := seedEpisode(t, db, podcast.ID, "done", time.Now())
		inFlight := seedEpisode(t, db, podcast.ID, "in-flight", time.Now())

		if err := repo.UpsertProgress(done.ID, 1800, true); err != nil {
			t.Fatalf("UpsertProgress returned error: %v", err)
		}
		if err := repo.UpsertProgress(inFlight.ID, 60, false); err != nil {
			t.Fatalf("UpsertProgress returned error: %v", err)
		}

		last, err := repo.FindLastPlayed()
		if err != nil {
			t.Fatalf("FindLastPlayed returned error: %v", err)
		}
		if last == nil || last.Episode.ID != inFlight.ID {
			t.Error("expected the uncompleted episode as last played")
		}
	})

	t.Run("FindLastPlayed with empty history", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEpisodeRepository(db)
		last, err := repo.FindLastPlayed()
		if err != nil {
			t.Fatalf("FindLastPlayed returned error: %v", err)
		}
		if last != nil {
			t.Error("expected nil for empty history")
		}
	})

	t.Run("download state machine", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEpisodeRepository(db)
		podcast := seedPodcast(t, db, "http://example.com/feed.xml")
		episode := seedEpisode(t, db, podcast.ID, "ep-1", time.Now())

		// Cannot jump straight to downloaded
		err := repo.SetDownloadState(episode.ID, models.DownloadStateDownloaded, "/tmp/x.mp3")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for illegal transition, got %v", err)
		}

		if err := repo.SetDownloadState(episode.ID, models.DownloadStateDownloading, ""); err != nil {
			t.Fatalf("SetDownloadState(downloading) returned error: %v", err)
		}

		// Failure path: downloading rolls back to not_downloaded
		if err := repo.SetDownloadState(episode.ID, models.DownloadStateNone, ""); err != nil {
			t.Fatalf("rollback to not_downloaded returned error: %v", err)
		}

		if err := repo.SetDownloadState(episode.ID, models.DownloadStateDownloading, ""); err != nil {
			t.Fatalf("SetDownloadState(downloading) returned error: %v", err)
		}
		if err := repo.SetDownloadState(episode.ID, models.DownloadStateDownloaded, "/media/ep-1.mp3"); err != nil {
			t.Fatalf("SetDownloadState(downloaded) returned error: %v", err)
		}

		got, err := repo.Get(episode.ID)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if got.DownloadState != models.DownloadStateDownloaded {
			t.Errorf("expected downloaded state, got %s", got.DownloadState)
		}
		if got.ContentLocalPath != "/media/ep-1.mp3" {
			t.Errorf("expected local path to be set, got %q", got.ContentLocalPath)
		}
	})
}
