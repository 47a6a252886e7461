package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/shared"
)

// episodeColumns is the canonical select list for episode rows.
const episodeColumns = `e.id, e.podcast_id, e.guid, e.title, e.audio_url, e.duration_seconds, e.download_state, e.content_local_path, e.published_at`

// EpisodeRepository handles persistence for [models.Episode] and
// [models.EpisodeProgress].
type EpisodeRepository struct {
	db *sql.DB
}

// NewEpisodeRepository creates a new EpisodeRepository with the given database connection
func NewEpisodeRepository(db *sql.DB) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

// Create inserts a new episode and assigns its generated ID.
// Episodes already present (same podcast and GUID) are left untouched.
func (r *EpisodeRepository) Create(episode *models.Episode) error {
	if episode.PodcastID == 0 {
		return fmt.Errorf("%w: episode podcast id is required", shared.ErrInvalidInput)
	}
	if episode.DownloadState == "" {
		episode.DownloadState = models.DownloadStateNone
	}

	query := `
		INSERT INTO episodes (podcast_id, guid, title, audio_url, duration_seconds, download_state, content_local_path, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (podcast_id, guid) DO NOTHING
	`

	result, err := r.db.Exec(query,
		episode.PodcastID,
		episode.GUID,
		episode.Title,
		episode.AudioURL,
		episode.DurationSeconds,
		episode.DownloadState.String(),
		episode.ContentLocalPath,
		nullableTime(episode.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert episode: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		if id, err := result.LastInsertId(); err == nil {
			episode.ID = id
		}
	}

	return nil
}

// Get retrieves an episode by ID.
func (r *EpisodeRepository) Get(id int64) (*models.Episode, error) {
	query := fmt.Sprintf("SELECT %s FROM episodes e WHERE e.id = ?", episodeColumns)
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetWithPodcast retrieves an episode joined with its podcast.
func (r *EpisodeRepository) GetWithPodcast(id int64) (*models.EpisodeWithPodcast, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.id, p.title, p.feed_url, p.image_url, p.description, p.created_at
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE e.id = ?
	`, episodeColumns)

	row := r.db.QueryRow(query, id)

	var ep models.Episode
	var pod models.Podcast
	var published sql.NullTime
	var state string
	err := row.Scan(
		&ep.ID, &ep.PodcastID, &ep.GUID, &ep.Title, &ep.AudioURL, &ep.DurationSeconds, &state, &ep.ContentLocalPath, &published,
		&pod.ID, &pod.Title, &pod.FeedURL, &pod.ImageURL, &pod.Description, &pod.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrEpisodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan episode: %w", err)
	}

	ep.DownloadState = models.DownloadState(state)
	ep.PublishedAt = published.Time

	return &models.EpisodeWithPodcast{Episode: ep, Podcast: pod}, nil
}

// ListForPodcast retrieves all episodes of a podcast with their progress,
// newest first.
func (r *EpisodeRepository) ListForPodcast(podcastID int64) ([]models.EpisodeWithProgress, error) {
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(pr.listened_seconds, 0), COALESCE(pr.completed, 0), COALESCE(pr.updated_at, e.published_at, CURRENT_TIMESTAMP)
		FROM episodes e
		LEFT JOIN episode_progress pr ON pr.episode_id = e.id
		WHERE e.podcast_id = ?
		ORDER BY e.published_at DESC
	`, episodeColumns)

	rows, err := r.db.Query(query, podcastID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []models.EpisodeWithProgress
	for rows.Next() {
		var ewp models.EpisodeWithProgress
		var published sql.NullTime
		var state string
		err := rows.Scan(
			&ewp.Episode.ID, &ewp.Episode.PodcastID, &ewp.Episode.GUID, &ewp.Episode.Title, &ewp.Episode.AudioURL,
			&ewp.Episode.DurationSeconds, &state, &ewp.Episode.ContentLocalPath, &published,
			&ewp.Progress.ListenedSeconds, &ewp.Progress.Completed, &ewp.Progress.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		ewp.Episode.DownloadState = models.DownloadState(state)
		ewp.Episode.PublishedAt = published.Time
		ewp.Progress.EpisodeID = ewp.Episode.ID
		episodes = append(episodes, ewp)
	}

	return episodes, rows.Err()
}

// ListLatest retrieves the most recently published episodes across all
// podcasts, limited to the given count.
func (r *EpisodeRepository) ListLatest(limit int) ([]models.EpisodeWithPodcast, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s, p.id, p.title, p.feed_url, p.image_url, p.description, p.created_at
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		ORDER BY e.published_at DESC
		LIMIT ?
	`, episodeColumns)

	return r.queryWithPodcast(query, limit)
}

// ListListenHistory retrieves episodes with recorded progress, most recently
// listened first.
func (r *EpisodeRepository) ListListenHistory() ([]models.EpisodeWithPodcast, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.id, p.title, p.feed_url, p.image_url, p.description, p.created_at
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		JOIN episode_progress pr ON pr.episode_id = e.id
		WHERE pr.listened_seconds > 0 OR pr.completed = 1
		ORDER BY pr.updated_at DESC
	`, episodeColumns)

	return r.queryWithPodcast(query)
}

// FindLastPlayed retrieves the most recently played, not yet completed
// episode, or nil when the listen history is empty.
func (r *EpisodeRepository) FindLastPlayed() (*models.EpisodeWithPodcast, error) {
	query := fmt.Sprintf(`
		SELECT %s, p.id, p.title, p.feed_url, p.image_url, p.description, p.created_at
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		JOIN episode_progress pr ON pr.episode_id = e.id
		WHERE pr.completed = 0 AND pr.listened_seconds > 0
		ORDER BY pr.updated_at DESC
		LIMIT 1
	`, episodeColumns)

	results, err := r.queryWithPodcast(query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// GetProgress retrieves playback progress for an episode. Episodes without
// recorded progress get a zero-value record.
func (r *EpisodeRepository) GetProgress(episodeID int64) (*models.EpisodeProgress, error) {
	query := `
		SELECT episode_id, listened_seconds, completed, updated_at
		FROM episode_progress
		WHERE episode_id = ?
	`

	var p models.EpisodeProgress
	err := r.db.QueryRow(query, episodeID).Scan(&p.EpisodeID, &p.ListenedSeconds, &p.Completed, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.EpisodeProgress{EpisodeID: episodeID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	return &p, nil
}

// UpsertProgress records playback progress for an episode.
func (r *EpisodeRepository) UpsertProgress(episodeID, listenedSeconds int64, completed bool) error {
	query := `
		INSERT INTO episode_progress (episode_id, listened_seconds, completed, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (episode_id) DO UPDATE SET
			listened_seconds = excluded.listened_seconds,
			completed = excluded.completed,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, episodeID, listenedSeconds, completed, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}

	return nil
}

// SetDownloadState transitions an episode's download state, enforcing the
// monotone state machine. localPath is persisted only when transitioning to
// downloaded and cleared otherwise.
func (r *EpisodeRepository) SetDownloadState(episodeID int64, state models.DownloadState, localPath string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow("SELECT download_state FROM episodes WHERE id = ?", episodeID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", shared.ErrEpisodeNotFound, episodeID)
	}
	if err != nil {
		return fmt.Errorf("failed to read download state: %w", err)
	}

	if !models.DownloadState(current).CanTransition(state) {
		return fmt.Errorf("%w: download state %s cannot move to %s", shared.ErrInvalidInput, current, state)
	}

	if state != models.DownloadStateDownloaded {
		localPath = ""
	}

	_, err = tx.Exec("UPDATE episodes SET download_state = ?, content_local_path = ? WHERE id = ?",
		state.String(), localPath, episodeID)
	if err != nil {
		return fmt.Errorf("failed to update download state: %w", err)
	}

	return tx.Commit()
}

func (r *EpisodeRepository) queryWithPodcast(query string, args ...any) ([]models.EpisodeWithPodcast, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var results []models.EpisodeWithPodcast
	for rows.Next() {
		var ewp models.EpisodeWithPodcast
		var published sql.NullTime
		var state string
		err := rows.Scan(
			&ewp.Episode.ID, &ewp.Episode.PodcastID, &ewp.Episode.GUID, &ewp.Episode.Title, &ewp.Episode.AudioURL,
			&ewp.Episode.DurationSeconds, &state, &ewp.Episode.ContentLocalPath, &published,
			&ewp.Podcast.ID, &ewp.Podcast.Title, &ewp.Podcast.FeedURL, &ewp.Podcast.ImageURL, &ewp.Podcast.Description, &ewp.Podcast.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		ewp.Episode.DownloadState = models.DownloadState(state)
		ewp.Episode.PublishedAt = published.Time
		results = append(results, ewp)
	}

	return results, rows.Err()
}

func (r *EpisodeRepository) scanOne(row *sql.Row) (*models.Episode, error) {
	var ep models.Episode
	var published sql.NullTime
	var state string
	err := row.Scan(&ep.ID, &ep.PodcastID, &ep.GUID, &ep.Title, &ep.AudioURL, &ep.DurationSeconds, &state, &ep.ContentLocalPath, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrEpisodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan episode: %w", err)
	}

	ep.DownloadState = models.DownloadState(state)
	ep.PublishedAt = published.Time
	return &ep, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
