package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/castro/internal/models"
	"github.com/desertthunder/castro/internal/shared"
)

// PodcastRepository handles persistence for [models.Podcast].
type PodcastRepository struct {
	db *sql.DB
}

// NewPodcastRepository creates a new PodcastRepository with the given database connection
func NewPodcastRepository(db *sql.DB) *PodcastRepository {
	return &PodcastRepository{db: db}
}

// Create inserts a new podcast and assigns its generated ID.
func (r *PodcastRepository) Create(podcast *models.Podcast) error {
	if podcast.FeedURL == "" {
		return fmt.Errorf("%w: podcast feed URL is required", shared.ErrInvalidInput)
	}
	if podcast.CreatedAt.IsZero() {
		podcast.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO podcasts (title, feed_url, image_url, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		podcast.Title,
		podcast.FeedURL,
		podcast.ImageURL,
		podcast.Description,
		podcast.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert podcast: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read podcast id: %w", err)
	}
	podcast.ID = id

	return nil
}

// Get retrieves a podcast by ID.
func (r *PodcastRepository) Get(id int64) (*models.Podcast, error) {
	query := `
		SELECT id, title, feed_url, image_url, description, created_at
		FROM podcasts
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByFeedURL retrieves a podcast by its feed URL.
func (r *PodcastRepository) GetByFeedURL(feedURL string) (*models.Podcast, error) {
	query := `
		SELECT id, title, feed_url, image_url, description, created_at
		FROM podcasts
		WHERE feed_url = ?
	`

	return r.scanOne(r.db.QueryRow(query, feedURL))
}

// List retrieves all podcasts ordered by title.
func (r *PodcastRepository) List() ([]models.Podcast, error) {
	query := `
		SELECT id, title, feed_url, image_url, description, created_at
		FROM podcasts
		ORDER BY title COLLATE NOCASE
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []models.Podcast
	for rows.Next() {
		var p models.Podcast
		if err := rows.Scan(&p.ID, &p.Title, &p.FeedURL, &p.ImageURL, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan podcast: %w", err)
		}
		podcasts = append(podcasts, p)
	}

	return podcasts, rows.Err()
}

// Delete removes a podcast and, via cascade, its episodes and progress.
func (r *PodcastRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM podcasts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete podcast: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", shared.ErrPodcastNotFound, id)
	}

	return nil
}

func (r *PodcastRepository) scanOne(row *sql.Row) (*models.Podcast, error) {
	var p models.Podcast
	err := row.Scan(&p.ID, &p.Title, &p.FeedURL, &p.ImageURL, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPodcastNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan podcast: %w", err)
	}
	return &p, nil
}
