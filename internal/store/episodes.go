package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Episode is a single audio item of a podcast.
type Episode struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	EpisodeURL string    `json:"episode_url"`
	PodcastID  int64     `json:"podcast_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EpisodeUpdate carries the optional fields of an episode edit.
type EpisodeUpdate struct {
	Title      *string
	Category   *string
	EpisodeURL *string
}

const episodeColumns = `id, title, category, episode_url, podcast_id, created_at, updated_at`

// CreateEpisode inserts an episode and returns its id.
func (s *Store) CreateEpisode(ctx context.Context, e Episode) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO episodes (title, category, episode_url, podcast_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, e.Title, e.Category, e.EpisodeURL, e.PodcastID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert episode: %w", err)
	}
	return id, nil
}

// EpisodesByPodcast lists the episodes of a podcast in creation order.
func (s *Store) EpisodesByPodcast(ctx context.Context, podcastID int64) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes
		WHERE podcast_id = $1
		ORDER BY id ASC
	`, podcastID)
	if err != nil {
		return nil, fmt.Errorf("select episodes: %w", err)
	}
	defer rows.Close()

	episodes := []Episode{}
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}
	return episodes, nil
}

// EpisodeByID loads an episode that belongs to podcastID.
func (s *Store) EpisodeByID(ctx context.Context, podcastID, episodeID int64) (Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes
		WHERE id = $1 AND podcast_id = $2
	`, episodeID, podcastID)
	return scanEpisode(row)
}

// EpisodeExists reports whether an episode with id exists in any podcast.
func (s *Store) EpisodeExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM episodes WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("episode exists: %w", err)
	}
	return exists, nil
}

// UpdateEpisode applies the non-nil fields of u to the episode.
func (s *Store) UpdateEpisode(ctx context.Context, podcastID, episodeID int64, u EpisodeUpdate) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET title = COALESCE($1, title),
			category = COALESCE($2, category),
			episode_url = COALESCE($3, episode_url),
			updated_at = NOW()
		WHERE id = $4 AND podcast_id = $5
	`, u.Title, u.Category, u.EpisodeURL, episodeID, podcastID)
	if err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	return checkAffected(result, "update episode")
}

// DeleteEpisode removes an episode of podcastID.
func (s *Store) DeleteEpisode(ctx context.Context, podcastID, episodeID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM episodes
		WHERE id = $1 AND podcast_id = $2
	`, episodeID, podcastID)
	if err != nil {
		return fmt.Errorf("delete episode: %w", err)
	}
	return checkAffected(result, "delete episode")
}

func scanEpisode(scanner rowScanner) (Episode, error) {
	var e Episode
	err := scanner.Scan(&e.ID, &e.Title, &e.Category, &e.EpisodeURL, &e.PodcastID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Episode{}, ErrNotFound
		}
		return Episode{}, fmt.Errorf("scan episode: %w", err)
	}
	return e, nil
}
