package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Podcast is a show owned by a host.
type Podcast struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	CoverImage string    `json:"cover_image"`
	Rating     int       `json:"rating"`
	CreatorID  int64     `json:"creator_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PodcastUpdate carries the optional fields of a podcast edit. Nil fields are
// left unchanged.
type PodcastUpdate struct {
	Title      *string
	Category   *string
	CoverImage *string
	Rating     *int
}

const (
	podcastColumns  = `id, title, category, cover_image, rating, creator_id, created_at, updated_at`
	podcastColumnsP = `p.id, p.title, p.category, p.cover_image, p.rating, p.creator_id, p.created_at, p.updated_at`
)

// CreatePodcast inserts a podcast and returns its id.
func (s *Store) CreatePodcast(ctx context.Context, p Podcast) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO podcasts (title, category, cover_image, creator_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Title, p.Category, p.CoverImage, p.CreatorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert podcast: %w", err)
	}
	return id, nil
}

// PodcastByID loads a podcast by primary key.
func (s *Store) PodcastByID(ctx context.Context, id int64) (Podcast, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+podcastColumns+`
		FROM podcasts
		WHERE id = $1
	`, id)
	return scanPodcast(row)
}

// PodcastExists reports whether a podcast with id exists.
func (s *Store) PodcastExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM podcasts WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("podcast exists: %w", err)
	}
	return exists, nil
}

// ListPodcasts returns one page of podcasts, newest first, and the total count.
func (s *Store) ListPodcasts(ctx context.Context, page, size int) ([]Podcast, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM podcasts
	`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count podcasts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+podcastColumns+`
		FROM podcasts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, size, pageOffset(page, size))
	if err != nil {
		return nil, 0, fmt.Errorf("select podcasts: %w", err)
	}
	defer rows.Close()

	podcasts, err := scanPodcastRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return podcasts, total, nil
}

// SearchPodcasts returns one page of podcasts whose title contains query,
// matched case-insensitively, and the total number of matches.
func (s *Store) SearchPodcasts(ctx context.Context, query string, page, size int) ([]Podcast, int, error) {
	pattern := "%" + query + "%"

	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM podcasts
		WHERE title ILIKE $1
	`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count podcast search: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+podcastColumns+`
		FROM podcasts
		WHERE title ILIKE $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, pattern, size, pageOffset(page, size))
	if err != nil {
		return nil, 0, fmt.Errorf("search podcasts: %w", err)
	}
	defer rows.Close()

	podcasts, err := scanPodcastRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return podcasts, total, nil
}

// UpdatePodcast applies the non-nil fields of u to the podcast.
func (s *Store) UpdatePodcast(ctx context.Context, id int64, u PodcastUpdate) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE podcasts
		SET title = COALESCE($1, title),
			category = COALESCE($2, category),
			cover_image = COALESCE($3, cover_image),
			rating = COALESCE($4, rating),
			updated_at = NOW()
		WHERE id = $5
	`, u.Title, u.Category, u.CoverImage, u.Rating, id)
	if err != nil {
		return fmt.Errorf("update podcast: %w", err)
	}
	return checkAffected(result, "update podcast")
}

// DeletePodcast removes the podcast. Episodes, reviews and subscriptions go
// with it through ON DELETE CASCADE.
func (s *Store) DeletePodcast(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM podcasts
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete podcast: %w", err)
	}
	return checkAffected(result, "delete podcast")
}

// UpdatePodcastRating recomputes the podcast rating while holding a row lock
// on the podcast. compute receives the ratings of every review of the podcast
// except excludeReviewID (pass 0 to exclude none) and returns the new rating.
func (s *Store) UpdatePodcastRating(ctx context.Context, podcastID, excludeReviewID int64, compute func(ratings []int) int) (int, error) {
	var rating int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var lockedID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id
			FROM podcasts
			WHERE id = $1
			FOR UPDATE
		`, podcastID).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock podcast: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT rating
			FROM reviews
			WHERE podcast_id = $1 AND id <> $2
		`, podcastID, excludeReviewID)
		if err != nil {
			return fmt.Errorf("select review ratings: %w", err)
		}
		var ratings []int
		for rows.Next() {
			var r int
			if err := rows.Scan(&r); err != nil {
				rows.Close()
				return fmt.Errorf("scan review rating: %w", err)
			}
			ratings = append(ratings, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate review ratings: %w", err)
		}
		rows.Close()

		rating = compute(ratings)

		if _, err := tx.ExecContext(ctx, `
			UPDATE podcasts
			SET rating = $1, updated_at = NOW()
			WHERE id = $2
		`, rating, podcastID); err != nil {
			return fmt.Errorf("update podcast rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

func scanPodcast(scanner rowScanner) (Podcast, error) {
	var p Podcast
	err := scanner.Scan(&p.ID, &p.Title, &p.Category, &p.CoverImage, &p.Rating, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Podcast{}, ErrNotFound
		}
		return Podcast{}, fmt.Errorf("scan podcast: %w", err)
	}
	return p, nil
}

func scanPodcastRows(rows *sql.Rows) ([]Podcast, error) {
	podcasts := []Podcast{}
	for rows.Next() {
		p, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate podcasts: %w", err)
	}
	return podcasts, nil
}
