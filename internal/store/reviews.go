package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Review is a top-level review of a podcast or a reply to another review.
type Review struct {
	ID             int64         `json:"id"`
	Text           string        `json:"text"`
	Rating         int           `json:"rating"`
	CreatorID      int64         `json:"creator_id"`
	PodcastID      int64         `json:"podcast_id"`
	ParentReviewID *int64        `json:"parent_review_id,omitempty"`
	Creator        *ReviewAuthor `json:"creator,omitempty"`
	ParentReview   *ReviewRef    `json:"parent_review,omitempty"`
	ChildReviews   []Review      `json:"child_reviews"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsReply reports whether the review answers another review.
func (r Review) IsReply() bool {
	return r.ParentReviewID != nil
}

// ReviewAuthor is the public view of a review creator.
type ReviewAuthor struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// ReviewRef is the parent summary attached to a reply.
type ReviewRef struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	CreatorID int64  `json:"creator_id"`
}

const (
	reviewColumns  = `id, text, rating, creator_id, podcast_id, parent_review_id, created_at, updated_at`
	reviewColumnsR = `r.id, r.text, r.rating, r.creator_id, r.podcast_id, r.parent_review_id, r.created_at, r.updated_at`
)

// CreateReview inserts a review and returns its id.
func (s *Store) CreateReview(ctx context.Context, r Review) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (text, rating, creator_id, podcast_id, parent_review_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.Text, r.Rating, r.CreatorID, r.PodcastID, r.ParentReviewID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return id, nil
}

// ReviewByID loads a review without relations.
func (s *Store) ReviewByID(ctx context.Context, id int64) (Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE id = $1
	`, id)
	return scanReview(row)
}

// CountReviews counts every review of a podcast, replies included.
func (s *Store) CountReviews(ctx context.Context, podcastID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM reviews
		WHERE podcast_id = $1
	`, podcastID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// ListTopLevelReviews returns one page of the podcast's top-level reviews,
// newest first, each with its creator and direct replies (oldest first), and
// the total number of top-level reviews.
func (s *Store) ListTopLevelReviews(ctx context.Context, podcastID int64, page, size int) ([]Review, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM reviews
		WHERE podcast_id = $1 AND parent_review_id IS NULL
	`, podcastID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count top-level reviews: %w", err)
	}

	offset := pageOffset(page, size)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumnsR+`, u.id, u.email, u.role
		FROM reviews r
		JOIN users u ON u.id = r.creator_id
		WHERE r.podcast_id = $1 AND r.parent_review_id IS NULL
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2 OFFSET $3
	`, podcastID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select top-level reviews: %w", err)
	}
	reviews, err := scanAuthoredReviews(rows)
	rows.Close()
	if err != nil {
		return nil, 0, err
	}
	if len(reviews) == 0 {
		return reviews, total, nil
	}

	childRows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumnsR+`, u.id, u.email, u.role
		FROM reviews r
		JOIN users u ON u.id = r.creator_id
		WHERE r.parent_review_id IN (
			SELECT id
			FROM reviews
			WHERE podcast_id = $1 AND parent_review_id IS NULL
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		)
		ORDER BY r.created_at ASC, r.id ASC
	`, podcastID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select child reviews: %w", err)
	}
	children, err := scanAuthoredReviews(childRows)
	childRows.Close()
	if err != nil {
		return nil, 0, err
	}

	index := make(map[int64]int, len(reviews))
	for i, r := range reviews {
		reviews[i].ChildReviews = []Review{}
		index[r.ID] = i
	}
	for _, c := range children {
		if i, ok := index[*c.ParentReviewID]; ok {
			reviews[i].ChildReviews = append(reviews[i].ChildReviews, c)
		}
	}

	return reviews, total, nil
}

// ListChildReviews returns every reply of the podcast with its creator and a
// summary of its parent, ordered by id.
func (s *Store) ListChildReviews(ctx context.Context, podcastID int64) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumnsR+`, u.id, u.email, u.role, p.id, p.text, p.creator_id
		FROM reviews r
		JOIN users u ON u.id = r.creator_id
		JOIN reviews p ON p.id = r.parent_review_id
		WHERE r.podcast_id = $1
		ORDER BY r.id ASC
	`, podcastID)
	if err != nil {
		return nil, fmt.Errorf("select replies: %w", err)
	}
	defer rows.Close()

	replies := []Review{}
	for rows.Next() {
		var (
			r        Review
			author   ReviewAuthor
			parent   ReviewRef
			parentID sql.NullInt64
			role     string
		)
		if err := rows.Scan(
			&r.ID, &r.Text, &r.Rating, &r.CreatorID, &r.PodcastID, &parentID, &r.CreatedAt, &r.UpdatedAt,
			&author.ID, &author.Email, &role,
			&parent.ID, &parent.Text, &parent.CreatorID,
		); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		if parentID.Valid {
			r.ParentReviewID = &parentID.Int64
		}
		author.Role = Role(role)
		r.Creator = &author
		r.ParentReview = &parent
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replies: %w", err)
	}
	return replies, nil
}

// UpdateReviewText replaces the text of a review.
func (s *Store) UpdateReviewText(ctx context.Context, id int64, text string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reviews
		SET text = $1, updated_at = NOW()
		WHERE id = $2
	`, text, id)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return checkAffected(result, "update review")
}

// DeleteReview removes a review. Its replies are removed by ON DELETE CASCADE.
func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return checkAffected(result, "delete review")
}

func scanReview(scanner rowScanner) (Review, error) {
	var (
		r        Review
		parentID sql.NullInt64
	)
	err := scanner.Scan(&r.ID, &r.Text, &r.Rating, &r.CreatorID, &r.PodcastID, &parentID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, fmt.Errorf("scan review: %w", err)
	}
	if parentID.Valid {
		r.ParentReviewID = &parentID.Int64
	}
	return r, nil
}

func scanAuthoredReviews(rows *sql.Rows) ([]Review, error) {
	reviews := []Review{}
	for rows.Next() {
		var (
			r        Review
			author   ReviewAuthor
			parentID sql.NullInt64
			role     string
		)
		if err := rows.Scan(
			&r.ID, &r.Text, &r.Rating, &r.CreatorID, &r.PodcastID, &parentID, &r.CreatedAt, &r.UpdatedAt,
			&author.ID, &author.Email, &role,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if parentID.Valid {
			r.ParentReviewID = &parentID.Int64
		}
		author.Role = Role(role)
		r.Creator = &author
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}
