package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/hsu0403/hcast-backend/internal/app"
	"github.com/hsu0403/hcast-backend/internal/auth"
	"github.com/hsu0403/hcast-backend/internal/logging"
	"github.com/hsu0403/hcast-backend/internal/store"
)

// PageSize is the number of top-level reviews per page.
const PageSize = 5

// Store defines the persistence hooks for review workflows.
type Store interface {
	PodcastExists(ctx context.Context, id int64) (bool, error)
	ReviewByID(ctx context.Context, id int64) (store.Review, error)
	CreateReview(ctx context.Context, r store.Review) (int64, error)
	ListTopLevelReviews(ctx context.Context, podcastID int64, page, size int) ([]store.Review, int, error)
	ListChildReviews(ctx context.Context, podcastID int64) ([]store.Review, error)
	UpdateReviewText(ctx context.Context, id int64, text string) error
	DeleteReview(ctx context.Context, id int64) error
	UpdatePodcastRating(ctx context.Context, podcastID, excludeReviewID int64, compute func(ratings []int) int) (int, error)
}

// CreateInput describes a new review or reply.
type CreateInput struct {
	PodcastID      int64
	Text           string
	ParentReviewID *int64
	Rating         *int
}

// Page is one page of top-level reviews.
type Page struct {
	Reviews    []store.Review `json:"reviews"`
	TotalCount int            `json:"totalCount"`
	TotalPages int            `json:"totalPages"`
}

// ReplyList holds every reply of a podcast.
type ReplyList struct {
	Reviews    []store.Review `json:"reviews"`
	TotalCount int            `json:"totalCount"`
}

// Service coordinates threaded reviews and podcast rating aggregation.
type Service interface {
	Create(ctx context.Context, actor *auth.Actor, in CreateInput) (int64, error)
	List(ctx context.Context, podcastID int64, page int) (Page, error)
	ListReplies(ctx context.Context, podcastID int64) (ReplyList, error)
	ApplyRating(ctx context.Context, podcastID int64, rating int) (int, error)
	Edit(ctx context.Context, actor *auth.Actor, reviewID int64, text string) error
	Delete(ctx context.Context, actor *auth.Actor, reviewID int64) error
}

type service struct {
	store   Store
	formula Formula
}

// New constructs a reviews Service. A nil formula selects Mean.
func New(store Store, formula Formula) Service {
	if formula == nil {
		formula = Mean
	}
	return &service{store: store, formula: formula}
}

func (s *service) Create(ctx context.Context, actor *auth.Actor, in CreateInput) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := auth.Authorize(actor, auth.RoleAny); err != nil {
		return 0, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return 0, app.Validation("Review text must not be empty.")
	}
	rating := 0
	if in.Rating != nil {
		if *in.Rating < 0 || *in.Rating > 5 {
			return 0, app.Validation("Rating must be between 0 and 5.")
		}
		rating = *in.Rating
	}

	exists, err := s.store.PodcastExists(ctx, in.PodcastID)
	if err != nil {
		return 0, app.Internal(err)
	}
	if !exists {
		return 0, app.NotFound("Podcast with id %d not found.", in.PodcastID)
	}

	if in.ParentReviewID != nil {
		parent, err := s.store.ReviewByID(ctx, *in.ParentReviewID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return 0, app.NotFound("Parent review with id %d not found.", *in.ParentReviewID)
		case err != nil:
			return 0, app.Internal(err)
		case parent.PodcastID != in.PodcastID:
			return 0, app.NotFound("Parent review with id %d not found.", *in.ParentReviewID)
		}
	}

	id, err := s.store.CreateReview(ctx, store.Review{
		Text:           text,
		Rating:         rating,
		CreatorID:      actor.ID,
		PodcastID:      in.PodcastID,
		ParentReviewID: in.ParentReviewID,
	})
	if err != nil {
		return 0, app.Internal(err)
	}

	if rating > 0 {
		if _, err := s.aggregate(ctx, in.PodcastID, id, rating); err != nil {
			logging.FromContext(ctx).Error().
				Err(err).
				Int64("podcast_id", in.PodcastID).
				Int64("review_id", id).
				Msg("Failed to aggregate podcast rating")
		}
	}

	return id, nil
}

func (s *service) List(ctx context.Context, podcastID int64, page int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if page < 1 {
		return Page{}, app.Validation("Page must be a positive integer.")
	}

	reviews, total, err := s.store.ListTopLevelReviews(ctx, podcastID, page, PageSize)
	if err != nil {
		return Page{}, app.Internal(err)
	}

	return Page{
		Reviews:    reviews,
		TotalCount: total,
		TotalPages: (total + PageSize - 1) / PageSize,
	}, nil
}

func (s *service) ListReplies(ctx context.Context, podcastID int64) (ReplyList, error) {
	if err := ctx.Err(); err != nil {
		return ReplyList{}, err
	}
	replies, err := s.store.ListChildReviews(ctx, podcastID)
	if err != nil {
		return ReplyList{}, app.Internal(err)
	}
	if replies == nil {
		replies = []store.Review{}
	}
	return ReplyList{Reviews: replies, TotalCount: len(replies)}, nil
}

func (s *service) ApplyRating(ctx context.Context, podcastID int64, rating int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if rating < 1 || rating > 5 {
		return 0, app.Validation("Rating must be between 1 and 5.")
	}
	return s.aggregate(ctx, podcastID, 0, rating)
}

// aggregate folds rating into the podcast rating. excludeReviewID is the
// review carrying rating, or 0 when the rating is not attached to a review.
func (s *service) aggregate(ctx context.Context, podcastID, excludeReviewID int64, rating int) (int, error) {
	updated, err := s.store.UpdatePodcastRating(ctx, podcastID, excludeReviewID, func(existing []int) int {
		return s.formula(rating, existing)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, app.NotFound("Podcast with id %d not found.", podcastID)
		}
		return 0, app.Internal(err)
	}
	return updated, nil
}

func (s *service) Edit(ctx context.Context, actor *auth.Actor, reviewID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := auth.Authorize(actor, auth.RoleAny); err != nil {
		return err
	}
	if err := s.authorizeCreator(ctx, actor, reviewID); err != nil {
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return app.Validation("Review text must not be empty.")
	}

	if err := s.store.UpdateReviewText(ctx, reviewID, text); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return app.NotFound("Not found review.")
		}
		return app.Internal(err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, actor *auth.Actor, reviewID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := auth.Authorize(actor, auth.RoleAny); err != nil {
		return err
	}
	if err := s.authorizeCreator(ctx, actor, reviewID); err != nil {
		return err
	}

	if err := s.store.DeleteReview(ctx, reviewID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return app.NotFound("Not found review.")
		}
		return app.Internal(err)
	}
	return nil
}

func (s *service) authorizeCreator(ctx context.Context, actor *auth.Actor, reviewID int64) error {
	review, err := s.store.ReviewByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return app.NotFound("Not found review.")
		}
		return app.Internal(err)
	}
	if review.CreatorID != actor.ID {
		return app.Forbidden("Not allowed")
	}
	return nil
}
