package podcasts

import (
	"context"
	"errors"
	"strings"

	"github.com/hsu0403/hcast-backend/internal/app"
	"github.com/hsu0403/hcast-backend/internal/auth"
	"github.com/hsu0403/hcast-backend/internal/store"
)

// PageSize is the number of podcasts per listing page.
const PageSize = 12

// Store defines the persistence hooks for podcast and episode workflows.
type Store interface {
	CreatePodcast(ctx context.Context, p store.Podcast) (int64, error)
	PodcastByID(ctx context.Context, id int64) (store.Podcast, error)
	ListPodcasts(ctx context.Context, page, size int) ([]store.Podcast, int, error)
	SearchPodcasts(ctx context.Context, query string, page, size int) ([]store.Podcast, int, error)
	UpdatePodcast(ctx context.Context, id int64, u store.PodcastUpdate) error
	DeletePodcast(ctx context.Context, id int64) error
	CountReviews(ctx context.Context, podcastID int64) (int, error)

	CreateEpisode(ctx context.Context, e store.Episode) (int64, error)
	EpisodesByPodcast(ctx context.Context, podcastID int64) ([]store.Episode, error)
	EpisodeByID(ctx context.Context, podcastID, episodeID int64) (store.Episode, error)
	UpdateEpisode(ctx context.Context, podcastID, episodeID int64, u store.EpisodeUpdate) error
	DeleteEpisode(ctx context.Context, podcastID, episodeID int64) error
}

// ListPage is one page of podcasts.
type ListPage struct {
	Podcasts   []store.Podcast `json:"podcasts"`
	TotalCount int             `json:"totalCount"`
	TotalPages int             `json:"totalPages"`
}

// Detail is a podcast with its episodes and review summary.
type Detail struct {
	store.Podcast
	Episodes    []store.Episode `json:"episodes"`
	ReviewCount int             `json:"reviewCount"`
	Categories  []string        `json:"categories"`
}

// CreatePodcastInput describes a new podcast.
type CreatePodcastInput struct {
	Title      string
	Category   string
	CoverImage string
}

// UpdatePodcastInput carries optional podcast changes.
type UpdatePodcastInput struct {
	Title      *string
	Category   *string
	CoverImage *string
	Rating     *int
}

// CreateEpisodeInput describes a new episode.
type CreateEpisodeInput struct {
	Title      string
	Category   string
	EpisodeURL string
}

// UpdateEpisodeInput carries optional episode changes.
type UpdateEpisodeInput struct {
	Title      *string
	Category   *string
	EpisodeURL *string
}

// Service exposes podcast and episode workflows.
type Service interface {
	List(ctx context.Context, page int) (ListPage, error)
	Search(ctx context.Context, query string, page int) (ListPage, error)
	Get(ctx context.Context, id int64) (Detail, error)
	Create(ctx context.Context, actor *auth.Actor, in CreatePodcastInput) (int64, error)
	Update(ctx context.Context, actor *auth.Actor, id int64, in UpdatePodcastInput) error
	Delete(ctx context.Context, actor *auth.Actor, id int64) error

	ListEpisodes(ctx context.Context, podcastID int64) ([]store.Episode, error)
	GetEpisode(ctx context.Context, podcastID, episodeID int64) (store.Episode, error)
	CreateEpisode(ctx context.Context, actor *auth.Actor, podcastID int64, in CreateEpisodeInput) (int64, error)
	UpdateEpisode(ctx context.Context, actor *auth.Actor, podcastID, episodeID int64, in UpdateEpisodeInput) error
	DeleteEpisode(ctx context.Context, actor *auth.Actor, podcastID, episodeID int64) error
}

type service struct {
	store Store
}

// New wires a podcasts Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, page int) (ListPage, error) {
	if err := ctx.Err(); err != nil {
		return ListPage{}, err
	}
	if page < 1 {
		return ListPage{}, app.Validation("Page must be a positive integer.")
	}

	podcasts, total, err := s.store.ListPodcasts(ctx, page, PageSize)
	if err != nil {
		return ListPage{}, app.Internal(err)
	}
	return newListPage(podcasts, total), nil
}

func (s *service) Search(ctx context.Context, query string, page int) (ListPage, error) {
	if err := ctx.Err(); err != nil {
		return ListPage{}, err
	}
	if page < 1 {
		return ListPage{}, app.Validation("Page must be a positive integer.")
	}

	podcasts, total, err := s.store.SearchPodcasts(ctx, strings.TrimSpace(query), page, PageSize)
	if err != nil {
		return ListPage{}, app.Internal(err)
	}
	return newListPage(podcasts, total), nil
}

func (s *service) Get(ctx context.Context, id int64) (Detail, error) {
	if err := ctx.Err(); err != nil {
		return Detail{}, err
	}

	podcast, err := s.podcast(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	episodes, err := s.store.EpisodesByPodcast(ctx, id)
	if err != nil {
		return Detail{}, app.Internal(err)
	}
	count, err := s.store.CountReviews(ctx, id)
	if err != nil {
		return Detail{}, app.Internal(err)
	}

	return Detail{
		Podcast:     podcast,
		Episodes:    episodes,
		ReviewCount: count,
		Categories:  episodeCategories(episodes),
	}, nil
}

func (s *service) Create(ctx context.Context, actor *auth.Actor, in CreatePodcastInput) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := auth.Authorize(actor, store.RoleHost); err != nil {
		return 0, err
	}

	title := strings.TrimSpace(in.Title)
	category := normalizeCategory(in.Category)
	if title == "" || category == "" {
		return 0, app.Validation("Title and category are required.")
	}

	id, err := s.store.CreatePodcast(ctx, store.Podcast{
		Title:      title,
		Category:   category,
		CoverImage: strings.TrimSpace(in.CoverImage),
		CreatorID:  actor.ID,
	})
	if err != nil {
		return 0, app.Internal(err)
	}
	return id, nil
}

func (s *service) Update(ctx context.Context, actor *auth.Actor, id int64, in UpdatePodcastInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}

	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return app.Validation("Rating must be between 1 and 5.")
	}
	update := store.PodcastUpdate{
		Title:      trimmed(in.Title),
		Category:   normalized(in.Category),
		CoverImage: trimmed(in.CoverImage),
		Rating:     in.Rating,
	}
	if (update.Title != nil && *update.Title == "") || (update.Category != nil && *update.Category == "") {
		return app.Validation("Title and category must not be empty.")
	}

	if err := s.store.UpdatePodcast(ctx, id, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return app.NotFound("Podcast with id %d not found.", id)
		}
		return app.Internal(err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}

	if err := s.store.DeletePodcast(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return app.NotFound("Podcast with id %d not found.", id)
		}
		return app.Internal(err)
	}
	return nil
}

func (s *service) ListEpisodes(ctx context.Context, podcastID int64) ([]store.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.podcast(ctx, podcastID); err != nil {
		return nil, err
	}

	episodes, err := s.store.EpisodesByPodcast(ctx, podcastID)
	if err != nil {
		return nil, app.Internal(err)
	}
	return episodes, nil
}

func (s *service) GetEpisode(ctx context.Context, podcastID, episodeID int64) (store.Episode, error) {
	if err := ctx.Err(); err != nil {
		return store.Episode{}, err
	}
	if _, err := s.podcast(ctx, podcastID); err != nil {
		return store.Episode{}, err
	}

	episode, err := s.store.EpisodeByID(ctx, podcastID, episodeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Episode{}, episodeNotFound(podcastID, episodeID)
		}
		return store.Episode{}, app.Internal(err)
	}
	return episode, nil
}

func (s *service) CreateEpisode(ctx context.Context, actor *auth.Actor, podcastID int64, in CreateEpisodeInput) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := s.owned(ctx, actor, podcastID); err != nil {
		return 0, err
	}

	title := strings.TrimSpace(in.Title)
	category := normalizeCategory(in.Category)
	url := strings.TrimSpace(in.EpisodeURL)
	if title == "" || category == "" || url == "" {
		return 0, app.Validation("Title, category and episode url are required.")
	}

	id, err := s.store.CreateEpisode(ctx, store.Episode{
		Title:      title,
		Category:   category,
		EpisodeURL: url,
		PodcastID:  podcastID,
	})
	if err != nil {
		return 0, app.Internal(err)
	}
	return id, nil
}

func (s *service) UpdateEpisode(ctx context.Context, actor *auth.Actor, podcastID, episodeID int64, in UpdateEpisodeInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, podcastID); err != nil {
		return err
	}

	update := store.EpisodeUpdate{
		Title:      trimmed(in.Title),
		Category:   normalized(in.Category),
		EpisodeURL: trimmed(in.EpisodeURL),
	}
	for _, field := range []*string{update.Title, update.Category, update.EpisodeURL} {
		if field != nil && *field == "" {
			return app.Validation("Title, category and episode url must not be empty.")
		}
	}

	if err := s.store.UpdateEpisode(ctx, podcastID, episodeID, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return episodeNotFound(podcastID, episodeID)
		}
		return app.Internal(err)
	}
	return nil
}

func (s *service) DeleteEpisode(ctx context.Context, actor *auth.Actor, podcastID, episodeID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.owned(ctx, actor, podcastID); err != nil {
		return err
	}

	if err := s.store.DeleteEpisode(ctx, podcastID, episodeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return episodeNotFound(podcastID, episodeID)
		}
		return app.Internal(err)
	}
	return nil
}

func (s *service) podcast(ctx context.Context, id int64) (store.Podcast, error) {
	podcast, err := s.store.PodcastByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Podcast{}, app.NotFound("Podcast with id %d not found.", id)
		}
		return store.Podcast{}, app.Internal(err)
	}
	return podcast, nil
}

// owned loads the podcast and checks that actor is a host who created it.
func (s *service) owned(ctx context.Context, actor *auth.Actor, id int64) (store.Podcast, error) {
	if err := auth.Authorize(actor, store.RoleHost); err != nil {
		return store.Podcast{}, err
	}
	podcast, err := s.podcast(ctx, id)
	if err != nil {
		return store.Podcast{}, err
	}
	if podcast.CreatorID != actor.ID {
		return store.Podcast{}, app.Forbidden("Not authorized")
	}
	return podcast, nil
}

func newListPage(podcasts []store.Podcast, total int) ListPage {
	return ListPage{
		Podcasts:   podcasts,
		TotalCount: total,
		TotalPages: (total + PageSize - 1) / PageSize,
	}
}

func episodeNotFound(podcastID, episodeID int64) error {
	return app.NotFound("Episode with id %d not found in podcast with id %d", episodeID, podcastID)
}

// episodeCategories returns the distinct episode categories in first-seen
// order.
func episodeCategories(episodes []store.Episode) []string {
	seen := make(map[string]bool, len(episodes))
	categories := []string{}
	for _, e := range episodes {
		if !seen[e.Category] {
			seen[e.Category] = true
			categories = append(categories, e.Category)
		}
	}
	return categories
}

func normalizeCategory(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func normalized(v *string) *string {
	if v == nil {
		return nil
	}
	n := normalizeCategory(*v)
	return &n
}
