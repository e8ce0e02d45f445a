package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hsu0403/hcast-backend/internal/app/podcasts"
	"github.com/hsu0403/hcast-backend/internal/app/reviews"
	"github.com/hsu0403/hcast-backend/internal/app/users"
	"github.com/hsu0403/hcast-backend/internal/auth"
	"github.com/hsu0403/hcast-backend/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	CreateAccount(ctx context.Context, email, password string, role store.Role) error
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, actor *auth.Actor) (store.User, error)
	Profile(ctx context.Context, userID int64) (store.User, error)
	EditProfile(ctx context.Context, actor *auth.Actor, in users.EditProfileInput) error
	VerifyEmail(ctx context.Context, code string) error
	ForgotPassword(ctx context.Context, email string) error
	ToggleSubscribe(ctx context.Context, actor *auth.Actor, podcastID int64) (bool, error)
	Subscriptions(ctx context.Context, actor *auth.Actor) ([]store.Podcast, error)
	MarkEpisodePlayed(ctx context.Context, actor *auth.Actor, episodeID int64) error
}

// PodcastService describes podcast and episode workflows.
type PodcastService interface {
	List(ctx context.Context, page int) (podcasts.ListPage, error)
	Search(ctx context.Context, query string, page int) (podcasts.ListPage, error)
	Get(ctx context.Context, id int64) (podcasts.Detail, error)
	Create(ctx context.Context, actor *auth.Actor, in podcasts.CreatePodcastInput) (int64, error)
	Update(ctx context.Context, actor *auth.Actor, id int64, in podcasts.UpdatePodcastInput) error
	Delete(ctx context.Context, actor *auth.Actor, id int64) error
	ListEpisodes(ctx context.Context, podcastID int64) ([]store.Episode, error)
	GetEpisode(ctx context.Context, podcastID, episodeID int64) (store.Episode, error)
	CreateEpisode(ctx context.Context, actor *auth.Actor, podcastID int64, in podcasts.CreateEpisodeInput) (int64, error)
	UpdateEpisode(ctx context.Context, actor *auth.Actor, podcastID, episodeID int64, in podcasts.UpdateEpisodeInput) error
	DeleteEpisode(ctx context.Context, actor *auth.Actor, podcastID, episodeID int64) error
}

// ReviewService exposes threaded reviews and rating aggregation.
type ReviewService interface {
	Create(ctx context.Context, actor *auth.Actor, in reviews.CreateInput) (int64, error)
	List(ctx context.Context, podcastID int64, page int) (reviews.Page, error)
	ListReplies(ctx context.Context, podcastID int64) (reviews.ReplyList, error)
	ApplyRating(ctx context.Context, podcastID int64, rating int) (int, error)
	Edit(ctx context.Context, actor *auth.Actor, reviewID int64, text string) error
	Delete(ctx context.Context, actor *auth.Actor, reviewID int64) error
}

// HealthChecker reports whether backing services are reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users    UserService
	podcasts PodcastService
	reviews  ReviewService
	health   HealthChecker
}

// New configures a Server with the given services.
func New(users UserService, podcasts PodcastService, reviews ReviewService, health HealthChecker) *Server {
	return &Server{
		users:    users,
		podcasts: podcasts,
		reviews:  reviews,
		health:   health,
	}
}

// Routes exposes the HTTP handlers. Actors are expected in the request
// context, see auth.Middleware.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Accounts
	api.HandleFunc("/users", s.handleCreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/users/verify-email", s.handleVerifyEmail).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", guard(s.handleUserProfile, auth.RoleAny)).Methods(http.MethodGet)
	api.HandleFunc("/me", guard(s.handleMe, auth.RoleAny)).Methods(http.MethodGet)
	api.HandleFunc("/me", guard(s.handleEditProfile, auth.RoleAny)).Methods(http.MethodPatch)
	api.HandleFunc("/me/subscriptions", guard(s.handleSubscriptions, store.RoleListener)).Methods(http.MethodGet)
	api.HandleFunc("/me/subscriptions/{podcastId}", guard(s.handleToggleSubscribe, store.RoleListener)).Methods(http.MethodPost)
	api.HandleFunc("/me/played-episodes/{episodeId}", guard(s.handleMarkEpisodePlayed, store.RoleListener)).Methods(http.MethodPost)

	// Podcasts and episodes
	api.HandleFunc("/podcasts", guard(s.handleListPodcasts, auth.RoleAny)).Methods(http.MethodGet)
	api.HandleFunc("/podcasts", guard(s.handleCreatePodcast, store.RoleHost)).Methods(http.MethodPost)
	api.HandleFunc("/podcasts/search", guard(s.handleSearchPodcasts, store.RoleListener)).Methods(http.MethodGet)
	api.HandleFunc("/podcasts/{id}", guard(s.handleGetPodcast, auth.RoleAny)).Methods(http.MethodGet)
	api.HandleFunc("/podcasts/{id}", guard(s.handleUpdatePodcast, store.RoleHost)).Methods(http.MethodPatch)
	api.HandleFunc("/podcasts/{id}", guard(s.handleDeletePodcast, store.RoleHost)).Methods(http.MethodDelete)
	api.HandleFunc("/podcasts/{id}/rating", guard(s.handleRatePodcast, store.RoleListener)).Methods(http.MethodPost)
	api.HandleFunc("/podcasts/{id}/episodes", guard(s.handleListEpisodes, auth.RoleAny)).Methods(http.MethodGet)
	api.HandleFunc("/podcasts/{id}/episodes", guard(s.handleCreateEpisode, store.RoleHost)).Methods(http.MethodPost)
	api.HandleFunc("/podcasts/{id}/episodes/{episodeId}", guard(s.handleGetEpisode, auth.RoleAny)).Methods(http.MethodGet)
	api.HandleFunc("/podcasts/{id}/episodes/{episodeId}", guard(s.handleUpdateEpisode, store.RoleHost)).Methods(http.MethodPatch)
	api.HandleFunc("/podcasts/{id}/episodes/{episodeId}", guard(s.handleDeleteEpisode, store.RoleHost)).Methods(http.MethodDelete)

	// Reviews
	api.HandleFunc("/reviews", guard(s.handleCreateReview, auth.RoleAny)).Methods(http.MethodPost)
	api.HandleFunc("/reviews/{id}", guard(s.handleEditReview, auth.RoleAny)).Methods(http.MethodPatch)
	api.HandleFunc("/reviews/{id}", guard(s.handleDeleteReview, auth.RoleAny)).Methods(http.MethodDelete)
	api.HandleFunc("/podcasts/{id}/reviews", guard(s.handleGetReviews, auth.RoleAny)).Methods(http.MethodGet)
	api.HandleFunc("/podcasts/{id}/reviews/children", guard(s.handleGetChildReviews, auth.RoleAny)).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{"ok": false, "error": "Route not found."})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{"ok": false, "error": "Method not allowed."})
	})

	return router
}

// guard rejects requests whose actor does not hold one of roles.
func guard(next http.HandlerFunc, roles ...store.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := auth.Authorize(auth.ActorFromContext(r.Context()), roles...); err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, envelope{"ok": false, "error": "Database unavailable."})
			return
		}
	}
	writeOK(w, http.StatusOK, nil)
}
