package httpapi

import (
	"net/http"

	"github.com/hsu0403/hcast-backend/internal/app"
	"github.com/hsu0403/hcast-backend/internal/app/podcasts"
	"github.com/hsu0403/hcast-backend/internal/auth"
)

type createPodcastRequest struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	CoverImage string `json:"cover_image"`
}

type updatePodcastRequest struct {
	Title      *string `json:"title"`
	Category   *string `json:"category"`
	CoverImage *string `json:"cover_image"`
	Rating     *int    `json:"rating"`
}

type episodeRequest struct {
	Title      *string `json:"title"`
	Category   *string `json:"category"`
	EpisodeURL *string `json:"episode_url"`
}

func (s *Server) handleListPodcasts(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.podcasts.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, listEnvelope(result))
}

func (s *Server) handleSearchPodcasts(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.podcasts.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, listEnvelope(result))
}

func (s *Server) handleCreatePodcast(w http.ResponseWriter, r *http.Request) {
	var req createPodcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.podcasts.Create(r.Context(), auth.ActorFromContext(r.Context()), podcasts.CreatePodcastInput{
		Title:      req.Title,
		Category:   req.Category,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"id": id})
}

func (s *Server) handleGetPodcast(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := s.podcasts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"podcast": detail})
}

func (s *Server) handleUpdatePodcast(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updatePodcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err = s.podcasts.Update(r.Context(), auth.ActorFromContext(r.Context()), id, podcasts.UpdatePodcastInput{
		Title:      req.Title,
		Category:   req.Category,
		CoverImage: req.CoverImage,
		Rating:     req.Rating,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleDeletePodcast(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.podcasts.Delete(r.Context(), auth.ActorFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleRatePodcast(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Rating *int `json:"rating"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Rating == nil {
		writeError(w, r, app.Validation("Rating must be between 1 and 5."))
		return
	}

	rating, err := s.reviews.ApplyRating(r.Context(), id, *req.Rating)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"rating": rating})
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	episodes, err := s.podcasts.ListEpisodes(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"episodes": episodes})
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	podcastID, episodeID, err := episodePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	episode, err := s.podcasts.GetEpisode(r.Context(), podcastID, episodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"episode": episode})
}

func (s *Server) handleCreateEpisode(w http.ResponseWriter, r *http.Request) {
	podcastID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req episodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.podcasts.CreateEpisode(r.Context(), auth.ActorFromContext(r.Context()), podcastID, podcasts.CreateEpisodeInput{
		Title:      deref(req.Title),
		Category:   deref(req.Category),
		EpisodeURL: deref(req.EpisodeURL),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"id": id})
}

func (s *Server) handleUpdateEpisode(w http.ResponseWriter, r *http.Request) {
	podcastID, episodeID, err := episodePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req episodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err = s.podcasts.UpdateEpisode(r.Context(), auth.ActorFromContext(r.Context()), podcastID, episodeID, podcasts.UpdateEpisodeInput{
		Title:      req.Title,
		Category:   req.Category,
		EpisodeURL: req.EpisodeURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	podcastID, episodeID, err := episodePath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.podcasts.DeleteEpisode(r.Context(), auth.ActorFromContext(r.Context()), podcastID, episodeID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func episodePath(r *http.Request) (int64, int64, error) {
	podcastID, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	episodeID, err := pathID(r, "episodeId")
	if err != nil {
		return 0, 0, err
	}
	return podcastID, episodeID, nil
}

func listEnvelope(page podcasts.ListPage) envelope {
	return envelope{
		"podcasts":   page.Podcasts,
		"totalCount": page.TotalCount,
		"totalPages": page.TotalPages,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
