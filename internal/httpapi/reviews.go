package httpapi

import (
	"net/http"

	"github.com/hsu0403/hcast-backend/internal/app/reviews"
	"github.com/hsu0403/hcast-backend/internal/auth"
)

type createReviewRequest struct {
	PodcastID      int64  `json:"podcast_id"`
	Text           string `json:"text"`
	ParentReviewID *int64 `json:"parent_review_id"`
	Rating         *int   `json:"rating"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.reviews.Create(r.Context(), auth.ActorFromContext(r.Context()), reviews.CreateInput{
		PodcastID:      req.PodcastID,
		Text:           req.Text,
		ParentReviewID: req.ParentReviewID,
		Rating:         req.Rating,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"id": id})
}

func (s *Server) handleEditReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.reviews.Edit(r.Context(), auth.ActorFromContext(r.Context()), id, req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.reviews.Delete(r.Context(), auth.ActorFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleGetReviews(w http.ResponseWriter, r *http.Request) {
	podcastID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.reviews.List(r.Context(), podcastID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{
		"reviews":    result.Reviews,
		"totalCount": result.TotalCount,
		"totalPages": result.TotalPages,
	})
}

func (s *Server) handleGetChildReviews(w http.ResponseWriter, r *http.Request) {
	podcastID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	replies, err := s.reviews.ListReplies(r.Context(), podcastID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{
		"reviews":    replies.Reviews,
		"totalCount": replies.TotalCount,
	})
}
