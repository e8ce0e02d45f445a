package httpapi

import (
	"net/http"

	"github.com/hsu0403/hcast-backend/internal/app/users"
	"github.com/hsu0403/hcast-backend/internal/auth"
	"github.com/hsu0403/hcast-backend/internal/store"
)

type createAccountRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     store.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type editProfileRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.users.CreateAccount(r.Context(), req.Email, req.Password, req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"token": token})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.users.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.users.VerifyEmail(r.Context(), req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Me(r.Context(), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"user": user})
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.users.Profile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"user": user})
}

func (s *Server) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	var req editProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := users.EditProfileInput{Email: req.Email, Password: req.Password}
	if err := s.users.EditProfile(r.Context(), auth.ActorFromContext(r.Context()), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) handleToggleSubscribe(w http.ResponseWriter, r *http.Request) {
	podcastID, err := pathID(r, "podcastId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	subscribed, err := s.users.ToggleSubscribe(r.Context(), auth.ActorFromContext(r.Context()), podcastID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"subscribed": subscribed})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	podcasts, err := s.users.Subscriptions(r.Context(), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"subscriptions": podcasts})
}

func (s *Server) handleMarkEpisodePlayed(w http.ResponseWriter, r *http.Request) {
	episodeID, err := pathID(r, "episodeId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.users.MarkEpisodePlayed(r.Context(), auth.ActorFromContext(r.Context()), episodeID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}
