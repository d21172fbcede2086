package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"integrations-api/internal/auth"
	"integrations-api/internal/model"
	"integrations-api/internal/store"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Token  string `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, message{err.Error()})
		return nil
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		respondJSON(w, http.StatusBadRequest, message{"all fields required"})
		return nil
	}
	if len(req.Password) < 8 {
		respondJSON(w, http.StatusBadRequest, message{"password too short"})
		return nil
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	if err := h.users.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// don't reveal which field clashed
			respondJSON(w, http.StatusConflict, message{"registration failed"})
			return nil
		}
		return err
	}

	tok, err := auth.MakeToken(u.ID, h.secret)
	if err != nil {
		return err
	}
	respondJSON(w, http.StatusCreated, authResponse{UserID: u.ID, Token: tok})
	return nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) error {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, message{err.Error()})
		return nil
	}
	if req.Email == "" || req.Password == "" {
		respondJSON(w, http.StatusBadRequest, message{"email and password required"})
		return nil
	}

	u, err := h.users.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		respondJSON(w, http.StatusUnauthorized, message{"invalid credentials"})
		return nil
	}
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		respondJSON(w, http.StatusUnauthorized, message{"invalid credentials"})
		return nil
	}

	tok, err := auth.MakeToken(u.ID, h.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(auth.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, authResponse{UserID: u.ID, Name: u.Name, Token: tok})
	return nil
}
