package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/questlog/questlog/internal/service"
	"github.com/questlog/questlog/internal/validation"
)

type authHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *authHandler {
	return &authHandler{auth: auth}
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	if err := validation.ValidateEmail(email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.Register(email, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmailAlreadyExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			slog.Error("registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	token, err := h.auth.GenerateJWT(user)
	if err != nil {
		slog.Error("token generation failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user_id": user.ID, "token": token})
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Login(r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := h.auth.GenerateJWT(user)
	if err != nil {
		slog.Error("token generation failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": user.ID, "token": token})
}
