package http

import (
	"errors"
	"net/http"
	"strings"

	"digital-delta/internal/access"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/session"
)

const (
	loginFailedMessage    = "Inloggen mislukt"
	callbackFailedMessage = "Externe login mislukt"
	registerFailedMessage = "Registratie mislukt"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type callbackRequest struct {
	URL string `json:"url"`
}

func (h *Handler) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return
	}
	resp, err := h.store.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		message := deltaapi.DetailOr(err, loginFailedMessage)
		h.console.Notices().Error(message)
		status := http.StatusBadGateway
		var apiErr *deltaapi.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		writeDetail(w, status, message)
		return
	}
	// The backend token stays with the console.
	resp.SessionToken = ""
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req deltaapi.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	payload, err := h.store.Register(r.Context(), req)
	if err != nil {
		message := deltaapi.DetailOr(err, registerFailedMessage)
		h.console.Notices().Error(message)
		writeDetail(w, statusFor(err), message)
		return
	}
	delete(payload, "session_token")
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.store.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"navigate": access.PathRoot})
}

func (h *Handler) handleExternalLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.store.ExternalLoginURL(), http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	result, err := h.store.CompleteExternalCallback(r.Context(), req.URL)
	switch {
	case errors.Is(err, session.ErrNoSessionID):
		writeJSON(w, http.StatusBadRequest, result)
		return
	case err != nil:
		h.console.Notices().Error(deltaapi.DetailOr(err, callbackFailedMessage))
		writeJSON(w, http.StatusUnauthorized, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleNotices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.console.Notices().Drain())
}

func (h *Handler) handleNavigation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, access.Navigation(h.store.Snapshot().Role()))
}
