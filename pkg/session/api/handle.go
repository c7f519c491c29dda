package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	apperrors "github.com/tendant/trustgate/pkg/errors"
	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/session"
)

const RefreshPath = "/api/session/refresh"

// SessionResponse describes the session carried by the cookie
type SessionResponse struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	Role           string    `json:"role"`
	SessionVersion int       `json:"session_version"`
	Image          *string   `json:"image"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func NewSessionResponse(claims session.Claims, expires time.Time) SessionResponse {
	return SessionResponse{
		ID:             claims.ID,
		Email:          claims.Email,
		Name:           claims.Name,
		Role:           claims.Role,
		SessionVersion: claims.SessionVersion,
		Image:          claims.Image,
		ExpiresAt:      expires,
	}
}

type Handle struct {
	signer   *session.Signer
	enricher session.Enricher
	users    identity.UserDirectory
}

func NewHandle(signer *session.Signer, users identity.UserDirectory) Handle {
	return Handle{
		signer:   signer,
		enricher: session.NewEnricher(),
		users:    users,
	}
}

// Routes mounts the session endpoints behind the session verifier
func (h Handle) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.signer.Verifier())
		r.Use(jwtauth.Authenticator(h.signer.JWTAuth()))
		r.Post(RefreshPath, h.Refresh)
	})
}

// Refresh handles POST /api/session/refresh
func (h Handle) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, err := session.ClaimsFromContext(r.Context())
	if err != nil {
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "Invalid session"))
		return
	}

	var update session.ProfileUpdate
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &update); err != nil {
			apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Invalid request body"))
			return
		}
	}

	user, err := h.users.FindByID(r.Context(), claims.ID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			h.signer.ClearSessionCookie(w)
			apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "Invalid session"))
			return
		}
		slog.Error("Failed to load session user", "user_id", claims.ID, "error", err)
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to refresh session"))
		return
	}

	if err := session.ValidateVersion(claims, *user); err != nil {
		slog.Info("Rejected stale session", "user_id", claims.ID, "session_version", claims.SessionVersion)
		h.signer.ClearSessionCookie(w)
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeSessionRevoked, "Session has been revoked"))
		return
	}

	refreshed := h.enricher.Refresh(claims, *user, update)
	token, expires, err := h.signer.Sign(refreshed)
	if err != nil {
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to refresh session"))
		return
	}
	h.signer.SetSessionCookie(w, token, expires)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, NewSessionResponse(refreshed, expires))
}
