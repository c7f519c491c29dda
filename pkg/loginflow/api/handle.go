package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/trustgate/pkg/device"
	apperrors "github.com/tendant/trustgate/pkg/errors"
	"github.com/tendant/trustgate/pkg/externalprovider"
	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/loginflow"
	"github.com/tendant/trustgate/pkg/session"
)

const (
	PasswordLoginPath = "/api/login/password"
	VerdictPath       = "/api/login/verdict"
	APIKeyHeader      = "X-Trustgate-Key"
)

// PasswordLoginRequest is the body of POST /api/login/password
type PasswordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForwardedContext overrides the request context with the values the host
// application saw on the original login request
type ForwardedContext struct {
	UserAgent      string `json:"user_agent"`
	AcceptLanguage string `json:"accept_language"`
	IP             string `json:"ip"`
	Timezone       string `json:"timezone"`
}

// VerdictRequest is the body of POST /api/login/verdict. Exactly one of
// UserID, ProviderAccountID or UserInfo identifies the user.
type VerdictRequest struct {
	UserID            int64             `json:"user_id,omitempty"`
	Provider          string            `json:"provider,omitempty"`
	ProviderAccountID string            `json:"provider_account_id,omitempty"`
	Email             string            `json:"email,omitempty"`
	EmailVerified     bool              `json:"email_verified,omitempty"`
	Name              string            `json:"name,omitempty"`
	Image             *string           `json:"image,omitempty"`
	UserInfo          json.RawMessage   `json:"userinfo,omitempty"`
	Context           *ForwardedContext `json:"context,omitempty"`
}

// LoginResponse is returned when the login is allowed
type LoginResponse struct {
	Status      string    `json:"status"`
	UserID      int64     `json:"user_id"`
	Role        string    `json:"role"`
	Image       *string   `json:"image"`
	DeviceState string    `json:"device_state"`
	ExpiresAt   time.Time `json:"expires_at"`
	Token       string    `json:"token,omitempty"`
}

type Handle struct {
	auth   *loginflow.AuthService
	signer *session.Signer
	apiKey string
}

type Option func(*Handle)

// WithVerdictAPIKey requires the verdict endpoint caller to present key in
// X-Trustgate-Key. Without a key the verdict endpoint is not mounted.
func WithVerdictAPIKey(key string) Option {
	return func(h *Handle) {
		h.apiKey = key
	}
}

func NewHandle(auth *loginflow.AuthService, signer *session.Signer, opts ...Option) Handle {
	h := Handle{auth: auth, signer: signer}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Routes mounts the login endpoints. The password endpoint is only mounted
// when a credential verifier is configured, the verdict endpoint only when
// an API key is.
func (h Handle) Routes(r chi.Router) {
	if h.auth.PasswordEnabled() {
		r.Post(PasswordLoginPath, h.PasswordLogin)
	}
	if h.apiKey == "" {
		slog.Warn("Login verdict endpoint disabled: no API key configured", "path", VerdictPath)
		return
	}
	r.With(h.requireAPIKey).Post(VerdictPath, h.Verdict)
}

func (h Handle) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get(APIKeyHeader)), []byte(h.apiKey)) != 1 {
			apperrors.Render(w, r, apperrors.New(apperrors.ErrCodeUnauthorized, "Missing or invalid API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PasswordLogin handles POST /api/login/password
func (h Handle) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var body PasswordLoginRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Invalid request body"))
		return
	}

	result, err := h.auth.LoginWithPassword(r.Context(), body.Email, body.Password, device.ExtractRequestContext(r))
	h.respond(w, r, result, err, false)
}

// Verdict handles POST /api/login/verdict for users the host application
// already authenticated
func (h Handle) Verdict(w http.ResponseWriter, r *http.Request) {
	var body VerdictRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Invalid request body"))
		return
	}

	id, err := body.toIdentity()
	if err != nil {
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, err.Error()))
		return
	}

	rc := device.ExtractRequestContext(r)
	if body.Context != nil {
		rc = body.Context.apply(rc)
	}

	result, err := h.auth.Authorize(r.Context(), id, rc)
	h.respond(w, r, result, err, true)
}

func (h Handle) respond(w http.ResponseWriter, r *http.Request, result loginflow.Result, err error, includeToken bool) {
	if err != nil {
		var loginErr *loginflow.Error
		if !errors.As(err, &loginErr) {
			apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Login could not be completed"))
			return
		}
		switch loginErr.Type {
		case loginflow.ErrorTypeInvalidCredentials, loginflow.ErrorTypeAccessDenied:
			// revoked devices and refused links look exactly like bad credentials
			apperrors.Render(w, r, apperrors.New(apperrors.ErrCodeInvalidCredentials, "Invalid email or password"))
		case loginflow.ErrorTypeUnsupported:
			apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, loginErr.Message))
		default:
			apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Login could not be completed"))
		}
		return
	}

	if h.signer != nil && result.Token != "" {
		h.signer.SetSessionCookie(w, result.Token, result.ExpiresAt)
	}

	resp := LoginResponse{
		Status:      "allow",
		UserID:      result.Claims.ID,
		Role:        result.Claims.Role,
		Image:       result.Claims.Image,
		DeviceState: string(result.Verdict.State),
		ExpiresAt:   result.ExpiresAt,
	}
	if includeToken {
		resp.Token = result.Token
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (b VerdictRequest) toIdentity() (identity.Identity, error) {
	switch {
	case b.UserID != 0:
		return identity.PasswordIdentity{UserID: b.UserID}, nil
	case b.Provider != "" && len(b.UserInfo) > 0:
		return externalprovider.ParseUserInfo(b.Provider, b.UserInfo)
	case b.Provider != "" && b.ProviderAccountID != "":
		return identity.OAuthIdentity{
			ProviderName:      b.Provider,
			ProviderAccountID: b.ProviderAccountID,
			Email:             b.Email,
			EmailVerified:     b.EmailVerified,
			Name:              b.Name,
			Image:             b.Image,
		}, nil
	}
	return nil, errors.New("user_id or provider identity is required")
}

func (f ForwardedContext) apply(rc device.RequestContext) device.RequestContext {
	if f.UserAgent != "" {
		rc.UserAgent = device.TruncateUserAgent(f.UserAgent)
	}
	if f.AcceptLanguage != "" {
		rc.AcceptLanguage = f.AcceptLanguage
	}
	if ip := device.NormalizeIP(f.IP); ip != "" {
		rc.IP = ip
	}
	if f.Timezone != "" {
		rc.Timezone = f.Timezone
	}
	return rc
}
