package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/trustgate/pkg/devicetoken"
	apperrors "github.com/tendant/trustgate/pkg/errors"
)

// DisableDeviceResponse is returned after a device was revoked through its link
type DisableDeviceResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	DeviceID uuid.UUID `json:"device_id"`
	UserID   int64     `json:"user_id"`
}

// Handle serves the device-disable link
type Handle struct {
	service *devicetoken.Service
}

func NewHandle(service *devicetoken.Service) Handle {
	return Handle{service: service}
}

// Routes mounts GET /security/devices/disable
func (h Handle) Routes(r chi.Router) {
	r.Get(devicetoken.DisablePath, h.DisableDevice)
}

// DisableDevice handles GET /security/devices/disable?token=...
func (h Handle) DisableDevice(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Redeem(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		switch {
		case errors.Is(err, devicetoken.ErrTokenInvalid):
			err = apperrors.Wrap(err, apperrors.ErrCodeTokenInvalid, "Invalid device disable link")
		case errors.Is(err, devicetoken.ErrTokenExpired):
			err = apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "Device disable link has expired")
		case errors.Is(err, devicetoken.ErrTokenAlreadyUsed):
			err = apperrors.Wrap(err, apperrors.ErrCodeTokenAlreadyUsed, "Device disable link has already been used")
		default:
			err = apperrors.Wrap(err, apperrors.ErrCodeInternal, "An error occurred while disabling the device")
		}
		apperrors.Render(w, r, err)
		return
	}

	var resp DisableDeviceResponse
	if err := copier.Copy(&resp, &result); err != nil {
		slog.Error("Failed to map redeem result", "error", err)
	}
	resp.Status = "revoked"
	resp.Message = "The device has been signed out and can no longer be used to sign in"

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}
