package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/trustgate/pkg/device"
	apperrors "github.com/tendant/trustgate/pkg/errors"
	"github.com/tendant/trustgate/pkg/session"
)

const DevicesPath = "/api/devices"

// DeviceResponse is one trusted device as shown on the account security page
type DeviceResponse struct {
	ID         uuid.UUID  `json:"id"`
	Browser    string     `json:"browser"`
	OS         string     `json:"os"`
	DeviceType string     `json:"device_type"`
	UserAgent  string     `json:"user_agent"`
	IP         string     `json:"ip"`
	Timezone   string     `json:"timezone,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt time.Time  `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	Current    bool       `json:"current"`
}

// ListDevicesResponse represents the response body for listing devices
type ListDevicesResponse struct {
	Status  string           `json:"status"`
	Devices []DeviceResponse `json:"devices"`
}

// DeviceHandler handles HTTP requests for the signed-in user's devices
type DeviceHandler struct {
	deviceService *device.DeviceService
	signer        *session.Signer
}

func NewDeviceHandler(deviceService *device.DeviceService, signer *session.Signer) *DeviceHandler {
	return &DeviceHandler{
		deviceService: deviceService,
		signer:        signer,
	}
}

// Routes mounts GET /api/devices behind the session verifier
func (h *DeviceHandler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.signer.Verifier())
		r.Use(jwtauth.Authenticator(h.signer.JWTAuth()))
		r.Get(DevicesPath, h.ListDevices)
	})
}

// ListDevices lists every trust row of the current user, newest first.
// The row matching the requesting browser is flagged as current.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	claims, err := session.ClaimsFromContext(r.Context())
	if err != nil {
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "Invalid session"))
		return
	}

	devices, err := h.deviceService.ListUserDevices(r.Context(), claims.ID)
	if err != nil {
		apperrors.Render(w, r, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to get devices"))
		return
	}

	currentHash := device.ExtractRequestContext(r).DeviceHash()
	response := ListDevicesResponse{
		Status:  "success",
		Devices: make([]DeviceResponse, 0, len(devices)),
	}
	for _, d := range devices {
		var item DeviceResponse
		if err := copier.Copy(&item, &d); err != nil {
			slog.Error("Failed to map device", "device_id", d.ID, "error", err)
			continue
		}
		fp := device.ParseUserAgent(d.UserAgent)
		item.Browser = fp.Browser
		item.OS = fp.OS
		item.DeviceType = fp.DeviceType
		item.Current = d.DeviceHash == currentHash && !d.IsRevoked()
		response.Devices = append(response.Devices, item)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}
