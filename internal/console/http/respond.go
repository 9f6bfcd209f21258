package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	alerts "digital-delta/internal/alerts/domain"
	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/auth"
	"digital-delta/internal/console"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/mapsurface"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

// statusFor classifies an action error.
func statusFor(err error) int {
	var apiErr *deltaapi.APIError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, assets.ErrInvalid),
		errors.Is(err, mapsurface.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, console.ErrUnknownMount), errors.Is(err, alerts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, alerts.ErrTransitionNotAllowed), errors.Is(err, console.ErrUnsupported):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func respondError(w http.ResponseWriter, err error) {
	writeDetail(w, statusFor(err), deltaapi.DetailOr(err, err.Error()))
}
