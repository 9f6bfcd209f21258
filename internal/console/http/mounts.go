package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	alerts "digital-delta/internal/alerts/domain"
	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/console"
	"digital-delta/internal/mapsurface"
	"digital-delta/internal/selection"
)

type selectRequest struct {
	AssetID string `json:"asset_id"`
	Source  string `json:"source"`
}

type selectResponse struct {
	Applied   bool            `json:"applied"`
	Selection selection.State `json:"selection"`
}

type assetRequest struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Location        string  `json:"location"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Status          string  `json:"status"`
	HealthScore     int     `json:"health_score"`
	LastInspection  string  `json:"last_inspection"`
	NextMaintenance string  `json:"next_maintenance"`
}

func (a assetRequest) asset(id string) assets.Asset {
	return assets.Asset{
		ID:              id,
		Name:            a.Name,
		Type:            assets.Type(a.Type),
		Location:        a.Location,
		Position:        assets.Position{Latitude: a.Latitude, Longitude: a.Longitude},
		Status:          assets.Status(a.Status),
		HealthScore:     a.HealthScore,
		LastInspection:  a.LastInspection,
		NextMaintenance: a.NextMaintenance,
	}
}

func (h *Handler) mount(w http.ResponseWriter, r *http.Request) (*console.Mount, bool) {
	m, err := h.console.Get(chi.URLParam(r, "mountID"))
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	return m, true
}

func (h *Handler) handleMountSnapshot(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot(queryFrom(r), h.store.Snapshot()))
}

func (h *Handler) handleUnmount(w http.ResponseWriter, r *http.Request) {
	if !h.console.Unmount(chi.URLParam(r, "mountID")) {
		respondError(w, console.ErrUnknownMount)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	source := selection.SourceList
	if req.Source != "" {
		parsed, valid := selection.ParseSource(req.Source)
		if !valid {
			writeDetail(w, http.StatusBadRequest, "unknown selection source")
			return
		}
		source = parsed
	}
	state, applied, err := m.Select(req.AssetID, source)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Applied: applied, Selection: state})
}

func (h *Handler) handleMapEvent(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	var event mapsurface.Event
	if err := decodeJSON(r, &event); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	state, applied, err := m.MapEvent(event)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Applied: applied, Selection: state})
}

func (h *Handler) handleCloseSelection(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	state, err := m.CloseSelection()
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse{Applied: true, Selection: state})
}

func (h *Handler) handleAlertAction(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	action, valid := alerts.ParseAction(chi.URLParam(r, "action"))
	if !valid {
		writeDetail(w, http.StatusNotFound, "unknown alert action")
		return
	}
	if err := m.TransitionAlert(r.Context(), chi.URLParam(r, "alertID"), action); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot(queryFrom(r), h.store.Snapshot()))
}

func (h *Handler) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := m.CreateAsset(r.Context(), req.asset("")); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m.Snapshot(queryFrom(r), h.store.Snapshot()))
}

func (h *Handler) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return
	}
	id := chi.URLParam(r, "assetID")
	if err := m.UpdateAsset(r.Context(), id, req.asset(id)); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot(queryFrom(r), h.store.Snapshot()))
}

func (h *Handler) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	if err := m.DeleteAsset(r.Context(), chi.URLParam(r, "assetID")); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot(queryFrom(r), h.store.Snapshot()))
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mount(w, r)
	if !ok {
		return
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		writeDetail(w, http.StatusBadRequest, "role is required")
		return
	}
	if err := m.ChangeRole(r.Context(), chi.URLParam(r, "userID"), role); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot(console.Query{}, h.store.Snapshot()))
}
