package fakeserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"digital-delta/internal/deltaapi"
)

func canWrite(user deltaapi.User) bool {
	return user.Role == "admin" || user.Role == "manager"
}

func (s *Server) handleListAssets(w http.ResponseWriter) {
	s.mu.Lock()
	list := append([]deltaapi.Asset{}, s.assets...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request, user deltaapi.User) {
	if !canWrite(user) {
		writeDetail(w, http.StatusForbidden, "Onvoldoende rechten")
		return
	}
	var in deltaapi.AssetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	if in.HealthScore < 0 || in.HealthScore > 100 {
		writeDetail(w, http.StatusUnprocessableEntity, "health_score must be between 0 and 100")
		return
	}
	asset := assetFromInput("asset_"+uuid.NewString()[:12], in)
	s.PutAsset(asset)
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request, user deltaapi.User, id string) {
	if !canWrite(user) {
		writeDetail(w, http.StatusForbidden, "Onvoldoende rechten")
		return
	}
	var in deltaapi.AssetInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	if in.HealthScore < 0 || in.HealthScore > 100 {
		writeDetail(w, http.StatusUnprocessableEntity, "health_score must be between 0 and 100")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].AssetID == id {
			s.assets[i] = assetFromInput(id, in)
			writeJSON(w, http.StatusOK, s.assets[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Asset niet gevonden")
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, user deltaapi.User, id string) {
	if !canWrite(user) {
		writeDetail(w, http.StatusForbidden, "Onvoldoende rechten")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assets {
		if s.assets[i].AssetID == id {
			s.assets = append(s.assets[:i], s.assets[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Asset niet gevonden")
}

func (s *Server) handleSeed(w http.ResponseWriter) {
	now := s.now()
	assets, alerts := sampleData(now)
	s.mu.Lock()
	if len(s.assets) == 0 {
		s.assets = assets
		for _, alert := range alerts {
			if !s.hasAlertLocked(alert.AlertID) {
				s.alerts = append(s.alerts, alert)
			}
		}
	}
	counts := map[string]any{"message": "seeded", "assets": len(s.assets), "alerts": len(s.alerts)}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	s.mu.Lock()
	list := make([]deltaapi.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		if status == "" || alert.Status == status {
			list = append(list, alert)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAlertTransition(w http.ResponseWriter, user deltaapi.User, id, action string) {
	if action == "resolve" && !canWrite(user) {
		writeDetail(w, http.StatusForbidden, "Onvoldoende rechten")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].AlertID != id {
			continue
		}
		current := s.alerts[i].Status
		switch {
		case action == "acknowledge" && current == "active":
			s.alerts[i].Status = "acknowledged"
		case action == "resolve" && (current == "active" || current == "acknowledged"):
			s.alerts[i].Status = "resolved"
		default:
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("cannot %s alert in status %s", action, current))
			return
		}
		writeJSON(w, http.StatusOK, s.alerts[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Alert niet gevonden")
}

func (s *Server) handleSensors(w http.ResponseWriter, assetID string) {
	s.mu.Lock()
	override, hasOverride := s.sensors[assetID]
	var asset *deltaapi.Asset
	for i := range s.assets {
		if s.assets[i].AssetID == assetID {
			copied := s.assets[i]
			asset = &copied
		}
	}
	s.mu.Unlock()
	if asset == nil && !hasOverride {
		writeDetail(w, http.StatusNotFound, "Asset niet gevonden")
		return
	}
	sensors := override
	if !hasOverride {
		sensors = defaultSensors(*asset)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id":  assetID,
		"timestamp": s.now().Format(time.RFC3339),
		"sensors":   sensors,
	})
}

func (s *Server) handleOverview(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dist := map[string]int{"operational": 0, "warning": 0, "maintenance": 0, "critical": 0}
	total := 0
	for _, asset := range s.assets {
		dist[asset.Status]++
		total += asset.HealthScore
	}
	active, critical := 0, 0
	for _, alert := range s.alerts {
		if alert.Status == "active" {
			active++
			if alert.Severity == "critical" {
				critical++
			}
		}
	}
	avg := 0.0
	if len(s.assets) > 0 {
		avg = float64(total) / float64(len(s.assets))
	}
	writeJSON(w, http.StatusOK, deltaapi.Overview{
		TotalAssets:        len(s.assets),
		ActiveAlerts:       active,
		CriticalAlerts:     critical,
		AverageHealthScore: avg,
		StatusDistribution: dist,
	})
}

func (s *Server) handleForecast(w http.ResponseWriter) {
	s.mu.Lock()
	assets := append([]deltaapi.Asset{}, s.assets...)
	s.mu.Unlock()
	today := s.now().Truncate(24 * time.Hour)
	items := make([]deltaapi.ForecastItem, 0, len(assets))
	for _, asset := range assets {
		next, err := time.Parse("2006-01-02", asset.NextMaintenance)
		if err != nil {
			continue
		}
		days := int(next.Sub(today).Hours() / 24)
		priority := "low"
		switch {
		case asset.HealthScore < 50 || days <= 7:
			priority = "high"
		case asset.HealthScore < 70 || days <= 30:
			priority = "medium"
		}
		items = append(items, deltaapi.ForecastItem{
			AssetID:         asset.AssetID,
			AssetName:       asset.Name,
			AssetType:       asset.Type,
			NextMaintenance: asset.NextMaintenance,
			DaysUntil:       days,
			HealthScore:     asset.HealthScore,
			Priority:        priority,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DaysUntil < items[j].DaysUntil })
	writeJSON(w, http.StatusOK, deltaapi.Forecast{Forecast: items, TotalScheduled: len(items)})
}

func (s *Server) handleListUsers(w http.ResponseWriter, user deltaapi.User) {
	if user.Role != "admin" {
		writeDetail(w, http.StatusForbidden, "Alleen beheerders")
		return
	}
	s.mu.Lock()
	list := make([]deltaapi.User, 0, len(s.users))
	for _, acc := range s.users {
		list = append(list, acc.user)
	}
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Email < list[j].Email })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request, user deltaapi.User, id string) {
	if user.Role != "admin" {
		writeDetail(w, http.StatusForbidden, "Alleen beheerders")
		return
	}
	role := r.URL.Query().Get("role")
	switch role {
	case "admin", "manager", "field_worker":
	default:
		writeDetail(w, http.StatusBadRequest, "Ongeldige rol")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.users {
		if acc.user.UserID == id {
			acc.user.Role = role
			writeJSON(w, http.StatusOK, acc.user)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Gebruiker niet gevonden")
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req deltaapi.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil || strings.TrimSpace(req.Name) == "" || len(req.Message) < 10 {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid contact request")
		return
	}
	resp := deltaapi.ContactResponse{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		Organization: req.Organization,
		Message:      req.Message,
		Status:       "pending",
		CreatedAt:    s.now(),
	}
	s.mu.Lock()
	s.contacts = append(s.contacts, resp)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func assetFromInput(id string, in deltaapi.AssetInput) deltaapi.Asset {
	return deltaapi.Asset{
		AssetID:         id,
		Name:            in.Name,
		Type:            in.Type,
		Location:        in.Location,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		Status:          in.Status,
		HealthScore:     in.HealthScore,
		LastInspection:  in.LastInspection,
		NextMaintenance: in.NextMaintenance,
	}
}

func (s *Server) hasAlertLocked(id string) bool {
	for _, alert := range s.alerts {
		if alert.AlertID == id {
			return true
		}
	}
	return false
}
