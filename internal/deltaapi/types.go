package deltaapi

import (
	"encoding/json"
	"time"
)

// User is the identity returned by the auth endpoints.
type User struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// LoginRequest is the password login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the full login payload. Extra carries fields callers may use
// (for example a welcome flag) without the client knowing about them.
type LoginResponse struct {
	User         User                       `json:"user"`
	SessionToken string                     `json:"session_token,omitempty"`
	Extra        map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps unknown top-level fields in Extra.
func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if value, ok := raw["user"]; ok {
		if err := json.Unmarshal(value, &r.User); err != nil {
			return err
		}
		delete(raw, "user")
	}
	if value, ok := raw["session_token"]; ok {
		if err := json.Unmarshal(value, &r.SessionToken); err != nil {
			return err
		}
		delete(raw, "session_token")
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// MarshalJSON writes User, SessionToken and Extra back as one object.
func (r LoginResponse) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+2)
	for key, value := range r.Extra {
		out[key] = value
	}
	out["user"] = r.User
	if r.SessionToken != "" {
		out["session_token"] = r.SessionToken
	}
	return json.Marshal(out)
}

// SessionRequest exchanges a one-time external provider token.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// RegisterRequest is the registration body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// Asset is the wire form of an infrastructure asset.
type Asset struct {
	AssetID         string  `json:"asset_id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Location        string  `json:"location"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Status          string  `json:"status"`
	HealthScore     int     `json:"health_score"`
	LastInspection  string  `json:"last_inspection,omitempty"`
	NextMaintenance string  `json:"next_maintenance,omitempty"`
}

// AssetInput is the create/update body.
type AssetInput struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Location        string  `json:"location"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Status          string  `json:"status"`
	HealthScore     int     `json:"health_score"`
	LastInspection  string  `json:"last_inspection,omitempty"`
	NextMaintenance string  `json:"next_maintenance,omitempty"`
}

// Alert is the wire form of an alert.
type Alert struct {
	AlertID     string    `json:"alert_id"`
	AssetID     string    `json:"asset_id"`
	AssetName   string    `json:"asset_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// SensorValue is one raw sensor entry.
type SensorValue struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Status string  `json:"status"`
}

// LiveSensors is the live sensor payload. Sensors stays raw so unknown kinds can be rejected
// by the caller instead of silently decoded.
type LiveSensors struct {
	AssetID   string                     `json:"asset_id"`
	Timestamp time.Time                  `json:"timestamp,omitempty"`
	Sensors   map[string]json.RawMessage `json:"sensors"`
}

// Overview is the analytics overview payload.
type Overview struct {
	TotalAssets        int            `json:"total_assets"`
	ActiveAlerts       int            `json:"active_alerts"`
	CriticalAlerts     int            `json:"critical_alerts,omitempty"`
	AverageHealthScore float64        `json:"average_health_score"`
	StatusDistribution map[string]int `json:"status_distribution"`
}

// ForecastItem is one scheduled maintenance entry.
type ForecastItem struct {
	AssetID         string `json:"asset_id"`
	AssetName       string `json:"asset_name"`
	AssetType       string `json:"asset_type,omitempty"`
	NextMaintenance string `json:"next_maintenance"`
	DaysUntil       int    `json:"days_until"`
	HealthScore     int    `json:"health_score,omitempty"`
	Priority        string `json:"priority"`
}

// Forecast is the maintenance forecast payload.
type Forecast struct {
	Forecast       []ForecastItem `json:"forecast"`
	TotalScheduled int            `json:"total_scheduled"`
}

// ContactRequest is the public contact form body.
type ContactRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Organization string `json:"organization,omitempty"`
	Message      string `json:"message"`
}

// ContactResponse is the stored contact request.
type ContactResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Organization string    `json:"organization,omitempty"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
