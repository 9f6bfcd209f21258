package alerts

import (
	"fmt"
	"log"
	"time"

	"digital-delta/internal/deltaapi"
)

// Status is the workflow state. Transitions only move forward and resolved is terminal.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// AllStatuses lists the workflow states in order.
var AllStatuses = []Status{StatusActive, StatusAcknowledged, StatusResolved}

// ParseStatus validates a wire status.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusActive, StatusAcknowledged, StatusResolved:
		return Status(value), true
	default:
		return "", false
	}
}

// Label returns the Dutch display name.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Actief"
	case StatusAcknowledged:
		return "Bevestigd"
	case StatusResolved:
		return "Opgelost"
	}
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusResolved
}

// Severity ranks an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists severities from low to critical.
var AllSeverities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ParseSeverity validates a wire severity.
func ParseSeverity(value string) (Severity, bool) {
	switch Severity(value) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(value), true
	default:
		return "", false
	}
}

// Colour returns the badge colour.
func (s Severity) Colour() string {
	switch s {
	case SeverityLow:
		return "#10b981"
	case SeverityMedium:
		return "#eab308"
	case SeverityHigh:
		return "#f97316"
	case SeverityCritical:
		return "#ef4444"
	}
	return "#64748b"
}

// Type is the alert origin.
type Type string

const (
	TypePredictive Type = "predictive"
	TypeWarning    Type = "warning"
	TypeCritical   Type = "critical"
)

// ParseType validates a wire type.
func ParseType(value string) (Type, bool) {
	switch Type(value) {
	case TypePredictive, TypeWarning, TypeCritical:
		return Type(value), true
	default:
		return "", false
	}
}

// Label returns the Dutch display name.
func (t Type) Label() string {
	switch t {
	case TypePredictive:
		return "Predictief"
	case TypeWarning:
		return "Waarschuwing"
	case TypeCritical:
		return "Kritiek"
	}
	return string(t)
}

// Alert is one alert raised by the backend.
type Alert struct {
	ID          string    `json:"alert_id"`
	AssetID     string    `json:"asset_id"`
	AssetName   string    `json:"asset_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Type        Type      `json:"type"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromWire converts and validates a backend alert.
func FromWire(in deltaapi.Alert) (Alert, error) {
	if in.AlertID == "" {
		return Alert{}, fmt.Errorf("%w: empty id", ErrInvalid)
	}
	status, ok := ParseStatus(in.Status)
	if !ok {
		return Alert{}, fmt.Errorf("%w: status %q", ErrInvalid, in.Status)
	}
	severity, ok := ParseSeverity(in.Severity)
	if !ok {
		return Alert{}, fmt.Errorf("%w: severity %q", ErrInvalid, in.Severity)
	}
	kind, ok := ParseType(in.Type)
	if !ok {
		return Alert{}, fmt.Errorf("%w: type %q", ErrInvalid, in.Type)
	}
	return Alert{
		ID:          in.AlertID,
		AssetID:     in.AssetID,
		AssetName:   in.AssetName,
		Title:       in.Title,
		Description: in.Description,
		Severity:    severity,
		Type:        kind,
		Status:      status,
		CreatedAt:   in.CreatedAt,
	}, nil
}

// FromWireList converts a collection, logging and skipping invalid records.
func FromWireList(in []deltaapi.Alert, logger *log.Logger) []Alert {
	out := make([]Alert, 0, len(in))
	for _, item := range in {
		alert, err := FromWire(item)
		if err != nil {
			if logger != nil {
				logger.Printf("alert %s decode error: %v", item.AlertID, err)
			}
			continue
		}
		out = append(out, alert)
	}
	return out
}

// Find returns the alert with id.
func Find(list []Alert, id string) (Alert, bool) {
	for _, alert := range list {
		if alert.ID == id {
			return alert, true
		}
	}
	return Alert{}, false
}
