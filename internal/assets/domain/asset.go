package assets

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"digital-delta/internal/deltaapi"
)

// ErrInvalid marks an asset that breaks a field rule.
var ErrInvalid = errors.New("asset: invalid")

// Type is the infrastructure kind.
type Type string

const (
	TypeBarrier Type = "barrier"
	TypeLock    Type = "lock"
	TypeBridge  Type = "bridge"
	TypeRoad    Type = "road"
)

// AllTypes lists every asset type.
var AllTypes = []Type{TypeBarrier, TypeLock, TypeBridge, TypeRoad}

// ParseType validates a wire type.
func ParseType(value string) (Type, bool) {
	switch Type(value) {
	case TypeBarrier, TypeLock, TypeBridge, TypeRoad:
		return Type(value), true
	default:
		return "", false
	}
}

// Label returns the Dutch display name.
func (t Type) Label() string {
	switch t {
	case TypeBarrier:
		return "Waterkering"
	case TypeLock:
		return "Sluis"
	case TypeBridge:
		return "Brug"
	case TypeRoad:
		return "Weg"
	}
	return string(t)
}

// Status is the operational state reported by the backend. It is not derived from the
// health score.
type Status string

const (
	StatusOperational Status = "operational"
	StatusWarning     Status = "warning"
	StatusMaintenance Status = "maintenance"
	StatusCritical    Status = "critical"
)

// AllStatuses lists every asset status.
var AllStatuses = []Status{StatusOperational, StatusWarning, StatusMaintenance, StatusCritical}

// ParseStatus validates a wire status.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusOperational, StatusWarning, StatusMaintenance, StatusCritical:
		return Status(value), true
	default:
		return "", false
	}
}

// Label returns the Dutch display name.
func (s Status) Label() string {
	switch s {
	case StatusOperational:
		return "Operationeel"
	case StatusWarning:
		return "Waarschuwing"
	case StatusMaintenance:
		return "Onderhoud"
	case StatusCritical:
		return "Kritiek"
	}
	return string(s)
}

// Colour returns the marker and badge colour.
func (s Status) Colour() string {
	switch s {
	case StatusOperational:
		return "#10b981"
	case StatusWarning:
		return "#eab308"
	case StatusMaintenance:
		return "#a855f7"
	case StatusCritical:
		return "#ef4444"
	}
	return "#64748b"
}

// Position is a WGS84 coordinate in degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is on the globe.
func (p Position) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Asset is a tracked infrastructure unit.
type Asset struct {
	ID              string   `json:"asset_id"`
	Name            string   `json:"name"`
	Type            Type     `json:"type"`
	Location        string   `json:"location"`
	Position        Position `json:"position"`
	Status          Status   `json:"status"`
	HealthScore     int      `json:"health_score"`
	LastInspection  string   `json:"last_inspection,omitempty"`
	NextMaintenance string   `json:"next_maintenance,omitempty"`
}

// Validate checks field invariants.
func (a Asset) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	if _, ok := ParseType(string(a.Type)); !ok {
		return fmt.Errorf("%w: type %q", ErrInvalid, a.Type)
	}
	if _, ok := ParseStatus(string(a.Status)); !ok {
		return fmt.Errorf("%w: status %q", ErrInvalid, a.Status)
	}
	if a.HealthScore < 0 || a.HealthScore > 100 {
		return fmt.Errorf("%w: health score %d outside 0..100", ErrInvalid, a.HealthScore)
	}
	if !a.Position.Valid() {
		return fmt.Errorf("%w: position %.4f,%.4f", ErrInvalid, a.Position.Latitude, a.Position.Longitude)
	}
	return nil
}

// HealthBand classifies the health bar: good from 80, fair from 60.
func (a Asset) HealthBand() string {
	switch {
	case a.HealthScore >= 80:
		return "good"
	case a.HealthScore >= 60:
		return "fair"
	default:
		return "poor"
	}
}

// NextMaintenanceDate parses the next maintenance field.
func (a Asset) NextMaintenanceDate() (time.Time, bool) {
	return parseDate(a.NextMaintenance)
}

// FromWire converts and validates a backend asset.
func FromWire(in deltaapi.Asset) (Asset, error) {
	asset := Asset{
		ID:              in.AssetID,
		Name:            in.Name,
		Type:            Type(in.Type),
		Location:        in.Location,
		Position:        Position{Latitude: in.Latitude, Longitude: in.Longitude},
		Status:          Status(in.Status),
		HealthScore:     in.HealthScore,
		LastInspection:  in.LastInspection,
		NextMaintenance: in.NextMaintenance,
	}
	if asset.ID == "" {
		return Asset{}, fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if err := asset.Validate(); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// FromWireList converts a collection, logging and skipping invalid records.
func FromWireList(in []deltaapi.Asset, logger *log.Logger) []Asset {
	out := make([]Asset, 0, len(in))
	for _, item := range in {
		asset, err := FromWire(item)
		if err != nil {
			if logger != nil {
				logger.Printf("asset %s decode error: %v", item.AssetID, err)
			}
			continue
		}
		out = append(out, asset)
	}
	return out
}

// Input converts the asset to a create/update body.
func (a Asset) Input() deltaapi.AssetInput {
	return deltaapi.AssetInput{
		Name:            a.Name,
		Type:            string(a.Type),
		Location:        a.Location,
		Latitude:        a.Position.Latitude,
		Longitude:       a.Position.Longitude,
		Status:          string(a.Status),
		HealthScore:     a.HealthScore,
		LastInspection:  a.LastInspection,
		NextMaintenance: a.NextMaintenance,
	}
}

// Find returns the asset with id.
func Find(list []Asset, id string) (Asset, bool) {
	for _, asset := range list {
		if asset.ID == id {
			return asset, true
		}
	}
	return Asset{}, false
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
