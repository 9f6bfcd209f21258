package sensors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"digital-delta/internal/deltaapi"
)

// Kind is a closed set of sensor kinds.
type Kind string

const (
	KindWaterLevel  Kind = "water_level"
	KindPressure    Kind = "pressure"
	KindTemperature Kind = "temperature"
	KindVibration   Kind = "vibration"
	KindWindSpeed   Kind = "wind_speed"
)

// AllKinds lists the kinds in display order.
var AllKinds = []Kind{KindWaterLevel, KindPressure, KindTemperature, KindVibration, KindWindSpeed}

// ErrUnknownKind marks a sensor key outside the closed set.
var ErrUnknownKind = errors.New("sensors: unknown kind")

// ParseKind validates a wire key.
func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case KindWaterLevel, KindPressure, KindTemperature, KindVibration, KindWindSpeed:
		return Kind(value), true
	default:
		return "", false
	}
}

// Label returns the display label.
func (k Kind) Label() string {
	switch k {
	case KindWaterLevel:
		return "Waterstand"
	case KindPressure:
		return "Druk"
	case KindTemperature:
		return "Temperatuur"
	case KindVibration:
		return "Trilling"
	case KindWindSpeed:
		return "Windsnelheid"
	}
	return string(k)
}

// Status is the health of one reading.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// ParseStatus validates a wire status.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusNormal, StatusWarning, StatusCritical:
		return Status(value), true
	default:
		return "", false
	}
}

// Colour returns the gauge colour.
func (s Status) Colour() string {
	switch s {
	case StatusNormal:
		return "#10b981"
	case StatusWarning:
		return "#eab308"
	case StatusCritical:
		return "#ef4444"
	}
	return "#64748b"
}

// Reading is one typed sensor value.
type Reading struct {
	Kind   Kind    `json:"kind"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Status Status  `json:"status"`
	Colour string  `json:"colour"`
}

// Snapshot is the full reading set of one asset at one poll tick. It replaces the previous
// snapshot wholesale.
type Snapshot struct {
	AssetID   string           `json:"asset_id"`
	Timestamp time.Time        `json:"timestamp"`
	Readings  map[Kind]Reading `json:"readings"`
	Rejected  []string         `json:"rejected,omitempty"`
}

// Ordered returns the readings in AllKinds order.
func (s Snapshot) Ordered() []Reading {
	out := make([]Reading, 0, len(s.Readings))
	for _, kind := range AllKinds {
		if reading, ok := s.Readings[kind]; ok {
			out = append(out, reading)
		}
	}
	return out
}

// Decode converts the wire payload. Unknown kinds and malformed entries are logged and left
// out; their keys are listed in Rejected.
func Decode(live deltaapi.LiveSensors, logger *log.Logger) Snapshot {
	snap := Snapshot{
		AssetID:   live.AssetID,
		Timestamp: live.Timestamp,
		Readings:  make(map[Kind]Reading, len(live.Sensors)),
	}
	for key, raw := range live.Sensors {
		reading, err := decodeReading(key, raw)
		if err != nil {
			if logger != nil {
				logger.Printf("sensors %s decode error: %v", live.AssetID, err)
			}
			snap.Rejected = append(snap.Rejected, key)
			continue
		}
		snap.Readings[reading.Kind] = reading
	}
	sort.Strings(snap.Rejected)
	return snap
}

func decodeReading(key string, raw json.RawMessage) (Reading, error) {
	kind, ok := ParseKind(key)
	if !ok {
		return Reading{}, fmt.Errorf("%w: %q", ErrUnknownKind, key)
	}
	var value deltaapi.SensorValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return Reading{}, fmt.Errorf("sensors: %s: %w", key, err)
	}
	status, ok := ParseStatus(value.Status)
	if !ok {
		return Reading{}, fmt.Errorf("sensors: %s: invalid status %q", key, value.Status)
	}
	return Reading{
		Kind:   kind,
		Label:  kind.Label(),
		Value:  value.Value,
		Unit:   value.Unit,
		Status: status,
		Colour: status.Colour(),
	}, nil
}
