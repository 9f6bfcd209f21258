package mapsurface

import (
	"errors"
	"strings"

	"digital-delta/internal/selection"
)

// ErrInvalidEvent is returned for events the widget should never send.
var ErrInvalidEvent = errors.New("mapsurface: invalid event")

// EventKind is an interaction reported by the globe.
type EventKind string

const (
	EventClick EventKind = "click"
	EventHover EventKind = "hover"
)

// Event is a pick on a marker.
type Event struct {
	Kind    EventKind `json:"kind"`
	AssetID string    `json:"asset_id"`
}

// Source maps the event kind to a selection trigger.
func (e Event) Source() (selection.Source, error) {
	switch e.Kind {
	case EventClick:
		return selection.SourceMarkerClick, nil
	case EventHover:
		return selection.SourceMarkerHover, nil
	default:
		return "", ErrInvalidEvent
	}
}

// Validate checks kind and id.
func (e Event) Validate() error {
	if _, err := e.Source(); err != nil {
		return err
	}
	if strings.TrimSpace(e.AssetID) == "" {
		return ErrInvalidEvent
	}
	return nil
}
