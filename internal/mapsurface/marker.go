// Package mapsurface is the boundary to the embedded globe widget. Entities go in as markers,
// click and hover events come out, and camera moves go in as fly-to commands.
package mapsurface

import (
	assets "digital-delta/internal/assets/domain"
)

// Marker is one entity placed on the globe.
type Marker struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      assets.Type   `json:"type"`
	Status    assets.Status `json:"status"`
	Colour    string        `json:"colour"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
}

// MarkerFor converts an asset. ok is false when the position cannot be placed.
func MarkerFor(asset assets.Asset) (Marker, bool) {
	if !asset.Position.Valid() {
		return Marker{}, false
	}
	return Marker{
		ID:        asset.ID,
		Name:      asset.Name,
		Type:      asset.Type,
		Status:    asset.Status,
		Colour:    asset.Status.Colour(),
		Latitude:  asset.Position.Latitude,
		Longitude: asset.Position.Longitude,
	}, true
}

// Markers converts a collection, skipping assets without a usable position.
func Markers(list []assets.Asset) []Marker {
	out := make([]Marker, 0, len(list))
	for _, asset := range list {
		if marker, ok := MarkerFor(asset); ok {
			out = append(out, marker)
		}
	}
	return out
}
