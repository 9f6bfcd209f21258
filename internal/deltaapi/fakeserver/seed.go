package fakeserver

import (
	"time"

	"digital-delta/internal/deltaapi"
)

type sampleAsset struct {
	id, name, kind, location string
	lat, lon                 float64
	status                   string
	health                   int
	inspectedDaysAgo         int
	maintenanceInDays        int
}

var sampleAssets = []sampleAsset{
	{"asset_afsluitdijk", "Afsluitdijk Spuisluizen", "barrier", "Den Oever", 52.93, 5.25, "operational", 92, 20, 45},
	{"asset_lorentz", "Lorentzsluizen", "lock", "Kornwerderzand", 53.07, 5.33, "warning", 68, 60, 10},
	{"asset_stevin", "Stevinsluizen", "lock", "Den Oever", 52.94, 5.04, "maintenance", 55, 90, 3},
	{"asset_a7", "A7 Afsluitdijk", "road", "Afsluitdijk", 53.0, 5.2, "operational", 88, 15, 120},
	{"asset_vlietbrug", "Vlietbrug Kornwerderzand", "bridge", "Kornwerderzand", 53.07, 5.34, "critical", 41, 200, 2},
}

// sampleData returns the seed dataset relative to now.
func sampleData(now time.Time) ([]deltaapi.Asset, []deltaapi.Alert) {
	today := now.Truncate(24 * time.Hour)
	assets := make([]deltaapi.Asset, 0, len(sampleAssets))
	for _, item := range sampleAssets {
		assets = append(assets, deltaapi.Asset{
			AssetID:         item.id,
			Name:            item.name,
			Type:            item.kind,
			Location:        item.location,
			Latitude:        item.lat,
			Longitude:       item.lon,
			Status:          item.status,
			HealthScore:     item.health,
			LastInspection:  today.AddDate(0, 0, -item.inspectedDaysAgo).Format("2006-01-02"),
			NextMaintenance: today.AddDate(0, 0, item.maintenanceInDays).Format("2006-01-02"),
		})
	}
	alerts := []deltaapi.Alert{
		{
			AlertID:     "alert_vibration_vlietbrug",
			AssetID:     "asset_vlietbrug",
			AssetName:   "Vlietbrug Kornwerderzand",
			Title:       "Verhoogde trillingen",
			Description: "Trillingsniveau boven drempelwaarde gemeten op pijler 3.",
			Severity:    "critical",
			Type:        "critical",
			Status:      "active",
			CreatedAt:   now.Add(-2 * time.Hour),
		},
		{
			AlertID:     "alert_predictive_lorentz",
			AssetID:     "asset_lorentz",
			AssetName:   "Lorentzsluizen",
			Title:       "Voorspeld onderhoud sluisdeur",
			Description: "Slijtagepatroon wijst op onderhoud binnen 14 dagen.",
			Severity:    "medium",
			Type:        "predictive",
			Status:      "active",
			CreatedAt:   now.Add(-26 * time.Hour),
		},
		{
			AlertID:     "alert_waterlevel_afsluitdijk",
			AssetID:     "asset_afsluitdijk",
			AssetName:   "Afsluitdijk Spuisluizen",
			Title:       "Waterstand nadert limiet",
			Description: "Waterstand Waddenzee 40 cm boven gemiddeld.",
			Severity:    "high",
			Type:        "warning",
			Status:      "acknowledged",
			CreatedAt:   now.Add(-6 * time.Hour),
		},
	}
	return assets, alerts
}

// defaultSensors derives a stable reading set from the asset type.
func defaultSensors(asset deltaapi.Asset) map[string]any {
	status := "normal"
	switch asset.Status {
	case "warning", "maintenance":
		status = "warning"
	case "critical":
		status = "critical"
	}
	sensors := map[string]any{
		"temperature": map[string]any{"value": 11.4, "unit": "°C", "status": "normal"},
		"vibration":   map[string]any{"value": 0.8, "unit": "mm/s", "status": status},
	}
	switch asset.Type {
	case "barrier", "lock":
		sensors["water_level"] = map[string]any{"value": 1.42, "unit": "m NAP", "status": status}
		sensors["pressure"] = map[string]any{"value": 2.1, "unit": "bar", "status": "normal"}
	case "bridge", "road":
		sensors["wind_speed"] = map[string]any{"value": 14.2, "unit": "m/s", "status": "normal"}
	}
	return sensors
}
