// Package reports aggregates the asset collection into the report view and renders it as
// PDF or XLSX.
package reports

import (
	"sort"
	"time"

	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/deltaapi"
)

// HealthRange is a closed health score bucket.
type HealthRange struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// Ranges are the buckets shown on the report page, best first.
var Ranges = []HealthRange{
	{Label: "90-100", Min: 90, Max: 100},
	{Label: "70-89", Min: 70, Max: 89},
	{Label: "50-69", Min: 50, Max: 69},
	{Label: "<50", Min: 0, Max: 49},
}

// StatusCount is one bar of the status distribution.
type StatusCount struct {
	Status assets.Status `json:"status"`
	Label  string        `json:"label"`
	Colour string        `json:"colour"`
	Count  int           `json:"count"`
}

// TypeCount is one bar of the type distribution.
type TypeCount struct {
	Type  assets.Type `json:"type"`
	Label string      `json:"label"`
	Count int         `json:"count"`
}

// Summary is the report payload.
type Summary struct {
	GeneratedAt        time.Time               `json:"generated_at"`
	TotalAssets        int                     `json:"total_assets"`
	AverageHealthScore float64                 `json:"average_health_score"`
	Statuses           []StatusCount           `json:"statuses"`
	Types              []TypeCount             `json:"types"`
	Health             []HealthRange           `json:"health"`
	Forecast           []deltaapi.ForecastItem `json:"forecast"`
	TotalScheduled     int                     `json:"total_scheduled"`
}

// Summarize computes the report from the current collection and forecast.
func Summarize(list []assets.Asset, forecast deltaapi.Forecast, now time.Time) Summary {
	summary := Summary{
		GeneratedAt:    now.UTC(),
		TotalAssets:    len(list),
		Statuses:       make([]StatusCount, 0, len(assets.AllStatuses)),
		Types:          make([]TypeCount, 0, len(assets.AllTypes)),
		Health:         make([]HealthRange, len(Ranges)),
		Forecast:       append([]deltaapi.ForecastItem(nil), forecast.Forecast...),
		TotalScheduled: forecast.TotalScheduled,
	}
	copy(summary.Health, Ranges)

	statuses := make(map[assets.Status]int)
	types := make(map[assets.Type]int)
	total := 0
	for _, asset := range list {
		statuses[asset.Status]++
		types[asset.Type]++
		total += asset.HealthScore
		for i := range summary.Health {
			if asset.HealthScore >= summary.Health[i].Min && asset.HealthScore <= summary.Health[i].Max {
				summary.Health[i].Count++
				break
			}
		}
	}
	if len(list) > 0 {
		summary.AverageHealthScore = float64(total) / float64(len(list))
	}
	for _, status := range assets.AllStatuses {
		summary.Statuses = append(summary.Statuses, StatusCount{
			Status: status,
			Label:  status.Label(),
			Colour: status.Colour(),
			Count:  statuses[status],
		})
	}
	for _, kind := range assets.AllTypes {
		summary.Types = append(summary.Types, TypeCount{Type: kind, Label: kind.Label(), Count: types[kind]})
	}
	if summary.TotalScheduled == 0 {
		summary.TotalScheduled = len(summary.Forecast)
	}
	sort.SliceStable(summary.Forecast, func(i, j int) bool {
		return summary.Forecast[i].DaysUntil < summary.Forecast[j].DaysUntil
	})
	return summary
}
