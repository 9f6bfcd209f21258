package reports

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/deltaapi"
)

type stubSource struct {
	assets      []deltaapi.Asset
	forecast    deltaapi.Forecast
	assetErr    error
	forecastErr error
}

func (s *stubSource) ListAssets(context.Context) ([]deltaapi.Asset, error) {
	return s.assets, s.assetErr
}

func (s *stubSource) MaintenanceForecast(context.Context) (deltaapi.Forecast, error) {
	return s.forecast, s.forecastErr
}

func sampleList() []assets.Asset {
	return []assets.Asset{
		{ID: "a", Name: "Afsluitdijk", Type: assets.TypeBarrier, Status: assets.StatusOperational, HealthScore: 95},
		{ID: "b", Name: "Lorentzsluizen", Type: assets.TypeLock, Status: assets.StatusWarning, HealthScore: 72},
		{ID: "c", Name: "Stevinsluizen", Type: assets.TypeLock, Status: assets.StatusMaintenance, HealthScore: 50},
		{ID: "d", Name: "A7", Type: assets.TypeRoad, Status: assets.StatusCritical, HealthScore: 31},
		{ID: "e", Name: "Vlietbrug", Type: assets.TypeBridge, Status: assets.StatusOperational, HealthScore: 90},
	}
}

func TestSummarize(t *testing.T) {
	forecast := deltaapi.Forecast{Forecast: []deltaapi.ForecastItem{
		{AssetID: "b", AssetName: "Lorentzsluizen", DaysUntil: 40, Priority: "medium"},
		{AssetID: "d", AssetName: "A7", DaysUntil: 3, Priority: "high"},
	}}
	summary := Summarize(sampleList(), forecast, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	if summary.TotalAssets != 5 {
		t.Fatalf("expected 5 assets, got %d", summary.TotalAssets)
	}
	if summary.AverageHealthScore != 67.6 {
		t.Fatalf("unexpected average %v", summary.AverageHealthScore)
	}
	wantHealth := []int{2, 1, 1, 1}
	for i, want := range wantHealth {
		if summary.Health[i].Count != want {
			t.Fatalf("range %s: expected %d, got %d", summary.Health[i].Label, want, summary.Health[i].Count)
		}
	}
	if summary.Statuses[0].Status != assets.StatusOperational || summary.Statuses[0].Count != 2 {
		t.Fatalf("unexpected status row %+v", summary.Statuses[0])
	}
	for _, row := range summary.Types {
		if row.Type == assets.TypeLock && row.Count != 2 {
			t.Fatalf("expected 2 locks, got %d", row.Count)
		}
	}
	if summary.TotalScheduled != 2 || summary.Forecast[0].AssetID != "d" {
		t.Fatalf("forecast not ordered by urgency: %+v", summary.Forecast)
	}
	if Ranges[0].Count != 0 {
		t.Fatalf("package ranges mutated")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, deltaapi.Forecast{}, time.Now())
	if summary.AverageHealthScore != 0 || len(summary.Statuses) != len(assets.AllStatuses) {
		t.Fatalf("unexpected empty summary %+v", summary)
	}
}

func TestBuildPDF(t *testing.T) {
	summary := Summarize(sampleList(), deltaapi.Forecast{}, time.Now())
	data, err := BuildPDF(summary, sampleList())
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
}

func TestBuildXLSX(t *testing.T) {
	list := sampleList()
	summary := Summarize(list, deltaapi.Forecast{}, time.Now())
	data, err := BuildXLSX(summary, list)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	name, err := f.GetCellValue("assets", "B2")
	if err != nil || name != "Afsluitdijk" {
		t.Fatalf("unexpected cell %q %v", name, err)
	}
	total, _ := f.GetCellValue("summary", "B4")
	if total != "5" {
		t.Fatalf("unexpected total %q", total)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render("csv", Summary{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildToleratesForecastFailure(t *testing.T) {
	source := &stubSource{
		assets:      []deltaapi.Asset{{AssetID: "a", Name: "Afsluitdijk", Type: "barrier", Status: "operational", HealthScore: 80, Latitude: 52.9, Longitude: 5.2}},
		forecastErr: errors.New("down"),
	}
	summary, list, err := Build(context.Background(), source, nil, time.Now())
	if err != nil || len(list) != 1 || summary.TotalAssets != 1 {
		t.Fatalf("unexpected result %+v %v", summary, err)
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	dir := t.TempDir()
	source := &stubSource{assets: []deltaapi.Asset{{AssetID: "a", Name: "Afsluitdijk", Type: "barrier", Status: "operational", HealthScore: 80, Latitude: 52.9, Longitude: 5.2}}}
	s, err := NewScheduler("@daily", dir, source, nil)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	s.now = func() time.Time { return time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC) }
	paths, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(paths) != 2 || !strings.HasSuffix(paths[0], "delta-report-20260301-060000.pdf") {
		t.Fatalf("unexpected paths %v", paths)
	}
	for _, path := range paths {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Fatalf("missing export %s: %v", path, err)
		}
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	if _, err := NewScheduler("every now and then", t.TempDir(), &stubSource{}, nil); err == nil {
		t.Fatalf("expected schedule error")
	}
	if _, err := NewScheduler("@daily", "", &stubSource{}, nil); err == nil {
		t.Fatalf("expected dir error")
	}
}

func TestSchedulerAssetFailure(t *testing.T) {
	s, _ := NewScheduler("@hourly", t.TempDir(), &stubSource{assetErr: errors.New("boom")}, nil)
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
