package mapsurface

import (
	"encoding/json"
	"testing"
	"time"

	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/selection"
)

func sampleAssets() []assets.Asset {
	return []assets.Asset{
		{ID: "A1", Name: "Afsluitdijk", Type: assets.TypeBarrier, Status: assets.StatusOperational, Position: assets.Position{Latitude: 52.93, Longitude: 5.25}},
		{ID: "A2", Name: "Vlietbrug", Type: assets.TypeBridge, Status: assets.StatusCritical, Position: assets.Position{Latitude: 52.08, Longitude: 4.35}},
		{ID: "bad", Name: "Nowhere", Type: assets.TypeRoad, Status: assets.StatusWarning, Position: assets.Position{Latitude: 120, Longitude: 5}},
	}
}

func newSurface(list []assets.Asset) (*Surface, *selection.Coordinator) {
	coord := selection.New(func(id string) (assets.Asset, bool) { return assets.Find(list, id) }, nil)
	return NewSurface(coord), coord
}

func receive(t *testing.T, ch chan []byte) Frame {
	t.Helper()
	select {
	case payload := <-ch:
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatalf("no frame")
	}
	return Frame{}
}

func TestMarkersSkipInvalidPositions(t *testing.T) {
	markers := Markers(sampleAssets())
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[1].Colour != assets.StatusCritical.Colour() {
		t.Fatalf("unexpected colour %s", markers[1].Colour)
	}
}

func TestClickSelectsAndFliesTo(t *testing.T) {
	list := sampleAssets()
	surface, coord := newSurface(list)
	ch := surface.Broker().Subscribe()
	defer surface.Broker().Unsubscribe(ch)

	surface.SetEntities(list)
	if frame := receive(t, ch); frame.Type != FrameEntities || len(frame.Markers) != 2 {
		t.Fatalf("unexpected entities frame %+v", frame)
	}

	state, ok, err := surface.Handle(Event{Kind: EventClick, AssetID: "A2"})
	if err != nil || !ok || state.Selected.ID != "A2" {
		t.Fatalf("click not applied: %+v %v %v", state, ok, err)
	}
	frame := receive(t, ch)
	if frame.Type != FrameFlyTo || frame.FlyTo.Latitude != 52.08 || frame.Selected != "A2" {
		t.Fatalf("unexpected fly-to %+v", frame)
	}
	if coord.Snapshot().Source != selection.SourceMarkerClick {
		t.Fatalf("source not recorded")
	}
}

func TestStaleMarkerEventIgnored(t *testing.T) {
	surface, coord := newSurface(sampleAssets())
	surface.Handle(Event{Kind: EventHover, AssetID: "A1"})
	_, ok, err := surface.Handle(Event{Kind: EventClick, AssetID: "gone"})
	if err != nil || ok {
		t.Fatalf("stale event should be ignored, got ok=%v err=%v", ok, err)
	}
	if coord.Snapshot().Selected.ID != "A1" {
		t.Fatalf("selection changed")
	}
	if surface.Sync() {
		t.Fatalf("no fly-to should be pending")
	}
}

func TestInvalidEventRejected(t *testing.T) {
	surface, _ := newSurface(sampleAssets())
	if _, _, err := surface.Handle(Event{Kind: "drag", AssetID: "A1"}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if _, _, err := surface.Handle(Event{Kind: EventClick}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestLateSubscriberGetsMarkers(t *testing.T) {
	list := sampleAssets()
	surface, _ := newSurface(list)
	surface.SetEntities(list)
	ch := surface.Broker().Subscribe()
	if frame := receive(t, ch); frame.Type != FrameEntities {
		t.Fatalf("expected replayed entities frame, got %+v", frame)
	}
	surface.Close()
	if _, open := <-ch; open {
		t.Fatalf("channel should be closed")
	}
}
