// Package selection keeps the selected asset, the map camera target and the detail panel
// consistent across list clicks, marker clicks and marker hovers.
package selection

import (
	"sync"

	assets "digital-delta/internal/assets/domain"
)

// Source is the trigger of a selection.
type Source string

const (
	SourceList        Source = "list"
	SourceMarkerClick Source = "marker_click"
	SourceMarkerHover Source = "marker_hover"
)

// ParseSource validates a trigger name.
func ParseSource(value string) (Source, bool) {
	switch Source(value) {
	case SourceList, SourceMarkerClick, SourceMarkerHover:
		return Source(value), true
	default:
		return "", false
	}
}

// Camera is a fly-to target.
type Camera struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// State is one consistent view of selection and camera.
type State struct {
	Selected *assets.Asset `json:"selected"`
	Camera   *Camera       `json:"camera"`
	Source   Source        `json:"source,omitempty"`
	// Seq counts selection events; the map re-issues a fly-to when it changes.
	Seq uint64 `json:"seq"`
}

// Lookup resolves an id against the collection currently on display.
type Lookup func(id string) (assets.Asset, bool)

// SensorPoll follows the selection. Set("") stops it.
type SensorPoll interface {
	Set(id string)
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	lookup  Lookup
	sensors SensorPoll

	mu       sync.Mutex
	state    State
	pending  bool
	watchers map[chan State]struct{}
}

// New constructs a coordinator with nothing selected. sensors may be nil.
func New(lookup Lookup, sensors SensorPoll) *Coordinator {
	return &Coordinator{lookup: lookup, sensors: sensors, watchers: make(map[chan State]struct{})}
}

// Select resolves id and, when found, moves selection and camera together. An unknown id
// leaves everything as it was and reports false.
func (c *Coordinator) Select(id string, source Source) (State, bool) {
	if c.lookup == nil || id == "" {
		return c.Snapshot(), false
	}
	asset, ok := c.lookup(id)
	if !ok {
		return c.Snapshot(), false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	selected := asset
	c.state = State{
		Selected: &selected,
		Camera:   &Camera{Latitude: asset.Position.Latitude, Longitude: asset.Position.Longitude},
		Source:   source,
		Seq:      c.state.Seq + 1,
	}
	c.pending = true
	if c.sensors != nil {
		c.sensors.Set(asset.ID)
	}
	state := c.copyLocked()
	c.publishLocked(state)
	return state, true
}

// Close clears the selection and stops the sensor poll. The camera stays where it is.
func (c *Coordinator) Close() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Selected = nil
	c.state.Source = ""
	c.pending = false
	if c.sensors != nil {
		c.sensors.Set("")
	}
	state := c.copyLocked()
	c.publishLocked(state)
	return state
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// TakeFlyTo returns the state carrying the camera target once per selection event.
func (c *Coordinator) TakeFlyTo() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending || c.state.Camera == nil {
		return State{}, false
	}
	c.pending = false
	return c.copyLocked(), true
}

// Watch returns a channel receiving every state change until stop runs.
func (c *Coordinator) Watch() (<-chan State, func()) {
	ch := make(chan State, 4)
	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		})
	}
}

func (c *Coordinator) copyLocked() State {
	state := c.state
	if state.Selected != nil {
		selected := *state.Selected
		state.Selected = &selected
	}
	if state.Camera != nil {
		camera := *state.Camera
		state.Camera = &camera
	}
	return state
}

func (c *Coordinator) publishLocked(state State) {
	for ch := range c.watchers {
		select {
		case ch <- state:
		default:
		}
	}
}
