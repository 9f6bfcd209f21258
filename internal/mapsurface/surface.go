package mapsurface

import (
	"log"
	"sync"

	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/selection"
)

// FrameType tags a message to the globe.
type FrameType string

const (
	FrameEntities FrameType = "entities"
	FrameFlyTo    FrameType = "fly_to"
)

// Frame is one message to the globe widget.
type Frame struct {
	Type     FrameType         `json:"type"`
	Markers  []Marker          `json:"markers,omitempty"`
	FlyTo    *selection.Camera `json:"fly_to,omitempty"`
	Selected string            `json:"selected,omitempty"`
}

// Selector is the part of the selection coordinator the surface drives.
type Selector interface {
	Select(id string, source selection.Source) (selection.State, bool)
	TakeFlyTo() (selection.State, bool)
	Snapshot() selection.State
}

// Option configures a Surface.
type Option func(*Surface)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Surface) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBroker replaces the default broker.
func WithBroker(broker *Broker) Option {
	return func(s *Surface) {
		if broker != nil {
			s.broker = broker
		}
	}
}

// Surface adapts one mounted globe.
type Surface struct {
	selector Selector
	broker   *Broker
	logger   *log.Logger

	mu      sync.Mutex
	markers []Marker
}

// NewSurface constructs a surface bound to a selector.
func NewSurface(selector Selector, opts ...Option) *Surface {
	s := &Surface{selector: selector, broker: NewBroker(), logger: log.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Broker exposes the frame stream.
func (s *Surface) Broker() *Broker {
	return s.broker
}

// SetEntities replaces the markers on the globe.
func (s *Surface) SetEntities(list []assets.Asset) []Marker {
	markers := Markers(list)
	s.mu.Lock()
	s.markers = markers
	s.mu.Unlock()
	frame := Frame{Type: FrameEntities, Markers: markers}
	if state := s.selector.Snapshot(); state.Selected != nil {
		frame.Selected = state.Selected.ID
	}
	s.publish(frame)
	return markers
}

// Markers returns the markers last sent.
func (s *Surface) Markers() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Handle feeds a widget event into the selector. Events for entities that are no longer
// in the collection are ignored.
func (s *Surface) Handle(event Event) (selection.State, bool, error) {
	if err := event.Validate(); err != nil {
		return selection.State{}, false, err
	}
	source, _ := event.Source()
	state, ok := s.selector.Select(event.AssetID, source)
	if ok {
		s.Sync()
	}
	return state, ok, nil
}

// Sync sends the pending fly-to, if any.
func (s *Surface) Sync() bool {
	state, ok := s.selector.TakeFlyTo()
	if !ok {
		return false
	}
	frame := Frame{Type: FrameFlyTo, FlyTo: state.Camera}
	if state.Selected != nil {
		frame.Selected = state.Selected.ID
	}
	s.publish(frame)
	return true
}

// Close disconnects the widget stream.
func (s *Surface) Close() {
	s.broker.Close()
}

func (s *Surface) publish(frame Frame) {
	if err := s.broker.Publish(frame); err != nil {
		s.logger.Printf("map frame %s error: %v", frame.Type, err)
	}
}
