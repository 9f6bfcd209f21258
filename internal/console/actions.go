package console

import (
	"context"
	"errors"

	alertapp "digital-delta/internal/alerts/application"
	alerts "digital-delta/internal/alerts/domain"
	assetapp "digital-delta/internal/assets/application"
	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/mapsurface"
	"digital-delta/internal/selection"
)

// Select resolves assetID against the displayed collection and selects it. Unknown ids
// leave the selection as it was and report false.
func (m *Mount) Select(assetID string, source selection.Source) (selection.State, bool, error) {
	if m.selection == nil {
		return selection.State{}, false, ErrUnsupported
	}
	state, ok := m.selection.Select(assetID, source)
	if ok {
		m.surface.Sync()
		m.signal()
	}
	return state, ok, nil
}

// MapEvent feeds a globe click or hover into the selection.
func (m *Mount) MapEvent(event mapsurface.Event) (selection.State, bool, error) {
	if m.surface == nil {
		return selection.State{}, false, ErrUnsupported
	}
	state, ok, err := m.surface.Handle(event)
	if ok {
		m.signal()
	}
	return state, ok, err
}

// CloseSelection clears the detail panel and stops the sensor poll.
func (m *Mount) CloseSelection() (selection.State, error) {
	if m.selection == nil {
		return selection.State{}, ErrUnsupported
	}
	state := m.selection.Close()
	m.signal()
	return state, nil
}

// TransitionAlert acknowledges or resolves an alert of the displayed collection. The role
// is read from ctx. On success the refetched collection replaces the display.
func (m *Mount) TransitionAlert(ctx context.Context, alertID string, action alerts.Action) error {
	if !m.has(resAlerts) {
		return ErrUnsupported
	}
	current, _ := m.alerts.Load()
	list, err := m.console.alerts.Transition(ctx, current, alertID, action)
	switch {
	case errors.Is(err, alertapp.ErrRefetch):
		m.console.notices.Success(alertapp.SuccessMessage(action))
		return nil
	case err != nil:
		m.console.notices.Error(alertapp.FailureMessage(err))
		return err
	}
	m.alerts.Store(list)
	m.console.notices.Success(alertapp.SuccessMessage(action))
	return nil
}

// CreateAsset creates an asset and refreshes the collection.
func (m *Mount) CreateAsset(ctx context.Context, asset assets.Asset) error {
	return m.mutateAsset(assetapp.MutationCreate, func() ([]assets.Asset, error) {
		return m.console.assets.Create(ctx, asset)
	})
}

// UpdateAsset replaces an asset and refreshes the collection.
func (m *Mount) UpdateAsset(ctx context.Context, id string, asset assets.Asset) error {
	return m.mutateAsset(assetapp.MutationUpdate, func() ([]assets.Asset, error) {
		return m.console.assets.Update(ctx, id, asset)
	})
}

// DeleteAsset removes an asset and refreshes the collection.
func (m *Mount) DeleteAsset(ctx context.Context, id string) error {
	return m.mutateAsset(assetapp.MutationDelete, func() ([]assets.Asset, error) {
		return m.console.assets.Delete(ctx, id)
	})
}

func (m *Mount) mutateAsset(mutation assetapp.Mutation, run func() ([]assets.Asset, error)) error {
	if !m.has(resAssets) {
		return ErrUnsupported
	}
	list, err := run()
	switch {
	case errors.Is(err, assetapp.ErrRefetch):
		m.console.notices.Success(assetapp.SuccessMessage(mutation))
		return nil
	case err != nil:
		m.console.notices.Error(assetapp.FailureMessage(mutation, err))
		return err
	}
	m.assets.Store(list)
	m.console.notices.Success(assetapp.SuccessMessage(mutation))
	return nil
}
