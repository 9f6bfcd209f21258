package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/audit"
	"digital-delta/internal/auth"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/observability/metrics"
)

// ErrRefetch means the mutation was accepted but the follow-up read failed.
var ErrRefetch = errors.New("assets: refetch after mutation failed")

// Backend is the asset part of the REST client.
type Backend interface {
	ListAssets(ctx context.Context) ([]deltaapi.Asset, error)
	CreateAsset(ctx context.Context, in deltaapi.AssetInput) (deltaapi.Asset, error)
	UpdateAsset(ctx context.Context, id string, in deltaapi.AssetInput) (deltaapi.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// Mutation names a CRUD operation.
type Mutation string

const (
	MutationCreate Mutation = "create"
	MutationUpdate Mutation = "update"
	MutationDelete Mutation = "delete"
)

// Service runs role-gated asset CRUD followed by a full collection read.
type Service struct {
	backend  Backend
	policy   auth.Policy
	recorder *audit.Recorder
	logger   *log.Logger
}

// ServiceOption customizes the asset service.
type ServiceOption func(*Service)

// WithRecorder assigns an audit recorder.
func WithRecorder(recorder *audit.Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs an asset service.
func NewService(backend Backend, policy auth.Policy, opts ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, errors.New("assets: nil backend")
	}
	service := &Service{backend: backend, policy: policy, logger: log.Default()}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// List fetches the whole collection.
func (s *Service) List(ctx context.Context) ([]assets.Asset, error) {
	list, err := s.backend.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	return assets.FromWireList(list, s.logger), nil
}

// Create validates and creates asset, then refetches.
func (s *Service) Create(ctx context.Context, asset assets.Asset) ([]assets.Asset, error) {
	return s.mutate(ctx, MutationCreate, "", &asset)
}

// Update validates and replaces the asset with id, then refetches.
func (s *Service) Update(ctx context.Context, id string, asset assets.Asset) ([]assets.Asset, error) {
	if id == "" {
		return nil, errors.New("assets: asset id required")
	}
	return s.mutate(ctx, MutationUpdate, id, &asset)
}

// Delete removes the asset with id, then refetches.
func (s *Service) Delete(ctx context.Context, id string) ([]assets.Asset, error) {
	if id == "" {
		return nil, errors.New("assets: asset id required")
	}
	return s.mutate(ctx, MutationDelete, id, nil)
}

func (s *Service) mutate(ctx context.Context, mutation Mutation, id string, asset *assets.Asset) ([]assets.Asset, error) {
	if s == nil {
		return nil, errors.New("assets: nil service")
	}
	if err := s.policy.Check(auth.RoleFromContext(ctx), auth.ActionAssetWrite); err != nil {
		metrics.IncAssetMutation(string(mutation), metrics.ResultDenied)
		return nil, err
	}
	if asset != nil {
		if err := asset.Validate(); err != nil {
			metrics.IncAssetMutation(string(mutation), metrics.ResultDenied)
			return nil, err
		}
	}

	var err error
	switch mutation {
	case MutationCreate:
		var created deltaapi.Asset
		created, err = s.backend.CreateAsset(ctx, asset.Input())
		id = created.AssetID
	case MutationUpdate:
		_, err = s.backend.UpdateAsset(ctx, id, asset.Input())
	case MutationDelete:
		err = s.backend.DeleteAsset(ctx, id)
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncAssetMutation(string(mutation), result)
	s.record(ctx, mutation, id, result)
	if err != nil {
		return nil, err
	}

	list, err := s.List(ctx)
	if err != nil {
		s.logger.Printf("assets refetch error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRefetch, err)
	}
	return list, nil
}

func (s *Service) record(ctx context.Context, mutation Mutation, id, result string) {
	var action string
	switch mutation {
	case MutationCreate:
		action = audit.ActionAssetCreate
	case MutationUpdate:
		action = audit.ActionAssetUpdate
	case MutationDelete:
		action = audit.ActionAssetDelete
	}
	s.recorder.Record(ctx, audit.Entry{
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       action,
		ResourceType: "asset",
		ResourceID:   id,
		Result:       result,
	})
}

// SuccessMessage is the notice shown after an accepted mutation.
func SuccessMessage(mutation Mutation) string {
	switch mutation {
	case MutationCreate:
		return "Asset aangemaakt"
	case MutationUpdate:
		return "Asset bijgewerkt"
	case MutationDelete:
		return "Asset verwijderd"
	}
	return "Opgeslagen"
}

// FailureMessage is the notice shown for a rejected mutation. Backend detail wins over
// the generic text.
func FailureMessage(mutation Mutation, err error) string {
	if errors.Is(err, auth.ErrForbidden) || errors.Is(err, auth.ErrUnauthorized) {
		return "Onvoldoende rechten voor deze actie"
	}
	if errors.Is(err, assets.ErrInvalid) {
		return err.Error()
	}
	fallback := "Er ging iets mis"
	if mutation == MutationDelete {
		fallback = "Verwijderen mislukt"
	}
	return deltaapi.DetailOr(err, fallback)
}
