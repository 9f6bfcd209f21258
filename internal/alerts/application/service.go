package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	alerts "digital-delta/internal/alerts/domain"
	"digital-delta/internal/audit"
	"digital-delta/internal/auth"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/observability/metrics"
)

// ErrRefetch means the transition was accepted but the follow-up read failed.
var ErrRefetch = errors.New("alerts: refetch after transition failed")

// Backend is the alert part of the REST client.
type Backend interface {
	ListAlerts(ctx context.Context, status string) ([]deltaapi.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) error
	ResolveAlert(ctx context.Context, id string) error
}

// Service runs role-gated alert transitions. Every accepted transition is followed by a
// full collection read; nothing is patched locally.
type Service struct {
	backend  Backend
	policy   auth.Policy
	recorder *audit.Recorder
	logger   *log.Logger
}

// ServiceOption customizes the alert service.
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

// NewService constructs an alert service.
func NewService(backend Backend, policy auth.Policy, opts ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, errors.New("alerts: nil backend")
	}
	service := &Service{backend: backend, policy: policy, logger: log.Default()}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// List fetches the whole collection.
func (s *Service) List(ctx context.Context) ([]alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	list, err := s.backend.ListAlerts(ctx, "")
	if err != nil {
		return nil, err
	}
	return alerts.FromWireList(list, s.logger), nil
}

// Transition applies action to alertID. current is the collection the caller displays; the
// alert must be present in it. The caller's role is read from ctx.
func (s *Service) Transition(ctx context.Context, current []alerts.Alert, alertID string, action alerts.Action) ([]alerts.Alert, error) {
	if s == nil {
		return nil, errors.New("alerts: nil service")
	}
	if alertID == "" {
		return nil, errors.New("alerts: alert id required")
	}
	role := auth.RoleFromContext(ctx)
	if err := s.policy.Check(role, permission(action)); err != nil {
		metrics.IncAlertTransition(string(action), metrics.ResultDenied)
		return nil, err
	}
	alert, ok := alerts.Find(current, alertID)
	if !ok {
		metrics.IncAlertTransition(string(action), metrics.ResultError)
		return nil, alerts.ErrNotFound
	}
	if err := alerts.CheckTransition(alert.Status, action); err != nil {
		metrics.IncAlertTransition(string(action), metrics.ResultDenied)
		return nil, err
	}

	var err error
	switch action {
	case alerts.ActionAcknowledge:
		err = s.backend.AcknowledgeAlert(ctx, alertID)
	case alerts.ActionResolve:
		err = s.backend.ResolveAlert(ctx, alertID)
	default:
		err = fmt.Errorf("%w: unknown action %q", alerts.ErrTransitionNotAllowed, action)
	}
	if err != nil {
		metrics.IncAlertTransition(string(action), metrics.ResultError)
		s.record(ctx, alertID, action, metrics.ResultError)
		return nil, err
	}
	metrics.IncAlertTransition(string(action), metrics.ResultSuccess)
	s.record(ctx, alertID, action, metrics.ResultSuccess)

	list, err := s.List(ctx)
	if err != nil {
		s.logger.Printf("alerts refetch error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRefetch, err)
	}
	return list, nil
}

func (s *Service) record(ctx context.Context, alertID string, action alerts.Action, result string) {
	auditAction := audit.ActionAlertAck
	if action == alerts.ActionResolve {
		auditAction = audit.ActionAlertResolve
	}
	s.recorder.Record(ctx, audit.Entry{
		Actor:        auth.SubjectFromContext(ctx),
		Role:         string(auth.RoleFromContext(ctx)),
		Action:       auditAction,
		ResourceType: "alert",
		ResourceID:   alertID,
		Result:       result,
	})
}

func permission(action alerts.Action) auth.Action {
	if action == alerts.ActionResolve {
		return auth.ActionAlertResolve
	}
	return auth.ActionAlertAcknowledge
}

// SuccessMessage is the notice shown after an accepted transition.
func SuccessMessage(action alerts.Action) string {
	switch action {
	case alerts.ActionAcknowledge:
		return "Alert bevestigd"
	case alerts.ActionResolve:
		return "Alert opgelost"
	}
	return "Actie uitgevoerd"
}

// FailureMessage is the notice shown for a rejected transition. Backend detail wins over
// the generic text.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrUnauthorized):
		return "Onvoldoende rechten voor deze actie"
	case errors.Is(err, alerts.ErrTransitionNotAllowed):
		return "Deze melding kan niet meer worden gewijzigd"
	case errors.Is(err, alerts.ErrNotFound):
		return "Melding niet gevonden"
	}
	return deltaapi.DetailOr(err, "Actie mislukt")
}
