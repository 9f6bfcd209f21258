package application

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	assets "digital-delta/internal/assets/domain"
	"digital-delta/internal/auth"
	"digital-delta/internal/deltaapi"
	"digital-delta/internal/deltaapi/fakeserver"
)

func setup(t *testing.T, role auth.Role) (*Service, *fakeserver.Server, context.Context) {
	t.Helper()
	backend := fakeserver.New()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	client, err := deltaapi.NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	email := string(role) + "@delta.nl"
	if _, err := backend.AddUser(email, "geheim123", "Tester", string(role)); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if _, err := client.Login(context.Background(), email, "geheim123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	service, err := NewService(client, auth.NewDefaultPolicy())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, backend, auth.WithIdentity(context.Background(), role, email)
}

func newAsset() assets.Asset {
	return assets.Asset{
		Name:        "Stevinsluizen",
		Type:        assets.TypeLock,
		Location:    "Den Oever",
		Position:    assets.Position{Latitude: 52.94, Longitude: 5.04},
		Status:      assets.StatusOperational,
		HealthScore: 85,
	}
}

func TestCreateUpdateDeleteAsManager(t *testing.T) {
	service, backend, ctx := setup(t, auth.RoleManager)
	list, err := service.Create(ctx, newAsset())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Stevinsluizen" {
		t.Fatalf("unexpected list %+v", list)
	}
	id := list[0].ID
	changed := list[0]
	changed.Status = assets.StatusMaintenance
	list, err = service.Update(ctx, id, changed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if list[0].Status != assets.StatusMaintenance {
		t.Fatalf("update not refetched: %+v", list[0])
	}
	list, err = service.Delete(ctx, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
	if backend.Calls("GET /assets") != 3 {
		t.Fatalf("expected a refetch per mutation, got %d", backend.Calls("GET /assets"))
	}
}

func TestFieldWorkerIsReadOnly(t *testing.T) {
	service, backend, ctx := setup(t, auth.RoleFieldWorker)
	_, err := service.Create(ctx, newAsset())
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if backend.Calls("POST /assets") != 0 {
		t.Fatalf("forbidden create reached backend")
	}
	if got := FailureMessage(MutationCreate, err); got != "Onvoldoende rechten voor deze actie" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestInvalidHealthScoreRejectedLocally(t *testing.T) {
	service, backend, ctx := setup(t, auth.RoleAdmin)
	asset := newAsset()
	asset.HealthScore = 140
	if _, err := service.Create(ctx, asset); !errors.Is(err, assets.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if backend.Calls("POST /assets") != 0 {
		t.Fatalf("invalid asset reached backend")
	}
}

func TestDeleteMissingUsesFallbackOrDetail(t *testing.T) {
	service, _, ctx := setup(t, auth.RoleAdmin)
	_, err := service.Delete(ctx, "missing")
	if !errors.Is(err, deltaapi.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := FailureMessage(MutationDelete, err); got != "Asset niet gevonden" {
		t.Fatalf("unexpected message %q", got)
	}
}
