package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catherio/gym-http-api/internal/api"
	"github.com/catherio/gym-http-api/internal/registry"
	"github.com/catherio/gym-http-api/internal/server"
	"github.com/catherio/gym-http-api/internal/testutil/testlog"
	"github.com/catherio/gym-http-api/internal/upload"
)

func newServerOrSkip(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	var ts *httptest.Server
	func() {
		defer func() {
			if r := recover(); r != nil {
				ts = nil
			}
		}()
		ts = httptest.NewServer(handler)
	}()
	if ts == nil {
		t.Skip("skipping listener-backed test in restricted environment")
	}
	return ts
}

// newTestStack serves the real router over a local listener and returns a
// client bound to it.
func newTestStack(t *testing.T, uploadBaseURL string) *Client {
	t.Helper()
	cfg := upload.DefaultConfig()
	if uploadBaseURL != "" {
		cfg.BaseURL = uploadBaseURL
	}
	srv := server.New(server.DefaultConfig(), registry.NewRegistry(nil), upload.NewClient(cfg))
	ts := newServerOrSkip(t, srv.Router())
	t.Cleanup(ts.Close)

	c, err := New(ts.URL)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	testlog.Start(t)

	if _, err := New("  "); !errors.Is(err, ErrBaseURLRequired) {
		t.Fatalf("expected ErrBaseURLRequired, got %v", err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	testlog.Start(t)
	c := newTestStack(t, "")
	ctx := context.Background()

	id, err := c.Create(ctx, "CartPole-v0")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty instance id")
	}

	ok, err := c.Exists(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	all, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if all[id] != "CartPole-v0" {
		t.Fatalf("expected listing to contain %s, got %v", id, all)
	}

	space, err := c.ActionSpace(ctx, id)
	if err != nil {
		t.Fatalf("ActionSpace failed: %v", err)
	}
	if space.Name != "Discrete" || space.N != 2 {
		t.Fatalf("expected Discrete(2), got %+v", space)
	}

	obsSpace, err := c.ObservationSpace(ctx, id)
	if err != nil {
		t.Fatalf("ObservationSpace failed: %v", err)
	}
	if obsSpace.Name != "Box" || len(obsSpace.Shape) != 1 || obsSpace.Shape[0] != 4 {
		t.Fatalf("expected Box[4], got %+v", obsSpace)
	}

	rawObs, err := c.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	var obs []float64
	if err := json.Unmarshal(rawObs, &obs); err != nil || len(obs) != 4 {
		t.Fatalf("expected 4-dim observation, got %s (%v)", rawObs, err)
	}

	outcome, err := c.Step(ctx, id, 0, false)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if outcome.Done {
		t.Fatal("first step should not end the episode")
	}
	if outcome.Info == nil {
		t.Fatal("expected info object")
	}

	dir := t.TempDir()
	if err := c.StartMonitor(ctx, id, dir, false, false); err != nil {
		t.Fatalf("StartMonitor failed: %v", err)
	}
	if _, err := c.Reset(ctx, id); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := c.Step(ctx, id, 1, false); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if err := c.CloseMonitor(ctx, id); err != nil {
		t.Fatalf("CloseMonitor failed: %v", err)
	}

	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	testlog.Start(t)
	c := newTestStack(t, "")
	ctx := context.Background()

	_, err := c.Reset(ctx, "deadbeef")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message == "" {
		t.Fatalf("expected 404 with message, got %+v", apiErr)
	}

	_, err = c.Create(ctx, "SpaceInvaders-v0")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
}

func TestClientUpload(t *testing.T) {
	testlog.Start(t)
	upstream := newServerOrSkip(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	c := newTestStack(t, upstream.URL)
	ctx := context.Background()
	dir := t.TempDir()

	id, err := c.Create(ctx, "FrozenLake-v0")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := c.StartMonitor(ctx, id, dir, false, false); err != nil {
		t.Fatalf("StartMonitor failed: %v", err)
	}
	if _, err := c.Reset(ctx, id); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := c.Step(ctx, id, 1, false); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if err := c.CloseMonitor(ctx, id); err != nil {
		t.Fatalf("CloseMonitor failed: %v", err)
	}

	err = c.Upload(ctx, api.UploadRequest{TrainingDir: dir, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
}
