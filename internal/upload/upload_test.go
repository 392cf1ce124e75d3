package upload

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/catherio/gym-http-api/internal/monitor"
	"github.com/catherio/gym-http-api/internal/testutil/testlog"
)

// recordEpisodes writes a small training run into dir so uploads have
// something to read.
func recordEpisodes(t *testing.T, dir string, episodes int) {
	t.Helper()
	m, err := monitor.Start(dir, "CartPole-v0", false, false)
	if err != nil {
		t.Fatalf("monitor.Start failed: %v", err)
	}
	for i := 0; i < episodes; i++ {
		m.RecordReset()
		m.RecordStep(1.0, true)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("monitor.Close failed: %v", err)
	}
}

func newUpstreamOrSkip(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	func() {
		defer func() {
			if r := recover(); r != nil {
				server = nil
			}
		}()
		server = httptest.NewServer(handler)
	}()
	if server == nil {
		t.Skip("skipping listener-backed test in restricted environment")
	}
	return server
}

func TestUploadMissingAPIKey(t *testing.T) {
	testlog.Start(t)
	t.Setenv(EnvAPIKey, "")

	c := NewClient(DefaultConfig())
	err := c.Upload(context.Background(), Request{TrainingDir: t.TempDir()})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestUploadNoRecordings(t *testing.T) {
	testlog.Start(t)

	c := NewClient(DefaultConfig())
	err := c.Upload(context.Background(), Request{TrainingDir: t.TempDir(), APIKey: "sk-test"})
	if !errors.Is(err, ErrNoRecordings) {
		t.Fatalf("expected ErrNoRecordings, got %v", err)
	}
}

func TestUploadPostsEvaluation(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	recordEpisodes(t, dir, 2)

	var got evaluation
	var user, path string
	upstream := newUpstreamOrSkip(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		user, _, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode evaluation: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	c := NewClient(Config{BaseURL: upstream.URL})
	err := c.Upload(context.Background(), Request{
		TrainingDir: dir,
		APIKey:      "sk-test",
		AlgorithmID: "alg-random",
		Writeup:     "https://example.com/writeup",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if path != "/v1/evaluations" {
		t.Fatalf("expected POST to /v1/evaluations, got %q", path)
	}
	if user != "sk-test" {
		t.Fatalf("expected api key as basic-auth username, got %q", user)
	}
	if got.Env != "CartPole-v0" {
		t.Fatalf("expected env CartPole-v0, got %q", got.Env)
	}
	if len(got.TrainingEpisodeBatch.EpisodeLengths) != 2 {
		t.Fatalf("expected 2 episodes in batch, got %v", got.TrainingEpisodeBatch.EpisodeLengths)
	}
	if got.Algorithm == nil || got.Algorithm.ID != "alg-random" {
		t.Fatalf("expected algorithm id alg-random, got %+v", got.Algorithm)
	}
	if got.Writeup != "https://example.com/writeup" {
		t.Fatalf("unexpected writeup %q", got.Writeup)
	}
}

func TestUploadFallsBackToEnvKey(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	recordEpisodes(t, dir, 1)
	t.Setenv(EnvAPIKey, "sk-from-env")

	var user string
	upstream := newUpstreamOrSkip(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	c := NewClient(Config{BaseURL: upstream.URL})
	if err := c.Upload(context.Background(), Request{TrainingDir: dir}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if user != "sk-from-env" {
		t.Fatalf("expected env api key, got %q", user)
	}
}

func TestUploadUpstreamRejection(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	recordEpisodes(t, dir, 1)

	upstream := newUpstreamOrSkip(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer upstream.Close()

	c := NewClient(Config{BaseURL: upstream.URL})
	err := c.Upload(context.Background(), Request{TrainingDir: dir, APIKey: "sk-bad"})
	if !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("upstream body should surface in the error, got %v", err)
	}
}

func TestUploadUnreachableUpstream(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	recordEpisodes(t, dir, 1)

	upstream := newUpstreamOrSkip(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	c := NewClient(Config{BaseURL: upstream.URL})
	err := c.Upload(context.Background(), Request{TrainingDir: dir, APIKey: "sk-test"})
	if !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
}
