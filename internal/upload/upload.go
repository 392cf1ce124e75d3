// Package upload forwards recorded training artifacts to the OpenAI Gym
// collaborator service.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/catherio/gym-http-api/internal/monitor"
)

// EnvAPIKey is the environment variable consulted when an upload request
// carries no API key of its own.
const EnvAPIKey = "OPENAI_GYM_API_KEY"

const (
	DefaultBaseURL  = "https://gym.openai.com"
	defaultTimeout  = 30 * time.Second
	evaluationsPath = "/v1/evaluations"
	maxErrorBody    = 4 << 10
)

var (
	ErrMissingAPIKey  = errors.New("upload: missing api key")
	ErrNoRecordings   = errors.New("upload: no recorded artifacts in training directory")
	ErrUploadRejected = errors.New("upload: upstream upload failed")
)

// Config holds collaborator endpoint settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig targets the public collaborator endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: defaultTimeout,
	}
}

// Client posts recorded evaluations to the collaborator service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client from cfg, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Request carries one evaluation upload.
type Request struct {
	TrainingDir string
	APIKey      string
	AlgorithmID string
	Writeup     string
}

type evaluation struct {
	Env                  string        `json:"env"`
	TrainingEpisodeBatch monitor.Stats `json:"training_episode_batch"`
	Algorithm            *algorithm    `json:"algorithm,omitempty"`
	Writeup              string        `json:"writeup,omitempty"`
}

type algorithm struct {
	ID string `json:"id"`
}

// Upload reads the artifacts recorded in req.TrainingDir and posts them as an
// evaluation, authenticating with the API key as the basic-auth username. An
// empty key falls back to the OPENAI_GYM_API_KEY environment variable.
func (c *Client) Upload(ctx context.Context, req Request) error {
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(EnvAPIKey))
	}
	if key == "" {
		return ErrMissingAPIKey
	}

	stats, err := monitor.ReadStats(req.TrainingDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNoRecordings, req.TrainingDir)
		}
		return err
	}

	eval := evaluation{
		Env:                  stats.EnvID,
		TrainingEpisodeBatch: stats,
		Writeup:              req.Writeup,
	}
	if id := strings.TrimSpace(req.AlgorithmID); id != "" {
		eval.Algorithm = &algorithm{ID: id}
	}
	body, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("upload: encode evaluation: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+evaluationsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("upload: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(key, "")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: %s", ErrUploadRejected, resp.Status, bytes.TrimSpace(msg))
	}

	log.Info().
		Str("env_id", stats.EnvID).
		Str("dir", req.TrainingDir).
		Int("episodes", len(stats.EpisodeLengths)).
		Msg("training data uploaded")
	return nil
}
