// Package client is a typed Go binding for the gym HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/catherio/gym-http-api/internal/api"
	"github.com/catherio/gym-http-api/internal/spaces"
)

var ErrBaseURLRequired = errors.New("client: base url required")

const defaultTimeout = 30 * time.Second

// APIError carries a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned %d: %s", e.Status, e.Message)
}

// Client talks to one gym HTTP server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

// StepOutcome is one transition as reported by the server. The observation
// stays raw; its shape depends on the environment's observation space.
type StepOutcome struct {
	Observation json.RawMessage `json:"observation"`
	Reward      float64         `json:"reward"`
	Done        bool            `json:"done"`
	Info        map[string]any  `json:"info"`
}

// Create instantiates envID on the server and returns the instance id.
func (c *Client) Create(ctx context.Context, envID string) (string, error) {
	var out api.CreateEnvResponse
	err := c.do(ctx, http.MethodPost, "/v1/envs/", api.CreateEnvRequest{EnvID: envID}, &out)
	if err != nil {
		return "", err
	}
	return out.InstanceID, nil
}

// List maps live instance ids to environment ids.
func (c *Client) List(ctx context.Context) (map[string]string, error) {
	var out api.ListEnvsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/envs/", nil, &out); err != nil {
		return nil, err
	}
	return out.AllEnvs, nil
}

// Exists reports whether instanceID is live on the server.
func (c *Client) Exists(ctx context.Context, instanceID string) (bool, error) {
	var out api.ExistsResponse
	err := c.do(ctx, http.MethodPost, "/v1/envs/"+instanceID+"/check_exists/", nil, &out)
	if err != nil {
		return false, err
	}
	return out.Exists, nil
}

// Reset starts a fresh episode and returns the raw initial observation.
func (c *Client) Reset(ctx context.Context, instanceID string) (json.RawMessage, error) {
	var out struct {
		Observation json.RawMessage `json:"observation"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/envs/"+instanceID+"/reset/", nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Observation, nil
}

// Step advances the episode by one action. The action marshals as-is, so an
// int suits discrete spaces and a []float64 suits box spaces.
func (c *Client) Step(ctx context.Context, instanceID string, action any, render bool) (StepOutcome, error) {
	raw, err := json.Marshal(action)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("client: encode action: %w", err)
	}
	var out StepOutcome
	err = c.do(ctx, http.MethodPost, "/v1/envs/"+instanceID+"/step/", api.StepRequest{Action: raw, Render: render}, &out)
	if err != nil {
		return StepOutcome{}, err
	}
	return out, nil
}

// ActionSpace fetches the action space description.
func (c *Client) ActionSpace(ctx context.Context, instanceID string) (spaces.Descriptor, error) {
	return c.space(ctx, instanceID, "action_space")
}

// ObservationSpace fetches the observation space description.
func (c *Client) ObservationSpace(ctx context.Context, instanceID string) (spaces.Descriptor, error) {
	return c.space(ctx, instanceID, "observation_space")
}

func (c *Client) space(ctx context.Context, instanceID, which string) (spaces.Descriptor, error) {
	var out api.SpaceResponse
	err := c.do(ctx, http.MethodGet, "/v1/envs/"+instanceID+"/"+which+"/", nil, &out)
	if err != nil {
		return spaces.Descriptor{}, err
	}
	return out.Info, nil
}

// StartMonitor opens a recording session for instanceID in directory.
func (c *Client) StartMonitor(ctx context.Context, instanceID, directory string, force, resume bool) error {
	req := api.MonitorStartRequest{Directory: directory, Force: force, Resume: resume}
	return c.do(ctx, http.MethodPost, "/v1/envs/"+instanceID+"/monitor/start/", req, nil)
}

// CloseMonitor flushes and ends the recording session for instanceID.
func (c *Client) CloseMonitor(ctx context.Context, instanceID string) error {
	return c.do(ctx, http.MethodPost, "/v1/envs/"+instanceID+"/monitor/close/", nil, nil)
}

// Upload forwards a recorded training directory to the collaborator service.
func (c *Client) Upload(ctx context.Context, req api.UploadRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/upload/", req, nil)
}

// Shutdown asks the server to drain and exit.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/shutdown/", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var wire api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&wire); decodeErr == nil {
			apiErr.Message = wire.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
