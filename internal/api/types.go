// Package api defines the JSON wire types of the v1 HTTP surface, shared by
// the server and the Go client binding.
package api

import (
	"encoding/json"

	"github.com/catherio/gym-http-api/internal/spaces"
)

// CreateEnvRequest asks for a new instance of a registered environment.
type CreateEnvRequest struct {
	EnvID string `json:"env_id"`
}

// CreateEnvResponse returns the wire identifier of the new instance.
type CreateEnvResponse struct {
	InstanceID string `json:"instance_id"`
}

// ListEnvsResponse maps live instance identifiers to environment ids.
type ListEnvsResponse struct {
	AllEnvs map[string]string `json:"all_envs"`
}

// ExistsResponse reports whether an instance identifier is live.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// ResetResponse carries the initial observation of a fresh episode.
type ResetResponse struct {
	Observation spaces.Value `json:"observation"`
}

// StepRequest advances an episode by one action. The action stays raw until
// the server decodes it against the instance's action space. Render is
// accepted for compatibility; this service runs headless.
type StepRequest struct {
	Action json.RawMessage `json:"action"`
	Render bool            `json:"render"`
}

// StepResponse carries one transition.
type StepResponse struct {
	Observation spaces.Value   `json:"observation"`
	Reward      float64        `json:"reward"`
	Done        bool           `json:"done"`
	Info        map[string]any `json:"info"`
}

// SpaceResponse wraps a space description under the info key.
type SpaceResponse struct {
	Info spaces.Descriptor `json:"info"`
}

// MonitorStartRequest opens a recording session for an instance.
type MonitorStartRequest struct {
	Directory string `json:"directory"`
	Force     bool   `json:"force"`
	Resume    bool   `json:"resume"`
}

// UploadRequest forwards a recorded training directory to the collaborator
// service.
type UploadRequest struct {
	TrainingDir        string `json:"training_dir"`
	APIKey             string `json:"api_key"`
	AlgorithmID        string `json:"algorithm_id"`
	Writeup            string `json:"writeup"`
	IgnoreOpenMonitors bool   `json:"ignore_open_monitors"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}
