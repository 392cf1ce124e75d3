// Package registry tracks live environment instances by wire identifier and
// serializes access to each one.
package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/catherio/gym-http-api/internal/envs"
	"github.com/catherio/gym-http-api/internal/monitor"
	"github.com/catherio/gym-http-api/internal/spaces"
)

var ErrInstanceNotFound = errors.New("registry: instance not found")

// idLen is the number of hex characters kept from the minted UUID.
const idLen = 8

// Registry owns every instance created over the process lifetime. Instances
// are never removed; identifiers are never reused.
type Registry struct {
	mu      sync.RWMutex
	items   map[string]*Instance
	factory envs.Factory
}

// NewRegistry creates an empty registry that builds environments with factory.
func NewRegistry(factory envs.Factory) *Registry {
	if factory == nil {
		factory = envs.Make
	}
	return &Registry{
		items:   make(map[string]*Instance),
		factory: factory,
	}
}

// Create builds a fresh environment for envID and registers it under a newly
// minted instance identifier.
func (r *Registry) Create(envID string) (*Instance, error) {
	env, err := r.factory(envID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for {
		id = mintID()
		if _, taken := r.items[id]; !taken {
			break
		}
	}
	inst := &Instance{id: id, envID: envID, env: env}
	r.items[id] = inst
	return inst, nil
}

// Get resolves an instance by identifier.
func (r *Registry) Get(id string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInstanceNotFound, id)
	}
	return inst, nil
}

// Exists reports whether id names a live instance.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok
}

// List maps every live instance identifier to its environment id.
func (r *Registry) List() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make(map[string]string, len(r.items))
	for id, inst := range r.items {
		all[id] = inst.envID
	}
	return all
}

// RecordingInto reports whether any instance has an open monitor session in
// dir.
func (r *Registry) RecordingInto(dir string) bool {
	dir = filepath.Clean(dir)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inst := range r.items {
		if d, ok := inst.Recording(); ok && d == dir {
			return true
		}
	}
	return false
}

func mintID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:idLen]
}

// Instance binds one environment to its wire identifier and recording state.
// All operations serialize on an internal lock, so concurrent requests against
// the same instance are safe and requests against distinct instances do not
// contend.
type Instance struct {
	id    string
	envID string

	mu  sync.Mutex
	env envs.Environment
	mon *monitor.Monitor
}

// ID returns the wire identifier.
func (i *Instance) ID() string { return i.id }

// EnvID returns the environment id the instance was created from.
func (i *Instance) EnvID() string { return i.envID }

// ActionSpace returns the environment's action space.
func (i *Instance) ActionSpace() spaces.Space {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.env.ActionSpace()
}

// ObservationSpace returns the environment's observation space.
func (i *Instance) ObservationSpace() spaces.Space {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.env.ObservationSpace()
}

// Reset restarts the episode and returns the initial observation. An active
// monitor session rolls over to a new episode.
func (i *Instance) Reset() (spaces.Value, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	obs, err := i.env.Reset()
	if err != nil {
		return spaces.Value{}, err
	}
	if i.mon != nil {
		i.mon.RecordReset()
	}
	return obs, nil
}

// Step advances the episode by one action. The caller validates the action
// against the instance's action space first.
func (i *Instance) Step(action spaces.Value) (envs.StepResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	res, err := i.env.Step(action)
	if err != nil {
		return envs.StepResult{}, err
	}
	if i.mon != nil {
		i.mon.RecordStep(res.Reward, res.Done)
	}
	return res, nil
}

// StartMonitor opens a recording session in dir. force discards any previous
// artifacts there; resume flushes the current session, if any, and appends to
// what the directory already holds. With neither flag set, starting over an
// active session fails.
func (i *Instance) StartMonitor(dir string, force, resume bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if force && resume {
		return monitor.ErrConflictingFlags
	}
	if i.mon != nil && !force && !resume {
		return fmt.Errorf("%w: instance %q", monitor.ErrAlreadyRecording, i.id)
	}
	if i.mon != nil {
		if resume {
			if err := i.mon.Close(); err != nil {
				return err
			}
		}
		i.mon = nil
	}

	mon, err := monitor.Start(dir, i.envID, force, resume)
	if err != nil {
		return err
	}
	i.mon = mon
	return nil
}

// CloseMonitor flushes and ends the recording session. Closing an inactive
// monitor is a no-op.
func (i *Instance) CloseMonitor() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.mon == nil {
		return nil
	}
	err := i.mon.Close()
	i.mon = nil
	return err
}

// Recording reports the active monitor directory, if any.
func (i *Instance) Recording() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.mon == nil {
		return "", false
	}
	return i.mon.Directory(), true
}
