package envs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/catherio/gym-http-api/internal/spaces"
)

var ErrUnknownEnvironment = errors.New("envs: unknown environment id")

// Environment is the opaque simulation capability tracked by the registry.
// Implementations are not safe for concurrent use; callers serialize access.
type Environment interface {
	Reset() (spaces.Value, error)
	Step(action spaces.Value) (StepResult, error)
	ActionSpace() spaces.Space
	ObservationSpace() spaces.Space
}

// StepResult is the outcome of advancing an environment by one action.
type StepResult struct {
	Observation spaces.Value
	Reward      float64
	Done        bool
	Info        map[string]any
}

// Factory produces a fresh environment for an environment id.
type Factory func(envID string) (Environment, error)

var builtins = map[string]func() Environment{
	"CartPole-v0":    func() Environment { return newCartPole() },
	"MountainCar-v0": func() Environment { return newMountainCar() },
	"Pendulum-v0":    func() Environment { return newPendulum() },
	"FrozenLake-v0":  func() Environment { return newFrozenLake() },
}

// Make constructs one of the built-in environments by id.
func Make(envID string) (Environment, error) {
	ctor, ok := builtins[envID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, envID)
	}
	return ctor(), nil
}

// IDs returns the built-in environment ids in deterministic order.
func IDs() []string {
	ids := make([]string, 0, len(builtins))
	for id := range builtins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
