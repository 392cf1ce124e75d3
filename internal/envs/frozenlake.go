package envs

import (
	"math/rand"

	"github.com/catherio/gym-http-api/internal/spaces"
)

// Grid actions, in the order the discrete action space encodes them.
const (
	moveLeft = iota
	moveDown
	moveRight
	moveUp
)

// frozenLake is the 4x4 slippery gridworld. The agent walks from S to G over
// frozen cells F; stepping onto a hole H ends the episode with no reward,
// reaching G ends it with reward 1. The ice is slippery: each move slides in
// the intended direction or one of the two perpendicular ones, each with
// probability 1/3.
type frozenLake struct {
	grid     []string
	rows     int
	cols     int
	maxSteps int

	state int64
	steps int
}

func newFrozenLake() *frozenLake {
	grid := []string{
		"SFFF",
		"FHFH",
		"FFFH",
		"HFFG",
	}
	return &frozenLake{
		grid:     grid,
		rows:     len(grid),
		cols:     len(grid[0]),
		maxSteps: 100,
	}
}

func (e *frozenLake) Reset() (spaces.Value, error) {
	e.state = 0
	e.steps = 0
	return spaces.DiscreteValue(e.state), nil
}

func (e *frozenLake) Step(action spaces.Value) (StepResult, error) {
	// Slip: the executed move is the intended one or one of its two
	// perpendicular neighbours, uniformly.
	intended := action.Index
	executed := (intended + int64(rand.Intn(3)) - 1 + 4) % 4

	row := int(e.state) / e.cols
	col := int(e.state) % e.cols
	switch executed {
	case moveLeft:
		col = max(col-1, 0)
	case moveDown:
		row = min(row+1, e.rows-1)
	case moveRight:
		col = min(col+1, e.cols-1)
	case moveUp:
		row = max(row-1, 0)
	}
	e.state = int64(row*e.cols + col)
	e.steps++

	cell := e.grid[row][col]
	reward := 0.0
	done := e.steps >= e.maxSteps
	switch cell {
	case 'G':
		reward = 1.0
		done = true
	case 'H':
		done = true
	}

	return StepResult{
		Observation: spaces.DiscreteValue(e.state),
		Reward:      reward,
		Done:        done,
		Info:        map[string]any{"prob": 1.0 / 3.0},
	}, nil
}

func (e *frozenLake) ActionSpace() spaces.Space {
	return spaces.Discrete{N: 4}
}

func (e *frozenLake) ObservationSpace() spaces.Space {
	return spaces.Discrete{N: int64(e.rows * e.cols)}
}
