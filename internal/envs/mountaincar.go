package envs

import (
	"math"
	"math/rand"

	"github.com/catherio/gym-http-api/internal/spaces"
)

// mountainCar is the under-powered car task: the car must rock back and
// forth in a valley to build enough momentum to reach the goal on the right
// hill. Actions push left, coast, or push right. Reward is -1 per step until
// the goal or the step limit.
type mountainCar struct {
	minPosition float64
	maxPosition float64
	maxSpeed    float64
	goalPos     float64
	force       float64
	gravity     float64
	maxSteps    int

	position float64
	velocity float64
	steps    int
}

func newMountainCar() *mountainCar {
	return &mountainCar{
		minPosition: -1.2,
		maxPosition: 0.6,
		maxSpeed:    0.07,
		goalPos:     0.5,
		force:       0.001,
		gravity:     0.0025,
		maxSteps:    200,
	}
}

func (e *mountainCar) Reset() (spaces.Value, error) {
	e.position = -0.6 + 0.2*rand.Float64()
	e.velocity = 0
	e.steps = 0
	return e.observation(), nil
}

func (e *mountainCar) Step(action spaces.Value) (StepResult, error) {
	e.velocity += float64(action.Index-1)*e.force - e.gravity*math.Cos(3*e.position)
	e.velocity = clamp(e.velocity, -e.maxSpeed, e.maxSpeed)
	e.position += e.velocity
	e.position = clamp(e.position, e.minPosition, e.maxPosition)
	if e.position == e.minPosition && e.velocity < 0 {
		e.velocity = 0
	}
	e.steps++

	done := e.position >= e.goalPos || e.steps >= e.maxSteps
	return StepResult{
		Observation: e.observation(),
		Reward:      -1.0,
		Done:        done,
		Info:        map[string]any{},
	}, nil
}

func (e *mountainCar) ActionSpace() spaces.Space {
	return spaces.Discrete{N: 3}
}

func (e *mountainCar) ObservationSpace() spaces.Space {
	return spaces.Box{
		Shape: []int{2},
		Low:   []float64{e.minPosition, -e.maxSpeed},
		High:  []float64{e.maxPosition, e.maxSpeed},
	}
}

func (e *mountainCar) observation() spaces.Value {
	return spaces.BoxValue([]float64{e.position, e.velocity})
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
