package envs

import (
	"math"
	"math/rand"

	"github.com/catherio/gym-http-api/internal/spaces"
)

// pendulum is the continuous-control swing-up task: apply torque to keep a
// free pendulum upright. The observation is [cos(theta), sin(theta),
// theta_dot]; reward penalizes angle, angular speed, and torque effort. The
// episode only ends at the step limit.
type pendulum struct {
	maxSpeed  float64
	maxTorque float64
	dt        float64
	g         float64
	m         float64
	l         float64
	maxSteps  int

	theta    float64
	thetaDot float64
	steps    int
}

func newPendulum() *pendulum {
	return &pendulum{
		maxSpeed:  8.0,
		maxTorque: 2.0,
		dt:        0.05,
		g:         10.0,
		m:         1.0,
		l:         1.0,
		maxSteps:  200,
	}
}

func (e *pendulum) Reset() (spaces.Value, error) {
	e.theta = -math.Pi + 2*math.Pi*rand.Float64()
	e.thetaDot = -1 + 2*rand.Float64()
	e.steps = 0
	return e.observation(), nil
}

func (e *pendulum) Step(action spaces.Value) (StepResult, error) {
	torque := clamp(action.Vec[0], -e.maxTorque, e.maxTorque)

	cost := angleNormalize(e.theta)*angleNormalize(e.theta) +
		0.1*e.thetaDot*e.thetaDot +
		0.001*torque*torque

	e.thetaDot += (-3*e.g/(2*e.l)*math.Sin(e.theta+math.Pi) +
		3/(e.m*e.l*e.l)*torque) * e.dt
	e.thetaDot = clamp(e.thetaDot, -e.maxSpeed, e.maxSpeed)
	e.theta += e.thetaDot * e.dt
	e.steps++

	return StepResult{
		Observation: e.observation(),
		Reward:      -cost,
		Done:        e.steps >= e.maxSteps,
		Info:        map[string]any{},
	}, nil
}

func (e *pendulum) ActionSpace() spaces.Space {
	return spaces.Box{
		Shape: []int{1},
		Low:   []float64{-e.maxTorque},
		High:  []float64{e.maxTorque},
	}
}

func (e *pendulum) ObservationSpace() spaces.Space {
	return spaces.Box{
		Shape: []int{3},
		Low:   []float64{-1, -1, -e.maxSpeed},
		High:  []float64{1, 1, e.maxSpeed},
	}
}

func (e *pendulum) observation() spaces.Value {
	return spaces.BoxValue([]float64{math.Cos(e.theta), math.Sin(e.theta), e.thetaDot})
}

// angleNormalize maps an angle into [-pi, pi).
func angleNormalize(x float64) float64 {
	m := math.Mod(x+math.Pi, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	return m - math.Pi
}
