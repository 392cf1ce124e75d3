package envs

import (
	"math"
	"math/rand"

	"github.com/catherio/gym-http-api/internal/spaces"
)

// cartPole is the classic pole-balancing task: a pole hinged to a cart on a
// frictionless track, pushed left or right with a fixed force. The episode
// ends when the pole tips past 12 degrees, the cart leaves the track, or the
// step limit is reached. Reward is 1.0 per step.
type cartPole struct {
	gravity  float64
	massCart float64
	massPole float64
	length   float64 // half the pole length
	forceMag float64
	tau      float64

	xThreshold     float64
	thetaThreshold float64
	maxSteps       int

	state [4]float64 // x, x_dot, theta, theta_dot
	steps int
}

func newCartPole() *cartPole {
	return &cartPole{
		gravity:        9.8,
		massCart:       1.0,
		massPole:       0.1,
		length:         0.5,
		forceMag:       10.0,
		tau:            0.02,
		xThreshold:     2.4,
		thetaThreshold: 12 * 2 * math.Pi / 360,
		maxSteps:       200,
	}
}

func (e *cartPole) Reset() (spaces.Value, error) {
	for i := range e.state {
		e.state[i] = -0.05 + 0.1*rand.Float64()
	}
	e.steps = 0
	return e.observation(), nil
}

func (e *cartPole) Step(action spaces.Value) (StepResult, error) {
	force := -e.forceMag
	if action.Index == 1 {
		force = e.forceMag
	}

	x, xDot, theta, thetaDot := e.state[0], e.state[1], e.state[2], e.state[3]
	cosTheta := math.Cos(theta)
	sinTheta := math.Sin(theta)

	totalMass := e.massCart + e.massPole
	poleMassLength := e.massPole * e.length
	temp := (force + poleMassLength*thetaDot*thetaDot*sinTheta) / totalMass
	thetaAcc := (e.gravity*sinTheta - cosTheta*temp) /
		(e.length * (4.0/3.0 - e.massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	x += e.tau * xDot
	xDot += e.tau * xAcc
	theta += e.tau * thetaDot
	thetaDot += e.tau * thetaAcc
	e.state = [4]float64{x, xDot, theta, thetaDot}
	e.steps++

	done := x < -e.xThreshold || x > e.xThreshold ||
		theta < -e.thetaThreshold || theta > e.thetaThreshold ||
		e.steps >= e.maxSteps

	return StepResult{
		Observation: e.observation(),
		Reward:      1.0,
		Done:        done,
		Info:        map[string]any{},
	}, nil
}

func (e *cartPole) ActionSpace() spaces.Space {
	return spaces.Discrete{N: 2}
}

func (e *cartPole) ObservationSpace() spaces.Space {
	return spaces.Box{
		Shape: []int{4},
		Low:   []float64{-2 * e.xThreshold, math.Inf(-1), -2 * e.thetaThreshold, math.Inf(-1)},
		High:  []float64{2 * e.xThreshold, math.Inf(1), 2 * e.thetaThreshold, math.Inf(1)},
	}
}

func (e *cartPole) observation() spaces.Value {
	return spaces.BoxValue([]float64{e.state[0], e.state[1], e.state[2], e.state[3]})
}
