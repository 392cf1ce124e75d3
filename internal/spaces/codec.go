package spaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	ErrUnsupportedSpace = errors.New("spaces: unsupported space type")
	ErrInvalidAction    = errors.New("spaces: invalid action")
)

// Infinite box bounds are clamped so the JSON encoding stays finite.
const boundClamp = 1e100

// Descriptor is the uniform wire description of a space.
type Descriptor struct {
	Name  string    `json:"name"`
	N     int64     `json:"n,omitempty"`
	Shape []int     `json:"shape,omitempty"`
	Low   []float64 `json:"low,omitempty"`
	High  []float64 `json:"high,omitempty"`
}

// Describe converts a space into its wire descriptor. Unrecognized variants
// fail closed rather than guessing a generic shape.
func Describe(s Space) (Descriptor, error) {
	switch sp := s.(type) {
	case Discrete:
		return Descriptor{Name: "Discrete", N: sp.N}, nil
	case Box:
		return Descriptor{
			Name:  "Box",
			Shape: append([]int(nil), sp.Shape...),
			Low:   clampBounds(sp.Low),
			High:  clampBounds(sp.High),
		}, nil
	default:
		return Descriptor{}, fmt.Errorf("%w: %T", ErrUnsupportedSpace, s)
	}
}

// DecodeAction parses a raw wire action against a space. Discrete actions
// must be an in-range integer index; box actions must be a float vector of
// the space's flattened size. Box element bounds are not enforced here;
// continuous environments clip their own inputs.
func DecodeAction(s Space, raw json.RawMessage) (Value, error) {
	switch sp := s.(type) {
	case Discrete:
		// Unmarshal treats null as a no-op, so decode through a pointer to
		// tell null apart from index 0.
		var index *int64
		if err := json.Unmarshal(raw, &index); err != nil {
			return Value{}, fmt.Errorf("%w: discrete action must be an integer: %v", ErrInvalidAction, err)
		}
		if index == nil {
			return Value{}, fmt.Errorf("%w: discrete action must be an integer, got null", ErrInvalidAction)
		}
		if *index < 0 || *index >= sp.N {
			return Value{}, fmt.Errorf("%w: index %d outside [0,%d)", ErrInvalidAction, *index, sp.N)
		}
		return DiscreteValue(*index), nil
	case Box:
		var vec *[]float64
		if err := json.Unmarshal(raw, &vec); err != nil {
			return Value{}, fmt.Errorf("%w: box action must be a float array: %v", ErrInvalidAction, err)
		}
		if vec == nil {
			return Value{}, fmt.Errorf("%w: box action must be a float array, got null", ErrInvalidAction)
		}
		if len(*vec) != sp.Size() {
			return Value{}, fmt.Errorf("%w: expected %d elements, got %d", ErrInvalidAction, sp.Size(), len(*vec))
		}
		return BoxValue(*vec), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedSpace, s)
	}
}

// Sample draws a uniform random value from the described space. Used by
// clients that only see the wire descriptor.
func (d Descriptor) Sample(rng *rand.Rand) (Value, error) {
	switch d.Name {
	case "Discrete":
		if d.N <= 0 {
			return Value{}, fmt.Errorf("%w: discrete descriptor with n=%d", ErrUnsupportedSpace, d.N)
		}
		return DiscreteValue(rng.Int63n(d.N)), nil
	case "Box":
		if len(d.Low) != len(d.High) {
			return Value{}, fmt.Errorf("%w: box descriptor bounds mismatch", ErrUnsupportedSpace)
		}
		vec := make([]float64, len(d.Low))
		for i := range vec {
			vec[i] = d.Low[i] + rng.Float64()*(d.High[i]-d.Low[i])
		}
		return BoxValue(vec), nil
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrUnsupportedSpace, d.Name)
	}
}

func clampBounds(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		switch {
		case math.IsInf(x, 1):
			out[i] = boundClamp
		case math.IsInf(x, -1):
			out[i] = -boundClamp
		default:
			out[i] = x
		}
	}
	return out
}
