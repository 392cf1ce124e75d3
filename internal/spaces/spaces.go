package spaces

import (
	"encoding/json"
	"fmt"
)

// Space is the set of valid actions or observations for an environment.
// Concrete variants are Discrete and Box; the codec fails closed on
// anything else.
type Space interface {
	space()
}

// Discrete is a finite set of integer choices {0, ..., N-1}.
type Discrete struct {
	N int64
}

// Box is a bounded continuous vector. Low and High are flattened to match
// Size() elements.
type Box struct {
	Shape []int
	Low   []float64
	High  []float64
}

func (Discrete) space() {}
func (Box) space()      {}

// Size returns the flattened element count of the box.
func (b Box) Size() int {
	if len(b.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range b.Shape {
		n *= d
	}
	return n
}

// Kind tags the serializable shape of a decoded space value.
type Kind int

const (
	KindDiscrete Kind = iota
	KindBox
)

// Value is a decoded action or observation, tagged by the space variant
// that produced it. Discrete values carry Index; Box values carry Vec.
type Value struct {
	Kind  Kind
	Index int64
	Vec   []float64
}

// DiscreteValue wraps one integer choice.
func DiscreteValue(index int64) Value {
	return Value{Kind: KindDiscrete, Index: index}
}

// BoxValue wraps one float vector.
func BoxValue(vec []float64) Value {
	return Value{Kind: KindBox, Vec: vec}
}

// MarshalJSON encodes discrete values as a bare integer and box values as a
// float array, matching the wire contract for observations and actions.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindDiscrete:
		return json.Marshal(v.Index)
	case KindBox:
		vec := v.Vec
		if vec == nil {
			vec = []float64{}
		}
		return json.Marshal(vec)
	default:
		return nil, fmt.Errorf("%w: value kind %d", ErrUnsupportedSpace, v.Kind)
	}
}
