package spaces

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/catherio/gym-http-api/internal/testutil/testlog"
)

type tupleSpace struct{}

func (tupleSpace) space() {}

func TestDescribeDiscrete(t *testing.T) {
	testlog.Start(t)
	desc, err := Describe(Discrete{N: 2})
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if desc.Name != "Discrete" || desc.N != 2 {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if desc.Shape != nil || desc.Low != nil || desc.High != nil {
		t.Fatalf("discrete descriptor carries box fields: %+v", desc)
	}
}

func TestDescribeBoxClampsInfiniteBounds(t *testing.T) {
	testlog.Start(t)
	box := Box{
		Shape: []int{2},
		Low:   []float64{-1.5, math.Inf(-1)},
		High:  []float64{1.5, math.Inf(1)},
	}
	desc, err := Describe(box)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if desc.Name != "Box" || !reflect.DeepEqual(desc.Shape, []int{2}) {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if desc.Low[1] != -1e100 || desc.High[1] != 1e100 {
		t.Fatalf("infinite bounds not clamped: low=%v high=%v", desc.Low, desc.High)
	}
	if desc.Low[0] != -1.5 || desc.High[0] != 1.5 {
		t.Fatalf("finite bounds altered: low=%v high=%v", desc.Low, desc.High)
	}
}

func TestDescribeFailsClosedOnUnknownVariant(t *testing.T) {
	testlog.Start(t)
	if _, err := Describe(tupleSpace{}); !errors.Is(err, ErrUnsupportedSpace) {
		t.Fatalf("expected ErrUnsupportedSpace, got %v", err)
	}
}

func TestDescriptorWireEncoding(t *testing.T) {
	testlog.Start(t)
	raw, err := json.Marshal(Descriptor{Name: "Discrete", N: 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "Discrete" || body["n"] != float64(2) {
		t.Fatalf("unexpected wire form: %s", raw)
	}
	if _, ok := body["shape"]; ok {
		t.Fatalf("discrete wire form leaks box fields: %s", raw)
	}
}

func TestDecodeActionDiscrete(t *testing.T) {
	testlog.Start(t)
	space := Discrete{N: 2}

	v, err := DecodeAction(space, json.RawMessage(`1`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Kind != KindDiscrete || v.Index != 1 {
		t.Fatalf("unexpected value: %+v", v)
	}

	for _, raw := range []string{`2`, `-1`, `0.5`, `"0"`, `[0]`, `null`} {
		if _, err := DecodeAction(space, json.RawMessage(raw)); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("expected ErrInvalidAction for %s, got %v", raw, err)
		}
	}
}

func TestDecodeActionBox(t *testing.T) {
	testlog.Start(t)
	space := Box{Shape: []int{2}, Low: []float64{-1, -1}, High: []float64{1, 1}}

	v, err := DecodeAction(space, json.RawMessage(`[0.25, -0.5]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Kind != KindBox || !reflect.DeepEqual(v.Vec, []float64{0.25, -0.5}) {
		t.Fatalf("unexpected value: %+v", v)
	}

	// Out-of-bounds elements pass through; environments clip their own inputs.
	if _, err := DecodeAction(space, json.RawMessage(`[5.0, -5.0]`)); err != nil {
		t.Fatalf("bounds should not be enforced, got %v", err)
	}

	for _, raw := range []string{`[0.25]`, `[0, 0, 0]`, `0.25`, `"a"`, `null`} {
		if _, err := DecodeAction(space, json.RawMessage(raw)); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("expected ErrInvalidAction for %s, got %v", raw, err)
		}
	}
}

func TestDecodeActionFailsClosedOnUnknownVariant(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeAction(tupleSpace{}, json.RawMessage(`0`)); !errors.Is(err, ErrUnsupportedSpace) {
		t.Fatalf("expected ErrUnsupportedSpace, got %v", err)
	}
}

func TestValueWireEncoding(t *testing.T) {
	testlog.Start(t)
	raw, err := json.Marshal(DiscreteValue(3))
	if err != nil {
		t.Fatalf("marshal discrete: %v", err)
	}
	if string(raw) != "3" {
		t.Fatalf("discrete value encoded as %s", raw)
	}

	raw, err = json.Marshal(BoxValue([]float64{0.5, -1}))
	if err != nil {
		t.Fatalf("marshal box: %v", err)
	}
	if string(raw) != "[0.5,-1]" {
		t.Fatalf("box value encoded as %s", raw)
	}
}

func TestDescriptorSample(t *testing.T) {
	testlog.Start(t)
	rng := rand.New(rand.NewSource(1))

	disc := Descriptor{Name: "Discrete", N: 4}
	for i := 0; i < 32; i++ {
		v, err := disc.Sample(rng)
		if err != nil {
			t.Fatalf("sample discrete: %v", err)
		}
		if v.Index < 0 || v.Index >= 4 {
			t.Fatalf("sampled index %d outside space", v.Index)
		}
	}

	box := Descriptor{Name: "Box", Shape: []int{2}, Low: []float64{-2, 0}, High: []float64{2, 1}}
	for i := 0; i < 32; i++ {
		v, err := box.Sample(rng)
		if err != nil {
			t.Fatalf("sample box: %v", err)
		}
		if len(v.Vec) != 2 {
			t.Fatalf("sampled vector length %d", len(v.Vec))
		}
		if v.Vec[0] < -2 || v.Vec[0] > 2 || v.Vec[1] < 0 || v.Vec[1] > 1 {
			t.Fatalf("sampled vector %v outside bounds", v.Vec)
		}
	}

	tuple := Descriptor{Name: "Tuple"}
	if _, err := tuple.Sample(rng); !errors.Is(err, ErrUnsupportedSpace) {
		t.Fatalf("expected ErrUnsupportedSpace, got %v", err)
	}
}
