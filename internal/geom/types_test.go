package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParamsFromSlice(t *testing.T) {
	p, err := ParamsFromSlice([]float64{1, 2, 3, 4, 5, 6, 7})
	if err != nil {
		t.Fatalf("ParamsFromSlice: %v", err)
	}
	if diff := cmp.Diff(Point{X: 1, Y: 2, Z: 3}, p.Endpoint1()); diff != "" {
		t.Errorf("Endpoint1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Point{X: 4, Y: 5, Z: 6}, p.Endpoint2()); diff != "" {
		t.Errorf("Endpoint2 mismatch (-want +got):\n%s", diff)
	}
	if p.Radius() != 7 {
		t.Errorf("Radius = %v, want 7", p.Radius())
	}

	for _, n := range []int{0, 6, 8} {
		if _, err := ParamsFromSlice(make([]float64, n)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParamsFromSlice(len %d) error = %v, want ErrInvalidInput", n, err)
		}
	}
}

func TestParamsCapsuleRoundTrip(t *testing.T) {
	c := Capsule{P0: Point{X: -1}, P1: Point{X: 1}, Radius: 0.5}
	if got := c.Params().Capsule(); got != c {
		t.Errorf("Params().Capsule() = %+v, want %+v", got, c)
	}
	if got := c.Params().Length(); got != 2 {
		t.Errorf("Length = %v, want 2", got)
	}
	if diff := cmp.Diff([]float64{-1, 0, 0, 1, 0, 0, 0.5}, c.Params().Slice()); diff != "" {
		t.Errorf("Slice mismatch (-want +got):\n%s", diff)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", Params{0, 0, 0, 1, 0, 0, 1}, false},
		{"zero radius", Params{0, 0, 0, 0, 0, 0, 0}, false},
		{"negative radius", Params{0, 0, 0, 1, 0, 0, -0.1}, true},
		{"nan", Params{math.NaN(), 0, 0, 1, 0, 0, 1}, true},
		{"inf", Params{0, 0, 0, math.Inf(1), 0, 0, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestPolyhedronSet(t *testing.T) {
	set := PolyhedronSet{
		{{X: 1}, {X: 2}},
		{},
		{{Y: 3}},
	}
	if set.Len() != 3 {
		t.Errorf("Len = %d, want 3", set.Len())
	}
	want := []Point{{X: 1}, {X: 2}, {Y: 3}}
	if diff := cmp.Diff(want, set.Points()); diff != "" {
		t.Errorf("Points mismatch (-want +got):\n%s", diff)
	}
	if err := set.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	for name, bad := range map[string]PolyhedronSet{
		"nil":       nil,
		"no points": {{}, {}},
		"nan":       {{{X: math.NaN()}}},
	} {
		if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestCapsuleContains(t *testing.T) {
	c := Capsule{P0: Point{Z: -1}, P1: Point{Z: 1}, Radius: 1}
	inside := []Point{{}, {Z: 2}, {X: 1}, {X: 0.5, Z: -1.5}}
	for _, p := range inside {
		if !c.Contains(p, 1e-12) {
			t.Errorf("Contains(%v) = false, want true", p)
		}
	}
	if c.Contains(Point{Z: 2.1}, 1e-12) {
		t.Error("Contains beyond cap = true, want false")
	}
	if !c.ContainsAll(inside, 1e-12) {
		t.Error("ContainsAll = false, want true")
	}
	if got := c.Axis(); got != (Point{Z: 1}) {
		t.Errorf("Axis = %v, want +Z", got)
	}
	if got := (Capsule{}).Axis(); got != (Point{}) {
		t.Errorf("degenerate Axis = %v, want zero", got)
	}
}
