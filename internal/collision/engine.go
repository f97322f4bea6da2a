package collision

import (
	"errors"
	"fmt"

	"github.com/banshee-data/capsulefit/internal/geom"
)

// Config selects the detectors of an Engine.
type Config struct {
	// Detectors are tried in order. Empty means a single ExactDetector.
	Detectors []Detector
	// AllowPenetration reports negative segment distances instead of
	// rejecting them with ErrNoReport.
	AllowPenetration bool
}

// Engine dispatches queries to the first detector that supports them.
type Engine struct {
	detectors        []Detector
	allowPenetration bool
}

// NewEngine builds an engine from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	dets := cfg.Detectors
	if len(dets) == 0 {
		dets = []Detector{ExactDetector{}}
	}
	for i, d := range dets {
		if d == nil {
			return nil, fmt.Errorf("detector %d is nil", i)
		}
	}
	return &Engine{detectors: append([]Detector(nil), dets...), allowPenetration: cfg.AllowPenetration}, nil
}

// DefaultEngine returns an engine using only the exact detector with
// penetration allowed.
func DefaultEngine() *Engine {
	return &Engine{detectors: []Detector{ExactDetector{}}, allowPenetration: true}
}

// DetectorByName returns a built-in detector.
func DetectorByName(name string) (Detector, error) {
	switch name {
	case "exact", "":
		return ExactDetector{}, nil
	case "sdf":
		return SDFDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", name)
	}
}

// Detectors returns the detector names in dispatch order.
func (e *Engine) Detectors() []string {
	names := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		names[i] = d.Name()
	}
	return names
}

// SegmentDistance returns the signed distance between segment ab and poly.
func (e *Engine) SegmentDistance(a, b geom.Point, poly *Polyhedron) (Report, error) {
	for _, d := range e.detectors {
		rep, err := d.SegmentDistance(a, b, poly)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			return Report{}, fmt.Errorf("%s segment distance: %w", d.Name(), err)
		}
		if rep.Distance < 0 && !e.allowPenetration {
			return Report{}, fmt.Errorf("%w: segment penetrates polyhedron by %g", ErrNoReport, -rep.Distance)
		}
		return rep, nil
	}
	return Report{}, fmt.Errorf("%w: no detector handles segment distance", ErrUnsupported)
}

// CapsuleEnclosure measures how far poly sticks out of c.
func (e *Engine) CapsuleEnclosure(c geom.Capsule, poly *Polyhedron) (Report, error) {
	for _, d := range e.detectors {
		rep, err := d.CapsuleEnclosure(c, poly)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			return Report{}, fmt.Errorf("%s capsule enclosure: %w", d.Name(), err)
		}
		return rep, nil
	}
	return Report{}, fmt.Errorf("%w: no detector handles capsule enclosure", ErrUnsupported)
}
