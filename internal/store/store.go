// Package store holds the configuration consulted by detection passes: the
// camera model, the tag layout, the default tag size and the filter
// parameters.
//
// Configuration is published as immutable snapshots. A pass takes one
// snapshot when it starts and uses it throughout, so setters running
// concurrently never change what an in-flight pass sees. Every setter
// replaces its part of the configuration wholesale; a setter that fails
// leaves the store exactly as it was.
package store

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/ironsheep/fiducial-mcp/internal/camera"
	"github.com/ironsheep/fiducial-mcp/internal/filter"
)

// DefaultTagSize is the side length given to tags missing from the layout
// until SetDefaultTagSize is called.
const DefaultTagSize = 1.0

// ErrMalformedDescriptor is returned when a layout or calibration descriptor
// cannot be used.
var ErrMalformedDescriptor = errors.New("malformed descriptor")

// ErrInvalidValue is returned by setters given out-of-range values.
var ErrInvalidValue = errors.New("invalid configuration value")

// Snapshot is one consistent configuration. It must not be modified.
type Snapshot struct {
	// Version increases with every successful setter call.
	Version uint64 `json:"version"`

	DefaultTagSize float64 `json:"default_tag_size"`

	// OmitOthers drops tags that are not in the layout.
	OmitOthers bool `json:"omit_other_tags"`

	Camera   camera.Model  `json:"camera"`
	Filter2D filter.Params `json:"filter_2d"`
	Filter3D filter.Params `json:"filter_3d"`

	tags map[int]TagDefinition
}

// Tag returns the layout entry for id.
func (s *Snapshot) Tag(id int) (TagDefinition, bool) {
	d, ok := s.tags[id]
	return d, ok
}

// Tags returns the layout sorted by identifier.
func (s *Snapshot) Tags() []TagDefinition {
	out := make([]TagDefinition, 0, len(s.tags))
	for _, d := range s.tags {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Objects returns the names of the layout objects, sorted.
func (s *Snapshot) Objects() []string {
	set := make(map[string]struct{})
	for _, d := range s.tags {
		set[d.Object] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reported reports whether tag id is part of the output, and the side length
// to use for it.
func (s *Snapshot) Reported(id int) (size float64, ok bool) {
	if d, listed := s.tags[id]; listed {
		return d.Size, true
	}
	if s.OmitOthers {
		return 0, false
	}
	return s.DefaultTagSize, true
}

// clone returns a shallow copy sharing the immutable tag map.
func (s *Snapshot) clone() *Snapshot {
	out := *s
	out.Camera = s.Camera.Clone()
	return &out
}

// Store is the configuration store. The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// New returns a store with the default configuration for frames of the given
// size.
func New(frameWidth, frameHeight int) *Store {
	return &Store{snap: defaults(frameWidth, frameHeight)}
}

func defaults(w, h int) *Snapshot {
	return &Snapshot{
		DefaultTagSize: DefaultTagSize,
		Camera:         camera.Default(w, h),
		Filter2D:       filter.DefaultParams(),
		Filter3D:       filter.DefaultParams(),
		tags:           map[int]TagDefinition{},
	}
}

// Snapshot returns the current configuration.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// update applies fn to a copy of the current snapshot and publishes it when
// fn succeeds.
func (s *Store) update(fn func(next *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap.clone()
	if err := fn(next); err != nil {
		return err
	}
	next.Version = s.snap.Version + 1
	s.snap = next
	return nil
}

// Reset restores the defaults for frames of the given size.
func (s *Store) Reset(frameWidth, frameHeight int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := defaults(frameWidth, frameHeight)
	next.Version = s.snap.Version + 1
	s.snap = next
}

// SetDefaultTagSize sets the side length of tags missing from the layout.
func (s *Store) SetDefaultTagSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return errors.Wrapf(ErrInvalidValue, "tag size %g must be positive", size)
	}
	return s.update(func(next *Snapshot) error {
		next.DefaultTagSize = size
		return nil
	})
}

// ReadTagConfiguration replaces the layout with the one in data, see
// ParseLayout.
func (s *Store) ReadTagConfiguration(data []byte, omitOthers bool) error {
	defs, err := ParseLayout(data)
	if err != nil {
		return errors.Wrapf(ErrMalformedDescriptor, "tag configuration: %v", err)
	}
	return s.SetTagDefinitions(defs, omitOthers)
}

// SetTagDefinitions replaces the layout.
func (s *Store) SetTagDefinitions(defs []TagDefinition, omitOthers bool) error {
	tags := make(map[int]TagDefinition, len(defs))
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return errors.Wrap(ErrInvalidValue, err.Error())
		}
		if d.Object == "" {
			return errors.Wrapf(ErrInvalidValue, "marker %d has no object name", d.ID)
		}
		if _, dup := tags[d.ID]; dup {
			return errors.Wrapf(ErrInvalidValue, "marker %d defined twice", d.ID)
		}
		tags[d.ID] = d
	}
	return s.update(func(next *Snapshot) error {
		next.tags = tags
		next.OmitOthers = omitOthers
		return nil
	})
}

// ReadCalibration replaces the camera model with the one in data, see
// camera.ParseCalibration.
func (s *Store) ReadCalibration(data []byte) error {
	m, err := camera.ParseCalibration(data)
	if err != nil {
		return errors.Wrapf(ErrMalformedDescriptor, "calibration: %v", err)
	}
	return s.SetCalibration(m)
}

// SetCalibration replaces the camera model.
func (s *Store) SetCalibration(m camera.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m = m.Clone()
	return s.update(func(next *Snapshot) error {
		if m.Width == 0 || m.Height == 0 {
			m.Width, m.Height = next.Camera.Width, next.Camera.Height
		}
		next.Camera = m
		return nil
	})
}

// SetFilter sets the parameters of both filters.
func (s *Store) SetFilter(persistence, gain float64) error {
	p := filter.Params{Persistence: persistence, Gain: gain}
	if err := p.Validate(); err != nil {
		return err
	}
	return s.update(func(next *Snapshot) error {
		next.Filter2D = p
		next.Filter3D = p
		return nil
	})
}

// Set2DFilter sets the corner filter parameters.
func (s *Store) Set2DFilter(persistence, gain float64) error {
	p := filter.Params{Persistence: persistence, Gain: gain}
	if err := p.Validate(); err != nil {
		return err
	}
	return s.update(func(next *Snapshot) error {
		next.Filter2D = p
		return nil
	})
}

// Set3DFilter sets the pose filter parameters.
func (s *Store) Set3DFilter(persistence, gain float64) error {
	p := filter.Params{Persistence: persistence, Gain: gain}
	if err := p.Validate(); err != nil {
		return err
	}
	return s.update(func(next *Snapshot) error {
		next.Filter3D = p
		return nil
	})
}

// CameraMatrix returns the intrinsic matrix, row-major.
func (s *Store) CameraMatrix() [9]float64 {
	return s.Snapshot().Camera.Matrix
}

// DistortionCoeffs returns a copy of the distortion coefficients.
func (s *Store) DistortionCoeffs() []float64 {
	return append([]float64{}, s.Snapshot().Camera.Distortion...)
}
