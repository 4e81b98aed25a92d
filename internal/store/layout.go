package store

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/fiducial-mcp/internal/codec"
	"github.com/ironsheep/fiducial-mcp/internal/pose"
)

// TagDefinition is a tag listed in a layout descriptor.
type TagDefinition struct {
	ID   int     `json:"id"`
	Size float64 `json:"size"`

	// Object names the rigid object the tag belongs to.
	Object string `json:"object"`

	// Keep requests the tag's own pose in addition to its object's.
	Keep bool `json:"keep"`

	// Translation and Rotation (degrees, about X then Y then Z) place the
	// tag's corner 0 frame inside the object.
	Translation [3]float64 `json:"translation"`
	Rotation    [3]float64 `json:"rotation"`
}

// Placement returns the transform from the tag frame to the object frame.
func (d TagDefinition) Placement() pose.Transform {
	return pose.FromEulerDegrees(d.Rotation, d.Translation)
}

type markerEntry struct {
	Marker      *int      `yaml:"marker"`
	Size        *float64  `yaml:"size"`
	Translation []float64 `yaml:"translation"`
	Rotation    []float64 `yaml:"rotation"`
	Keep        bool      `yaml:"keep"`
}

// ParseLayout reads a layout descriptor: a mapping from object name to the
// list of tags making up that object.
//
//	board:
//	  - marker: 3
//	    size: 20
//	    translation: [0, 0, 0]
//	    rotation: [0, 0, 0]
//	    keep: false
//
// JSON with the same structure is accepted. A tag may belong to one object
// only. The result is sorted by identifier.
func ParseLayout(data []byte) ([]TagDefinition, error) {
	var doc map[string][]markerEntry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse layout")
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[int]string)
	var defs []TagDefinition
	for _, name := range names {
		if name == "" {
			return nil, errors.New("layout object with empty name")
		}
		for i, e := range doc[name] {
			def, err := e.definition(name)
			if err != nil {
				return nil, errors.Wrapf(err, "object %q entry %d", name, i)
			}
			if other, dup := seen[def.ID]; dup {
				return nil, errors.Errorf("marker %d listed in both %q and %q", def.ID, other, name)
			}
			seen[def.ID] = name
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

func (e markerEntry) definition(object string) (TagDefinition, error) {
	if e.Marker == nil {
		return TagDefinition{}, errors.New("missing marker")
	}
	if e.Size == nil {
		return TagDefinition{}, errors.New("missing size")
	}
	def := TagDefinition{ID: *e.Marker, Size: *e.Size, Object: object, Keep: e.Keep}
	if err := def.validate(); err != nil {
		return TagDefinition{}, err
	}

	vec := func(field string, v []float64, dst *[3]float64) error {
		if v == nil {
			return nil
		}
		if len(v) != 3 {
			return errors.Errorf("%s must have 3 values, got %d", field, len(v))
		}
		for _, x := range v {
			if !finite(x) {
				return errors.Errorf("%s has a non-finite value", field)
			}
		}
		copy(dst[:], v)
		return nil
	}
	if err := vec("translation", e.Translation, &def.Translation); err != nil {
		return TagDefinition{}, err
	}
	if err := vec("rotation", e.Rotation, &def.Rotation); err != nil {
		return TagDefinition{}, err
	}
	return def, nil
}

func (d TagDefinition) validate() error {
	if d.ID < 0 || d.ID >= codec.NumIDs || d.ID == codec.BlackID {
		return errors.Errorf("marker %d is not a valid tag identifier", d.ID)
	}
	if !finite(d.Size) || d.Size <= 0 {
		return errors.Errorf("marker %d size %g must be positive", d.ID, d.Size)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
