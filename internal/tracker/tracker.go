// Package tracker runs the per-frame pipeline: binarize, find quads, decode,
// estimate poses and smooth the results over time.
//
// A Tracker owns the filter state and the frame counter; its configuration
// lives in a store.Store that may be updated from any goroutine. Passes are
// serialized and each one reads a single configuration snapshot.
package tracker

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/ironsheep/fiducial-mcp/internal/camera"
	"github.com/ironsheep/fiducial-mcp/internal/codec"
	"github.com/ironsheep/fiducial-mcp/internal/decode"
	"github.com/ironsheep/fiducial-mcp/internal/detection"
	"github.com/ironsheep/fiducial-mcp/internal/filter"
	"github.com/ironsheep/fiducial-mcp/internal/geometry"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
	"github.com/ironsheep/fiducial-mcp/internal/pose"
	"github.com/ironsheep/fiducial-mcp/internal/store"
)

// TagObservation is a decoded tag in one frame.
type TagObservation struct {
	ID int `json:"id"`

	// Corners start at the top-left corner of the code and run clockwise on
	// screen.
	Corners [4]geometry.Point2 `json:"corners"`

	// Frame is the sequence number of the pass that produced it.
	Frame uint64 `json:"frame"`
}

// TagPose is the camera-frame transform of a tag or a layout object.
type TagPose struct {
	// Name is "marker_<id>" for single tags, the object name otherwise.
	Name string `json:"name"`

	// ID is set for single tags.
	ID *int `json:"id,omitempty"`

	Transform pose.Transform `json:"transform"`
	Frame     uint64         `json:"frame"`
}

// FindResult is the outcome of a detection pass.
type FindResult struct {
	Tags  []TagObservation `json:"tags"`
	Frame uint64           `json:"frame"`
}

// EstimateResult is the outcome of a pose pass.
type EstimateResult struct {
	Poses []TagPose `json:"poses"`

	// Rectified is an undistorted copy of the input, set when requested.
	Rectified *imaging.Frame `json:"-"`

	Frame uint64 `json:"frame"`
}

// Options tunes the pipeline.
type Options struct {
	Detection detection.Options

	// MaxDistance is the accepted Hamming distance when decoding; negative
	// selects the codec default.
	MaxDistance int

	// Debug logs a summary of every pass.
	Debug bool
}

// DefaultOptions returns the pipeline defaults.
func DefaultOptions() Options {
	return Options{
		Detection:   detection.DefaultOptions(),
		MaxDistance: codec.DefaultMaxDistance,
	}
}

// Tracker is the detection entry point. It is safe for concurrent use;
// passes run one at a time.
type Tracker struct {
	store   *store.Store
	opts    Options
	decoder *decode.Decoder

	mu         sync.Mutex
	seq        uint64
	corners    *filter.Corners
	transforms *filter.Transforms
}

// New returns a tracker reading its configuration from s.
func New(s *store.Store, opts Options) *Tracker {
	return &Tracker{
		store:      s,
		opts:       opts,
		decoder:    decode.NewDecoder(codec.New(opts.MaxDistance)),
		corners:    filter.NewCorners(),
		transforms: filter.NewTransforms(),
	}
}

// Store returns the configuration store.
func (t *Tracker) Store() *store.Store { return t.store }

// Find returns the tags visible in f with their smoothed corners, and the
// sequence number of the pass. An empty frame, or one without tags, yields
// no tags but still counts as a pass.
func (t *Tracker) Find(f *imaging.Frame) FindResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.Snapshot()
	seq := t.next()
	tags := t.detect(f, snap, seq)

	out := make([]TagObservation, 0, len(tags))
	for _, tag := range tags {
		out = append(out, TagObservation{
			ID:      tag.ID,
			Corners: t.corners.Update(tag.ID, tag.Corners, seq, snap.Filter2D),
			Frame:   seq,
		})
	}
	if t.opts.Debug {
		log.Printf("find: frame %d, %d tags", seq, len(out))
	}
	return FindResult{Tags: out, Frame: seq}
}

// Estimate returns the smoothed poses of the tags and layout objects visible
// in f. When rectify is set the result also carries an undistorted copy of
// f; f itself is never modified. The error reports a failed rectification
// only; poses are returned regardless.
func (t *Tracker) Estimate(f *imaging.Frame, rectify bool) (EstimateResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.Snapshot()
	seq := t.next()
	tags := t.detect(f, snap, seq)

	res := EstimateResult{Poses: []TagPose{}, Frame: seq}
	for _, p := range estimatePoses(tags, snap) {
		p.Transform = t.transforms.Update(p.Name, p.Transform, seq, snap.Filter3D)
		p.Frame = seq
		res.Poses = append(res.Poses, p)
	}

	var err error
	if rectify {
		res.Rectified, err = camera.Rectify(f, snap.Camera)
		if err != nil {
			err = fmt.Errorf("failed to rectify frame: %w", err)
		}
	}
	if t.opts.Debug {
		log.Printf("estimate: frame %d, %d tags, %d poses", seq, len(tags), len(res.Poses))
	}
	return res, err
}

// Frame returns the sequence number of the last pass.
func (t *Tracker) Frame() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// FilterState returns the smoothed corners retained for a tag.
func (t *Tracker) FilterState(id int) (filter.State[[4]geometry.Point2], bool) {
	return t.corners.Get(id)
}

// PoseState returns the smoothed transform retained for a pose name.
func (t *Tracker) PoseState(name string) (filter.State[pose.Transform], bool) {
	return t.transforms.Get(name)
}

// ResetFilters forgets all smoothing state.
func (t *Tracker) ResetFilters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.corners.Reset()
	t.transforms.Reset()
}

func (t *Tracker) next() uint64 {
	t.seq++
	return t.seq
}

// detect runs quad detection and decoding, then applies the layout's
// omit-other-tags rule. The result is sorted by identifier.
func (t *Tracker) detect(f *imaging.Frame, snap *store.Snapshot, seq uint64) []decode.Tag {
	if f.Empty() {
		return nil
	}
	quads := detection.Detect(f, t.opts.Detection)

	var kept []decode.Tag
	for _, q := range quads {
		tag, ok := t.decoder.Decode(f, q.Corners)
		if !ok {
			continue
		}
		// quads come largest first, so an enclosing tag is already kept
		if insideAny(tag, kept) {
			continue
		}
		kept = append(kept, tag)
	}

	out := kept[:0]
	for _, tag := range kept {
		if _, ok := snap.Reported(tag.ID); ok {
			out = append(out, tag)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if t.opts.Debug {
		log.Printf("detect: frame %d, %d quads, %d tags", seq, len(quads), len(out))
	}
	return out
}

func insideAny(tag decode.Tag, others []decode.Tag) bool {
	c := geometry.Centroid(tag.Corners[:])
	for _, o := range others {
		if geometry.Contains(o.Corners[:], c) {
			return true
		}
	}
	return false
}

// estimatePoses computes the raw poses of a frame's tags. Listed tags feed
// their object's pose, and their own when the layout says keep; unlisted
// tags get a pose of their own at the default size.
func estimatePoses(tags []decode.Tag, snap *store.Snapshot) []TagPose {
	cam := snap.Camera
	var out []TagPose
	members := make(map[string][]pose.Member)

	for _, tag := range tags {
		id := tag.ID
		def, listed := snap.Tag(id)
		if !listed {
			size, ok := snap.Reported(id)
			if !ok {
				continue
			}
			if tr, ok := pose.EstimateSquare(tag.Corners, size, cam); ok {
				out = append(out, TagPose{Name: markerName(id), ID: &id, Transform: tr})
			}
			continue
		}
		if def.Keep {
			if tr, ok := pose.EstimateSquare(tag.Corners, def.Size, cam); ok {
				out = append(out, TagPose{Name: markerName(id), ID: &id, Transform: tr})
			}
		}
		members[def.Object] = append(members[def.Object], pose.Member{
			Size:      def.Size,
			Placement: def.Placement(),
			Corners:   tag.Corners,
		})
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if tr, ok := pose.EstimateObject(members[name], cam); ok {
			out = append(out, TagPose{Name: name, Transform: tr})
		}
	}
	return out
}

func markerName(id int) string {
	return fmt.Sprintf("marker_%d", id)
}
