package imaging

import (
	"fmt"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// FrameCache provides thread-safe caching of grayscale frames decoded from
// image files, so repeated tool calls on the same file skip disk I/O and
// grayscale conversion.
//
// Frames are keyed by the exact path string given to Load. A cached Frame is
// shared between callers and must be treated as read-only.
//
// # Memory Management
//
// Cached frames remain in memory until explicitly removed via Evict() or
// Clear(). A long-running server working through a video sequence should
// evict frames it no longer needs.
//
// # Example Usage
//
//	cache := imaging.NewFrameCache()
//	frame, err := cache.Load("/path/to/frame.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tags := tracker.Find(frame).Tags
//	cache.Evict("/path/to/frame.png")
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]*Frame
}

// NewFrameCache creates and initializes a new empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]*Frame),
	}
}

// Load retrieves a frame from the cache or decodes it from disk.
//
// The file is decoded with EXIF auto-orientation so that phone photographs
// come out the way they were taken, then converted to 8-bit grayscale.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
func (c *FrameCache) Load(path string) (*Frame, error) {
	c.mu.RLock()
	if f, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	frame := FrameFromImage(img)

	c.mu.Lock()
	c.frames[path] = frame
	c.mu.Unlock()

	return frame, nil
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*Frame)
	c.mu.Unlock()
}

// Evict removes a specific frame from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// FrameInfo contains metadata about a frame loaded from disk.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// MeanIntensity is the average gray level, useful to spot under- or
	// over-exposed frames before blaming the detector.
	MeanIntensity float64 `json:"mean_intensity"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo loads a frame into the cache and reports its metadata.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	frame, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	var sum float64
	for _, v := range frame.Pix {
		sum += float64(v)
	}
	mean := 0.0
	if len(frame.Pix) > 0 {
		mean = sum / float64(len(frame.Pix))
	}

	return &FrameInfo{
		Width:         frame.Width,
		Height:        frame.Height,
		Format:        format,
		MeanIntensity: mean,
		FileSizeBytes: stat.Size(),
	}, nil
}
