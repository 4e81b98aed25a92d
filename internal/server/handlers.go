package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ironsheep/fiducial-mcp/internal/camera"
	"github.com/ironsheep/fiducial-mcp/internal/filter"
	"github.com/ironsheep/fiducial-mcp/internal/imaging"
	"github.com/ironsheep/fiducial-mcp/internal/store"
	"github.com/ironsheep/fiducial-mcp/internal/tracker"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "tag_find", "tag_estimate").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads or decodes the frame when the tool needs one
//  4. Calls the tracker or the configuration store
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Detection
	case "tag_find":
		return s.handleTagFind(args)
	case "tag_estimate":
		return s.handleTagEstimate(args)

	// Filtering
	case "tag_set_filter":
		return s.handleSetFilter(args, "both")
	case "tag_set_2d_filter":
		return s.handleSetFilter(args, "2d")
	case "tag_set_3d_filter":
		return s.handleSetFilter(args, "3d")

	// Configuration
	case "tag_read_configuration":
		return s.handleReadConfiguration(args)
	case "tag_set_default_size":
		return s.handleSetDefaultSize(args)
	case "tag_read_calibration":
		return s.handleReadCalibration(args)
	case "tag_camera_matrix":
		return s.handleCameraMatrix()
	case "tag_distortion_coeffs":
		return s.handleDistortionCoeffs()

	// Inspection
	case "tag_overlay":
		return s.handleTagOverlay(args)
	case "tag_crop":
		return s.handleTagCrop(args)
	case "frame_load":
		return s.handleFrameLoad(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// frameArgs selects the frame a tool works on: an image file, or a raw
// 8-bit grayscale buffer of Width*Height bytes.
type frameArgs struct {
	Path        string `json:"path"`
	FrameBase64 string `json:"frame_base64"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

func (s *Server) loadFrame(a frameArgs) (*imaging.Frame, error) {
	switch {
	case a.FrameBase64 != "":
		return imaging.DecodeFrameBase64(a.FrameBase64, a.Width, a.Height)
	case a.Path != "":
		return s.cache.Load(a.Path)
	default:
		return nil, fmt.Errorf("either path or frame_base64 is required")
	}
}

// descriptorArgs carries a descriptor either inline or as a file path.
type descriptorArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func readDescriptor(a descriptorArgs) ([]byte, error) {
	if a.Content != "" {
		return []byte(a.Content), nil
	}
	if a.Path == "" {
		return nil, fmt.Errorf("either path or content is required")
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return data, nil
}

// === Detection Handlers ===

// FindResult is the output of tag_find.
type FindResult struct {
	Frame uint64                   `json:"frame"`
	Count int                      `json:"count"`
	Tags  []tracker.TagObservation `json:"tags"`
}

func (s *Server) handleTagFind(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.loadFrame(a)
	if err != nil {
		return nil, err
	}
	res := s.tracker.Find(f)
	return &FindResult{Frame: res.Frame, Count: len(res.Tags), Tags: res.Tags}, nil
}

type tagEstimateArgs struct {
	frameArgs
	Rectify bool `json:"rectify"`
}

// EstimateResult is the output of tag_estimate.
type EstimateResult struct {
	Frame uint64            `json:"frame"`
	Count int               `json:"count"`
	Poses []tracker.TagPose `json:"poses"`

	// Rectified is the undistorted frame as a PNG, set when requested.
	Rectified *imaging.EncodedImage `json:"rectified,omitempty"`
}

func (s *Server) handleTagEstimate(args json.RawMessage) (interface{}, error) {
	var a tagEstimateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}
	res, err := s.tracker.Estimate(f, a.Rectify)
	if err != nil {
		return nil, err
	}
	out := &EstimateResult{Frame: res.Frame, Count: len(res.Poses), Poses: res.Poses}
	if res.Rectified != nil && !res.Rectified.Empty() {
		out.Rectified, err = imaging.EncodePNG(res.Rectified.Gray())
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// === Filter Handlers ===

type setFilterArgs struct {
	Persistence float64  `json:"persistence"`
	Gain        *float64 `json:"gain"`
}

// FilterResult echoes the parameters now in effect.
type FilterResult struct {
	Domain   string        `json:"domain"`
	Filter2D filter.Params `json:"filter_2d"`
	Filter3D filter.Params `json:"filter_3d"`
}

func (s *Server) handleSetFilter(args json.RawMessage, domain string) (interface{}, error) {
	var a setFilterArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	gain := 1.0
	if a.Gain != nil {
		gain = *a.Gain
	}

	var err error
	switch domain {
	case "2d":
		err = s.tracker.Set2DFilter(a.Persistence, gain)
	case "3d":
		err = s.tracker.Set3DFilter(a.Persistence, gain)
	default:
		err = s.tracker.SetFilter(a.Persistence, gain)
	}
	if err != nil {
		return nil, err
	}

	snap := s.tracker.Store().Snapshot()
	return &FilterResult{Domain: domain, Filter2D: snap.Filter2D, Filter3D: snap.Filter3D}, nil
}

// === Configuration Handlers ===

type readConfigurationArgs struct {
	descriptorArgs
	OmitOtherTags bool `json:"omit_other_tags"`
}

// ConfigurationResult summarizes the layout now in effect.
type ConfigurationResult struct {
	Tags           []store.TagDefinition `json:"tags"`
	Objects        []string              `json:"objects"`
	OmitOtherTags  bool                  `json:"omit_other_tags"`
	DefaultTagSize float64               `json:"default_tag_size"`
}

func (s *Server) configuration() *ConfigurationResult {
	snap := s.tracker.Store().Snapshot()
	return &ConfigurationResult{
		Tags:           snap.Tags(),
		Objects:        snap.Objects(),
		OmitOtherTags:  snap.OmitOthers,
		DefaultTagSize: snap.DefaultTagSize,
	}
}

func (s *Server) handleReadConfiguration(args json.RawMessage) (interface{}, error) {
	var a readConfigurationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	data, err := readDescriptor(a.descriptorArgs)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.ReadTagConfiguration(data, a.OmitOtherTags); err != nil {
		return nil, err
	}
	return s.configuration(), nil
}

type setDefaultSizeArgs struct {
	Size float64 `json:"size"`
}

func (s *Server) handleSetDefaultSize(args json.RawMessage) (interface{}, error) {
	var a setDefaultSizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.tracker.SetDefaultTagSize(a.Size); err != nil {
		return nil, err
	}
	return s.configuration(), nil
}

// CalibrationResult describes the camera model now in effect.
type CalibrationResult struct {
	CameraMatrix           [9]float64 `json:"camera_matrix"`
	DistortionCoefficients []float64  `json:"distortion_coefficients"`
	ImageWidth             int        `json:"image_width"`
	ImageHeight            int        `json:"image_height"`

	// Descriptor is the model in effect, re-encoded in the OpenCV layout
	// accepted by tag_read_calibration.
	Descriptor string `json:"descriptor"`
}

func (s *Server) handleReadCalibration(args json.RawMessage) (interface{}, error) {
	var a descriptorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	data, err := readDescriptor(a)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.ReadCalibration(data); err != nil {
		return nil, err
	}
	cam := s.tracker.Store().Snapshot().Camera
	descriptor, err := camera.MarshalCalibration(cam)
	if err != nil {
		return nil, err
	}
	return &CalibrationResult{
		CameraMatrix:           cam.Matrix,
		DistortionCoefficients: s.tracker.DistortionCoeffs(),
		ImageWidth:             cam.Width,
		ImageHeight:            cam.Height,
		Descriptor:             string(descriptor),
	}, nil
}

func (s *Server) handleCameraMatrix() (interface{}, error) {
	return map[string]interface{}{
		"camera_matrix": s.tracker.CameraMatrix(),
	}, nil
}

func (s *Server) handleDistortionCoeffs() (interface{}, error) {
	coeffs := s.tracker.DistortionCoeffs()
	return map[string]interface{}{
		"distortion_coefficients": coeffs,
		"count":                   len(coeffs),
	}, nil
}

// === Inspection Handlers ===

type tagOverlayArgs struct {
	frameArgs
	Color string `json:"color"`
}

func (s *Server) handleTagOverlay(args json.RawMessage) (interface{}, error) {
	var a tagOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}
	found := s.tracker.Find(f).Tags
	tags := make([]imaging.OverlayTag, len(found))
	for i, t := range found {
		tags[i] = imaging.OverlayTag{ID: t.ID, Corners: t.Corners}
	}
	return imaging.Overlay(f, tags, a.Color)
}

type tagCropArgs struct {
	frameArgs
	ID     int     `json:"id"`
	Margin float64 `json:"margin"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleTagCrop(args json.RawMessage) (interface{}, error) {
	var a tagCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Margin == 0 {
		a.Margin = 0.25
	}
	f, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}
	for _, t := range s.tracker.Find(f).Tags {
		if t.ID == a.ID {
			return imaging.CropQuad(f, t.Corners, a.Margin, a.Scale)
		}
	}
	return nil, fmt.Errorf("tag %d not found in frame", a.ID)
}

type frameLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFrameLoad(args json.RawMessage) (interface{}, error) {
	var a frameLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadFrameInfo(s.cache, a.Path)
}
