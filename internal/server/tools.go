package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// frameSchema returns an object schema whose frame comes from either "path"
// or "frame_base64" with "width" and "height", plus the given properties.
func frameSchema(extra map[string]interface{}, required ...string) map[string]interface{} {
	props := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to an image file (PNG, JPEG or GIF). Ignored when frame_base64 is set",
		},
		"frame_base64": map[string]interface{}{
			"type":        "string",
			"description": "Raw 8-bit grayscale pixels, row-major, base64-encoded",
		},
		"width": map[string]interface{}{
			"type":        "integer",
			"description": "Frame width in pixels, required with frame_base64",
		},
		"height": map[string]interface{}{
			"type":        "integer",
			"description": "Frame height in pixels, required with frame_base64",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// filterSchema is shared by the three filter setters.
func filterSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"persistence": map[string]interface{}{
				"type":        "number",
				"description": "Weight of the previous value, in [0, 1). 0 disables smoothing",
			},
			"gain": map[string]interface{}{
				"type":        "number",
				"description": "Scale applied to each new measurement before blending. Default 1.0",
				"default":     1.0,
			},
		},
		"required": []string{"persistence"},
	}
}

// descriptorSchema describes a descriptor given inline or by path.
func descriptorSchema(what string, extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the " + what + " file",
		},
		"content": map[string]interface{}{
			"type":        "string",
			"description": "The " + what + " as YAML or JSON text. Takes precedence over path",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Detection
		{
			Name:        "tag_find",
			Description: "Detect fiducial tags in a frame and return their identifiers and corner positions. Corners start at the top-left corner of the code and run clockwise; they are smoothed by the 2D filter.",
			InputSchema: frameSchema(nil),
		},
		{
			Name:        "tag_estimate",
			Description: "Detect tags and return the camera-frame pose of each tag and layout object as a 4x4 row-major transform, smoothed by the 3D filter. Optionally returns the undistorted frame.",
			InputSchema: frameSchema(map[string]interface{}{
				"rectify": map[string]interface{}{
					"type":        "boolean",
					"description": "Also return the frame undistorted with the current calibration as a base64 PNG. Default false",
					"default":     false,
				},
			}),
		},

		// Filtering
		{
			Name:        "tag_set_filter",
			Description: "Set the temporal filter for both corner positions and poses.",
			InputSchema: filterSchema(),
		},
		{
			Name:        "tag_set_2d_filter",
			Description: "Set the temporal filter applied to corner positions returned by tag_find.",
			InputSchema: filterSchema(),
		},
		{
			Name:        "tag_set_3d_filter",
			Description: "Set the temporal filter applied to poses returned by tag_estimate.",
			InputSchema: filterSchema(),
		},

		// Configuration
		{
			Name:        "tag_read_configuration",
			Description: "Load a tag layout: tag sizes, and which tags form rigid objects with their placement inside each object. Replaces the current layout; on error the previous layout stays in effect.",
			InputSchema: descriptorSchema("tag layout", map[string]interface{}{
				"omit_other_tags": map[string]interface{}{
					"type":        "boolean",
					"description": "Ignore tags missing from the layout. Default false",
					"default":     false,
				},
			}),
		},
		{
			Name:        "tag_set_default_size",
			Description: "Set the side length used for tags missing from the layout. Poses are expressed in the same unit.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"size": map[string]interface{}{
						"type":        "number",
						"description": "Tag side length, outer black border included",
					},
				},
				"required": []string{"size"},
			},
		},
		{
			Name:        "tag_read_calibration",
			Description: "Load camera intrinsics and distortion coefficients from an OpenCV-style calibration file. On error the previous calibration stays in effect.",
			InputSchema: descriptorSchema("calibration", nil),
		},
		{
			Name:        "tag_camera_matrix",
			Description: "Return the 3x3 camera matrix in use, row-major.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "tag_distortion_coeffs",
			Description: "Return the distortion coefficients in use, in OpenCV order (k1, k2, p1, p2, k3, k4, k5, k6, s1, s2, s3, s4, tx, ty), as many as the calibration gave.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Inspection
		{
			Name:        "tag_overlay",
			Description: "Detect tags and return the frame with each tag outlined and labelled, as a base64 PNG.",
			InputSchema: frameSchema(map[string]interface{}{
				"color": map[string]interface{}{
					"type":        "string",
					"description": "Outline colour as hex (#RRGGBB). Default: one colour per tag identifier",
				},
			}),
		},
		{
			Name:        "tag_crop",
			Description: "Detect tags and return the region around one of them as a base64 PNG.",
			InputSchema: frameSchema(map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Tag identifier",
				},
				"margin": map[string]interface{}{
					"type":        "number",
					"description": "Padding around the tag as a fraction of its side. Default 0.25",
					"default":     0.25,
				},
				"scale": map[string]interface{}{
					"type":        "number",
					"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
					"default":     1.0,
				},
			}, "id"),
		},
		{
			Name:        "frame_load",
			Description: "Load an image file as a grayscale frame and return its dimensions, format and mean intensity. The frame is cached for later calls with the same path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
