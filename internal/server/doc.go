// Package server implements the MCP (Model Context Protocol) server for
// fiducial tag detection.
//
// This package provides a JSON-RPC 2.0 server that exposes tag detection,
// pose estimation and their configuration through the MCP protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Detection:
//   - tag_find: Identifiers and corners of visible tags
//   - tag_estimate: Camera-frame poses of tags and layout objects
//
// Filtering:
//   - tag_set_filter: Smoothing for corners and poses
//   - tag_set_2d_filter: Smoothing for corners only
//   - tag_set_3d_filter: Smoothing for poses only
//
// Configuration:
//   - tag_read_configuration: Load a tag layout
//   - tag_set_default_size: Size of tags missing from the layout
//   - tag_read_calibration: Load camera intrinsics
//   - tag_camera_matrix, tag_distortion_coeffs: Read back the camera model
//
// Inspection:
//   - tag_overlay: Frame with tag outlines drawn on it
//   - tag_crop: Region around one tag
//   - frame_load: Frame metadata
//
// # Frames
//
// Tools that work on a frame accept either a file path or a raw grayscale
// buffer (frame_base64 with width and height). Files are decoded once and
// cached by path for the lifetime of the process.
//
// Every detection tool call is one tracker pass: it advances the frame
// counter and feeds the temporal filters, so calling tag_find repeatedly on
// a video's frames in order yields smoothed corners.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A rejected configuration call leaves the previous configuration in effect.
//
// # Usage
//
//	srv := server.New(nil)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
