package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()
	require.NotEmpty(t, tools)

	expectedTools := []string{
		"tag_find",
		"tag_estimate",
		"tag_set_filter",
		"tag_set_2d_filter",
		"tag_set_3d_filter",
		"tag_read_configuration",
		"tag_set_default_size",
		"tag_read_calibration",
		"tag_camera_matrix",
		"tag_distortion_coeffs",
		"tag_overlay",
		"tag_crop",
		"frame_load",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		assert.NotContains(t, toolMap, tool.Name, "tool defined twice")
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		assert.Contains(t, toolMap, name)
	}
	assert.Len(t, tools, len(expectedTools))
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			assert.NotEmpty(t, tool.Name)
			assert.NotEmpty(t, tool.Description)
			require.NotNil(t, tool.InputSchema)
			assert.Equal(t, "object", tool.InputSchema["type"])

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			require.True(t, ok, "InputSchema properties should be a map")

			// every required parameter must be described
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range required {
					assert.Contains(t, props, r, "required parameter has no property")
				}
			}
		})
	}
}

func TestToolDefinitions_FrameSource(t *testing.T) {
	frameTools := []string{"tag_find", "tag_estimate", "tag_overlay", "tag_crop"}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, name := range frameTools {
		t.Run(name, func(t *testing.T) {
			tool, ok := toolMap[name]
			require.True(t, ok, "tool %s not found", name)
			props := tool.InputSchema["properties"].(map[string]interface{})
			for _, p := range []string{"path", "frame_base64", "width", "height"} {
				assert.Contains(t, props, p)
			}

			// neither source is mandatory on its own
			required, _ := tool.InputSchema["required"].([]string)
			assert.NotContains(t, required, "path")
			assert.NotContains(t, required, "frame_base64")
		})
	}
}

func TestToolDefinitions_FilterRequiresPersistence(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		switch tool.Name {
		case "tag_set_filter", "tag_set_2d_filter", "tag_set_3d_filter":
		default:
			continue
		}
		assert.Equal(t, []string{"persistence"}, tool.InputSchema["required"], tool.Name)
	}
}

func TestToolDefinitions_OptionalDefaults(t *testing.T) {
	toolDefaults := map[string]map[string]interface{}{
		"tag_estimate":           {"rectify": false},
		"tag_set_filter":         {"gain": 1.0},
		"tag_read_configuration": {"omit_other_tags": false},
		"tag_crop":               {"margin": 0.25, "scale": 1.0},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for toolName, expectedDefaults := range toolDefaults {
		tool, ok := toolMap[toolName]
		if !assert.True(t, ok, "tool %s not found", toolName) {
			continue
		}
		props, ok := tool.InputSchema["properties"].(map[string]interface{})
		if !assert.True(t, ok, "%s: properties should be a map", toolName) {
			continue
		}

		for paramName, expectedDefault := range expectedDefaults {
			param, ok := props[paramName].(map[string]interface{})
			if !assert.True(t, ok, "%s.%s: parameter not found", toolName, paramName) {
				continue
			}
			assert.Equal(t, expectedDefault, param["default"], "%s.%s default", toolName, paramName)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New(nil)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
	}

	resp := s.handleToolsList(req)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "Result should be a map")

	toolsList, ok := result["tools"].([]Tool)
	require.True(t, ok, "tools should be a slice of Tool")
	assert.Len(t, toolsList, len(GetToolDefinitions()))
}
