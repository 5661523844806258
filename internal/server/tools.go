package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// overrideProperties are the optional per-call config overrides shared by
// segment_render and segment_inspect.
func overrideProperties() map[string]interface{} {
	return map[string]interface{}{
		"confidence_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Keep detections with confidence strictly above this. Default from server config (0.5)",
		},
		"mask_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Mask cells above this value are foreground. Default from server config (0.3)",
		},
		"overlay_color": map[string]interface{}{
			"type":        "string",
			"description": "Overlay color as #RRGGBB. Default #FF0000",
		},
		"overlay_alpha": map[string]interface{}{
			"type":        "number",
			"description": "Overlay weight in [0,1]. Default 0.4",
		},
		"clamp_boxes": map[string]interface{}{
			"type":        "boolean",
			"description": "Clamp boxes to the image before rasterizing masks. Default false",
		},
	}
}

func withOverrides(props map[string]interface{}) map[string]interface{} {
	for k, v := range overrideProperties() {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format.",
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
		{
			Name:        "image_sample_color",
			Description: "Get the exact color value at a specific pixel coordinate. Useful to check overlay colors in a rendered composite or crop.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "segment_render",
			Description: "Render instance segmentation detections onto an image: blend each mask, outline its box, label it, and write one masked crop per detection plus the annotated composite to out_dir.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOverrides(map[string]interface{}{
					"image": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the base image",
					},
					"detections": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the detections JSON file",
					},
					"labels": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to a label file, one class name per line",
					},
					"out_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the composite and crops; created if missing",
					},
				}),
				"required": []string{"image", "detections", "out_dir"},
			},
		},
		{
			Name:        "segment_inspect",
			Description: "Resolve the pixel boxes and mask coverage of a detections file without drawing anything.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOverrides(map[string]interface{}{
					"detections": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the detections JSON file",
					},
					"labels": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to a label file",
					},
					"image": map[string]interface{}{
						"type":        "string",
						"description": "Optional image whose size is used when the detections file has none",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Image width in pixels; overrides the detections file",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Image height in pixels; overrides the detections file",
					},
				}),
				"required": []string{"detections"},
			},
		},
		{
			Name:        "segment_metrics",
			Description: "Return rendering counters collected since the server started, in Prometheus text format.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
