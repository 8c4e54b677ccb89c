package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// regionProperties describes the optional proportional region arguments.
func regionProperties(props map[string]interface{}) map[string]interface{} {
	fraction := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "number",
			"minimum":     0,
			"maximum":     1,
			"description": desc + " as a fraction of the image size. Defaults to the configured watermark region",
		}
	}
	props["x"] = fraction("Left edge")
	props["y"] = fraction("Top edge")
	props["width"] = fraction("Region width")
	props["height"] = fraction("Region height")
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "photo_validate",
			Description: "Check whether a photo was taken at the venue: its pixel size must be in the accepted range and the watermark region must carry the venue caption. Returns the full validation report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width, height and container format of an image file without decoding its pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop_region",
			Description: "Crop a proportional region (fractions of width and height) and return it as base64-encoded PNG. Without a region the configured watermark band is returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": regionProperties(map[string]interface{}{
					"path": pathProperty(),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_ocr_region",
			Description: "Run text recognition on a proportional region of an image and return the raw text.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": regionProperties(map[string]interface{}{
					"path": pathProperty(),
					"languages": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "BCP-47 language hints (e.g., [\"ja\", \"en\"]). Defaults to the configured languages",
					},
					"preprocess": map[string]interface{}{
						"type":        "boolean",
						"description": "Normalise contrast and upscale before recognition. Defaults to the configured setting",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "caption_match",
			Description: "Test a piece of text against the accepted caption patterns and report which pattern matched.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to test, e.g. the output of image_ocr_region",
					},
					"max_edits": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"description": "Tolerated edit distance for approximate matches. Defaults to the configured value",
					},
				},
				"required": []string{"text"},
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
