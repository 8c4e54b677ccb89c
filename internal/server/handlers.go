package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ironsheep/photo-verify/internal/imaging"
	"github.com/ironsheep/photo-verify/internal/match"
	"github.com/ironsheep/photo-verify/internal/ocr"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "photo_validate").
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

	result, err := s.executeTool(context.Background(), params.Name, params.Arguments)
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "photo_validate":
		return s.handlePhotoValidate(ctx, args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_crop_region":
		return s.handleImageCropRegion(args)
	case "image_ocr_region":
		return s.handleImageOCRRegion(ctx, args)
	case "caption_match":
		return s.handleCaptionMatch(args)
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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments; missing arguments decode as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

// regionArgs carries an optional proportional region. Omitted fields take
// the configured watermark region's value.
type regionArgs struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

func (a regionArgs) resolve(fallback imaging.Region) imaging.Region {
	r := fallback
	if a.X != nil {
		r.X = *a.X
	}
	if a.Y != nil {
		r.Y = *a.Y
	}
	if a.Width != nil {
		r.Width = *a.Width
	}
	if a.Height != nil {
		r.Height = *a.Height
	}
	return r
}

// === Validation ===

func (s *Server) handlePhotoValidate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	data, err := s.cache.Load(a.Path)
	var decErr *imaging.DecodeError
	if errors.As(err, &decErr) {
		// Unreadable images still get a report
		data, err = os.ReadFile(a.Path)
	}
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, data, s.rules)
}

// === Image Information ===

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.ProbeDimensions(data)
}

// === Region Operations ===

type imageCropRegionArgs struct {
	pathArgs
	regionArgs
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCropRegion(args json.RawMessage) (interface{}, error) {
	var a imageCropRegionArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropToPNG(data, a.resolve(s.rules.Region), a.Scale)
}

// === OCR ===

type imageOCRRegionArgs struct {
	pathArgs
	regionArgs
	Languages  []string `json:"languages"`
	Preprocess *bool    `json:"preprocess"`
}

// OCRRegionResult is the output of image_ocr_region. Width and Height are the
// size of the cropped region, before any preprocessing.
type OCRRegionResult struct {
	Text         string         `json:"text"`
	Engine       string         `json:"engine"`
	Region       imaging.Region `json:"region"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Preprocessed bool           `json:"preprocessed"`
	Languages    []string       `json:"languages"`
}

func (s *Server) handleImageOCRRegion(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageOCRRegionArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	rec := s.validator.Recognizer()
	if rec == nil {
		return nil, errors.New("no recognizer configured")
	}

	hints := s.rules.Languages
	if len(a.Languages) > 0 {
		parsed, err := ocr.ParseLanguages(strings.Join(a.Languages, ","))
		if err != nil {
			return nil, err
		}
		hints = parsed
	}
	preprocess := s.rules.Preprocess
	if a.Preprocess != nil {
		preprocess = *a.Preprocess
	}

	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	region := a.resolve(s.rules.Region)
	buf, err := imaging.ExtractRegionLimit(data, region, s.rules.MaxPixels)
	if err != nil {
		return nil, err
	}
	width, height := buf.Width(), buf.Height()
	if preprocess {
		buf = imaging.PrepareForOCR(buf)
	}

	text, err := ocr.WithTimeout(rec, s.rules.OCRTimeout).Recognize(ctx, buf.Image(), hints)
	if err != nil {
		return nil, err
	}

	langs := make([]string, len(hints))
	for i, tag := range hints {
		langs[i] = tag.String()
	}
	return &OCRRegionResult{
		Text:         text,
		Engine:       rec.Name(),
		Region:       region,
		Width:        width,
		Height:       height,
		Preprocessed: preprocess,
		Languages:    langs,
	}, nil
}

// === Matching ===

type captionMatchArgs struct {
	Text     string `json:"text"`
	MaxEdits *int   `json:"max_edits"`
}

func (s *Server) handleCaptionMatch(args json.RawMessage) (interface{}, error) {
	var a captionMatchArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	maxEdits := s.rules.MaxEdits
	if a.MaxEdits != nil {
		maxEdits = *a.MaxEdits
	}
	m, err := match.Compile(s.rules.Patterns, match.Options{MaxEdits: maxEdits})
	if err != nil {
		return nil, err
	}
	return m.Match(a.Text), nil
}
