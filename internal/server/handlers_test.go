package server

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/photo-verify/internal/imaging"
	"github.com/ironsheep/photo-verify/internal/match"
	"github.com/ironsheep/photo-verify/internal/verify"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil || out == nil {
		return resp
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
	return resp
}

func TestPhotoValidate(t *testing.T) {
	s := newTestServer("© 学マス")
	path := createTestImageFile(t, 1920, 1080, color.White)

	var report verify.Report
	resp := callTool(t, s, "photo_validate", map[string]interface{}{"path": path}, &report)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if !report.Valid || !report.Size.Valid || !report.Copyright.Valid {
		t.Errorf("expected a valid report: %+v", report)
	}
	if report.Size.Width != 1920 || report.Size.Height != 1080 {
		t.Errorf("size: got %dx%d", report.Size.Width, report.Size.Height)
	}
}

func TestPhotoValidate_FileReplaced(t *testing.T) {
	s := newTestServer("© 学マス")
	path := createTestImageFile(t, 1920, 1080, color.White)

	var first verify.Report
	callTool(t, s, "photo_validate", map[string]interface{}{"path": path}, &first)
	if !first.Size.Valid {
		t.Fatalf("expected the first photo to pass: %+v", first)
	}

	small := createTestImageFile(t, 640, 480, color.White)
	data, err := os.ReadFile(small)
	if err != nil {
		t.Fatalf("failed to read image: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to replace image: %v", err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	var second verify.Report
	resp := callTool(t, s, "photo_validate", map[string]interface{}{"path": path}, &second)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if second.Size.Width != 640 || second.Size.Height != 480 || second.Valid {
		t.Errorf("replaced file should be validated afresh: %+v", second.Size)
	}
}

func TestPhotoValidate_Rejected(t *testing.T) {
	s := newTestServer("nothing here")
	path := createTestImageFile(t, 640, 480, color.White)

	var report verify.Report
	resp := callTool(t, s, "photo_validate", map[string]interface{}{"path": path}, &report)
	if resp.Error != nil {
		t.Fatalf("a rejected photo is not a tool error: %v", resp.Error)
	}
	if report.Valid || report.Size.Valid || report.Copyright.Valid {
		t.Errorf("expected a rejected report: %+v", report)
	}
}

func TestPhotoValidate_UnreadableFile(t *testing.T) {
	s := newTestServer("© 学マス")
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var report verify.Report
	resp := callTool(t, s, "photo_validate", map[string]interface{}{"path": path}, &report)
	if resp.Error != nil {
		t.Fatalf("unreadable images should still produce a report: %v", resp.Error)
	}
	if report.Valid || report.Size.Width != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestPhotoValidate_Errors(t *testing.T) {
	s := newTestServer("")

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"missing file", map[string]interface{}{"path": "/nonexistent/photo.jpg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "photo_validate", tt.args, nil)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestImageDimensions(t *testing.T) {
	s := newTestServer("")
	path := createTestImageFile(t, 120, 90, color.Black)

	var dims imaging.Dimensions
	resp := callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if dims.Width != 120 || dims.Height != 90 || dims.Format != "png" {
		t.Errorf("dimensions: got %+v", dims)
	}
}

func TestImageCropRegion_DefaultRegion(t *testing.T) {
	s := newTestServer("")
	path := createTestImageFile(t, 200, 100, color.White)

	var crop imaging.CropResult
	resp := callTool(t, s, "image_crop_region", map[string]interface{}{"path": path}, &crop)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	// Bottom-left band: 30% of 200 by 20% of 100, starting at y=80
	if crop.X != 0 || crop.Y != 80 || crop.Width != 60 || crop.Height != 20 {
		t.Errorf("crop: got x=%d y=%d %dx%d", crop.X, crop.Y, crop.Width, crop.Height)
	}
	if crop.MimeType != "image/png" {
		t.Errorf("MimeType: got %s", crop.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(crop.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if dims, err := imaging.ProbeDimensions(data); err != nil || dims.Width != 60 {
		t.Errorf("decoded crop: %+v, %v", dims, err)
	}
}

func TestImageCropRegion_ExplicitRegionAndScale(t *testing.T) {
	s := newTestServer("")
	path := createTestImageFile(t, 200, 100, color.White)

	var crop imaging.CropResult
	resp := callTool(t, s, "image_crop_region", map[string]interface{}{
		"path": path, "x": 0.5, "y": 0, "width": 0.5, "height": 0.5, "scale": 2.0,
	}, &crop)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if crop.X != 100 || crop.Y != 0 || crop.Width != 200 || crop.Height != 100 {
		t.Errorf("crop: got x=%d y=%d %dx%d", crop.X, crop.Y, crop.Width, crop.Height)
	}
}

func TestImageCropRegion_InvalidRegion(t *testing.T) {
	s := newTestServer("")
	path := createTestImageFile(t, 200, 100, color.White)

	resp := callTool(t, s, "image_crop_region", map[string]interface{}{
		"path": path, "x": 0.9, "width": 0.5,
	}, nil)
	if resp.Error == nil {
		t.Fatal("expected error for a region past the right edge")
	}
}

func TestImageOCRRegion(t *testing.T) {
	s := newTestServer("  © 学マス\n")
	path := createTestImageFile(t, 400, 300, color.White)

	var result OCRRegionResult
	resp := callTool(t, s, "image_ocr_region", map[string]interface{}{
		"path":      path,
		"languages": []string{"en"},
	}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if result.Text != "  © 学マス\n" {
		t.Errorf("Text should be the raw engine output, got %q", result.Text)
	}
	if result.Engine != "static" {
		t.Errorf("Engine: got %s", result.Engine)
	}
	if result.Region != imaging.BottomLeftBand {
		t.Errorf("Region: got %+v", result.Region)
	}
	if result.Width != 120 || result.Height != 60 {
		t.Errorf("crop size: got %dx%d", result.Width, result.Height)
	}
	if len(result.Languages) != 1 || result.Languages[0] != "en" {
		t.Errorf("Languages: got %v", result.Languages)
	}
}

func TestImageOCRRegion_Preprocess(t *testing.T) {
	s := newTestServer("text")
	path := createTestImageFile(t, 400, 300, color.White)

	var result OCRRegionResult
	resp := callTool(t, s, "image_ocr_region", map[string]interface{}{
		"path":       path,
		"preprocess": true,
	}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	// The reported size is the crop, not the upscaled OCR input
	if result.Width != 120 || result.Height != 60 {
		t.Errorf("crop size: got %dx%d, want 120x60", result.Width, result.Height)
	}
	if !result.Preprocessed {
		t.Error("Preprocessed should be set")
	}
	if len(result.Languages) != 2 {
		t.Errorf("default languages expected, got %v", result.Languages)
	}
}

func TestImageOCRRegion_BadLanguage(t *testing.T) {
	s := newTestServer("")
	path := createTestImageFile(t, 40, 30, color.White)

	resp := callTool(t, s, "image_ocr_region", map[string]interface{}{
		"path":      path,
		"languages": []string{"not a tag!"},
	}, nil)
	if resp.Error == nil {
		t.Fatal("expected error for an invalid language tag")
	}
}

func TestCaptionMatch(t *testing.T) {
	s := newTestServer("")

	var res match.Result
	resp := callTool(t, s, "caption_match", map[string]interface{}{"text": "© GAKUMASU"}, &res)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if !res.Matched || res.Pattern != "venue-en" {
		t.Errorf("unexpected result: %+v", res)
	}

	res = match.Result{}
	callTool(t, s, "caption_match", map[string]interface{}{"text": "gakumasv"}, &res)
	if res.Matched {
		t.Error("exact matching should reject a misread")
	}

	res = match.Result{}
	callTool(t, s, "caption_match", map[string]interface{}{"text": "gakumasv", "max_edits": 1}, &res)
	if !res.Matched || !res.Fuzzy || res.Distance != 1 {
		t.Errorf("fuzzy match expected: %+v", res)
	}
}

func TestExecuteTool_Unknown(t *testing.T) {
	s := newTestServer("")
	resp := callTool(t, s, "image_edge_detect", map[string]interface{}{}, nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer("")
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestRegionArgs_Resolve(t *testing.T) {
	half := 0.5
	got := regionArgs{Width: &half}.resolve(imaging.BottomLeftBand)
	want := imaging.Region{X: 0, Y: 0.8, Width: 0.5, Height: 0.2}
	if got != want {
		t.Errorf("resolve: got %+v, want %+v", got, want)
	}
}
