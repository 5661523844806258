package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
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

	path := filepath.Join(t.TempDir(), "base.png")
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

// writeTestFile writes content to name inside a temp dir and returns the path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const oneDetection = `{"detections": [{"class_id": 0, "confidence": 0.9,
	"box": [0.2, 0.2, 0.6, 0.6],
	"masks": [{"width": 2, "height": 2, "data": [1, 1, 1, 1]}]}]}`

// callTool runs a tools/call request and returns the text content or the
// JSON-RPC error.
func callTool(t *testing.T, s *Server, name string, args interface{}) (string, *MCPError) {
	t.Helper()

	params := map[string]interface{}{"name": name, "arguments": args}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	return text, nil
}

func mustCallTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) {
	t.Helper()
	text, mcpErr := callTool(t, s, name, args)
	if mcpErr != nil {
		t.Fatalf("%s: %s: %v", name, mcpErr.Message, mcpErr.Data)
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("%s: decode result: %v\n%s", name, err, text)
	}
}

type sampleResult struct {
	Hex string `json:"hex"`
}

type renderOutput struct {
	Seen      int `json:"seen"`
	Accepted  int `json:"accepted"`
	Instances []struct {
		Index    int    `json:"index"`
		Label    string `json:"label"`
		Blended  int    `json:"blended_pixels"`
		Artifact string `json:"artifact"`
		Box      struct {
			StartX int `json:"start_x"`
			EndX   int `json:"end_x"`
		} `json:"box"`
	} `json:"instances"`
	Composite string   `json:"composite"`
	Errors    []string `json:"errors"`
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}
	mustCallTool(t, s, "image_load", map[string]interface{}{"path": imgPath}, &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageSampleColor(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 10, 10, color.RGBA{0, 128, 255, 255})

	var res sampleResult
	mustCallTool(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 5, "y": 5}, &res)
	if res.Hex != "#0080FF" {
		t.Errorf("hex: got %s, want #0080FF", res.Hex)
	}

	_, mcpErr := callTool(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 50, "y": 5})
	if mcpErr == nil {
		t.Error("expected error for out-of-bounds coordinates")
	}
}

func TestHandleToolsCall_SegmentRender(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 200, 200, color.White)
	detPath := writeTestFile(t, "dets.json", oneDetection)
	labelPath := writeTestFile(t, "labels.txt", "person\nbicycle\n")
	outDir := filepath.Join(t.TempDir(), "out")

	var res renderOutput
	mustCallTool(t, s, "segment_render", map[string]interface{}{
		"image":      imgPath,
		"detections": detPath,
		"labels":     labelPath,
		"out_dir":    outDir,
	}, &res)

	if res.Seen != 1 || res.Accepted != 1 {
		t.Fatalf("seen/accepted: got %d/%d, want 1/1", res.Seen, res.Accepted)
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
	inst := res.Instances[0]
	if inst.Label != "person: 0.9000" {
		t.Errorf("label: got %q", inst.Label)
	}
	if inst.Box.StartX != 40 || inst.Box.EndX != 120 {
		t.Errorf("box x: got %d..%d, want 40..120", inst.Box.StartX, inst.Box.EndX)
	}
	if inst.Artifact != filepath.Join(outDir, "segmented0.png") {
		t.Errorf("artifact: got %s", inst.Artifact)
	}
	if res.Composite != filepath.Join(outDir, "result.png") {
		t.Errorf("composite: got %s", res.Composite)
	}

	var px sampleResult
	mustCallTool(t, s, "image_sample_color", map[string]interface{}{"path": res.Composite, "x": 80, "y": 80}, &px)
	if px.Hex != "#FF9999" {
		t.Errorf("composite (80,80): got %s, want #FF9999", px.Hex)
	}
	mustCallTool(t, s, "image_sample_color", map[string]interface{}{"path": inst.Artifact, "x": 40, "y": 40}, &px)
	if px.Hex != "#FFFFFF" {
		t.Errorf("crop (40,40): got %s, want #FFFFFF", px.Hex)
	}

	// A second render over the same files must not be served from cache.
	mustCallTool(t, s, "segment_render", map[string]interface{}{
		"image":         imgPath,
		"detections":    detPath,
		"out_dir":       outDir,
		"overlay_color": "#0000FF",
	}, &res)
	mustCallTool(t, s, "image_sample_color", map[string]interface{}{"path": res.Composite, "x": 80, "y": 80}, &px)
	if px.Hex != "#9999FF" {
		t.Errorf("composite after re-render: got %s, want #9999FF", px.Hex)
	}
	// No label file: the class renders as unknown and is reported.
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "missing label") {
		t.Errorf("errors: got %v, want one missing label", res.Errors)
	}
}

func TestHandleToolsCall_SegmentRenderBelowThreshold(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 50, 50, color.White)
	detPath := writeTestFile(t, "dets.json", oneDetection)
	outDir := t.TempDir()

	var res renderOutput
	mustCallTool(t, s, "segment_render", map[string]interface{}{
		"image":                imgPath,
		"detections":           detPath,
		"out_dir":              outDir,
		"confidence_threshold": 0.95,
	}, &res)

	if res.Accepted != 0 || len(res.Instances) != 0 {
		t.Errorf("accepted: got %d (%d instances), want 0", res.Accepted, len(res.Instances))
	}
	if _, err := os.Stat(filepath.Join(outDir, "segmented0.png")); !os.IsNotExist(err) {
		t.Errorf("no crop expected, stat err = %v", err)
	}
}

func TestHandleToolsCall_SegmentRenderErrors(t *testing.T) {
	imgPath := createTestImageFile(t, 50, 50, color.White)
	detPath := writeTestFile(t, "dets.json", oneDetection)
	outDir := t.TempDir()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing out_dir", map[string]interface{}{"image": imgPath, "detections": detPath}},
		{"missing image", map[string]interface{}{"image": "/nonexistent.png", "detections": detPath, "out_dir": outDir}},
		{"missing detections", map[string]interface{}{"image": imgPath, "detections": "/nonexistent.json", "out_dir": outDir}},
		{"missing labels", map[string]interface{}{"image": imgPath, "detections": detPath, "labels": "/nonexistent.txt", "out_dir": outDir}},
		{"bad alpha", map[string]interface{}{"image": imgPath, "detections": detPath, "out_dir": outDir, "overlay_alpha": 2.0}},
		{"bad color", map[string]interface{}{"image": imgPath, "detections": detPath, "out_dir": outDir, "overlay_color": "red"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			_, mcpErr := callTool(t, s, "segment_render", tt.args)
			if mcpErr == nil {
				t.Fatal("expected error")
			}
			if mcpErr.Code != -32000 {
				t.Errorf("code: got %d, want -32000", mcpErr.Code)
			}
		})
	}
}

func TestHandleToolsCall_SegmentInspect(t *testing.T) {
	s := newTestServer(t)
	detPath := writeTestFile(t, "dets.json", `{"width": 200, "height": 200, "detections": [
		{"class_id": 0, "confidence": 0.9, "box": [0.2, 0.2, 0.6, 0.6],
		 "masks": [{"width": 2, "height": 1, "data": [0.1, 0.9]}]},
		{"class_id": 0, "confidence": 0.1, "box": [0, 0, 1, 1],
		 "masks": [{"width": 1, "height": 1, "data": [1]}]},
		{"class_id": 0, "confidence": 0.8, "box": [0.5, 0.5, 0.5, 0.7],
		 "masks": [{"width": 1, "height": 1, "data": [1]}]}]}`)
	labelPath := writeTestFile(t, "labels.txt", "person\n")

	var res struct {
		Width     int `json:"width"`
		Seen      int `json:"seen"`
		Accepted  int `json:"accepted"`
		Instances []struct {
			Index      int      `json:"index"`
			Label      string   `json:"label"`
			MaskPixels int      `json:"mask_pixels"`
			Errors     []string `json:"errors"`
		} `json:"instances"`
	}
	mustCallTool(t, s, "segment_inspect", map[string]interface{}{"detections": detPath, "labels": labelPath}, &res)

	if res.Width != 200 || res.Seen != 3 || res.Accepted != 2 {
		t.Fatalf("got width=%d seen=%d accepted=%d", res.Width, res.Seen, res.Accepted)
	}
	if res.Instances[0].MaskPixels != 40*80 {
		t.Errorf("mask pixels: got %d, want %d", res.Instances[0].MaskPixels, 40*80)
	}
	if res.Instances[0].Label != "person: 0.9000" {
		t.Errorf("label: got %q", res.Instances[0].Label)
	}
	if res.Instances[1].Index != 1 || len(res.Instances[1].Errors) != 1 {
		t.Errorf("degenerate instance: %+v", res.Instances[1])
	} else if !strings.Contains(res.Instances[1].Errors[0], "invalid geometry") {
		t.Errorf("error: got %s", res.Instances[1].Errors[0])
	}
}

func TestHandleToolsCall_SegmentInspectSize(t *testing.T) {
	s := newTestServer(t)
	detPath := writeTestFile(t, "dets.json", oneDetection)
	imgPath := createTestImageFile(t, 100, 50, color.White)

	var res struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	mustCallTool(t, s, "segment_inspect", map[string]interface{}{"detections": detPath, "image": imgPath}, &res)
	if res.Width != 100 || res.Height != 50 {
		t.Errorf("size from image: got %dx%d", res.Width, res.Height)
	}

	mustCallTool(t, s, "segment_inspect", map[string]interface{}{"detections": detPath, "width": 30, "height": 20}, &res)
	if res.Width != 30 || res.Height != 20 {
		t.Errorf("explicit size: got %dx%d", res.Width, res.Height)
	}

	if _, mcpErr := callTool(t, s, "segment_inspect", map[string]interface{}{"detections": detPath}); mcpErr == nil {
		t.Error("expected error when size is unknown")
	}
}

func TestHandleToolsCall_SegmentMetrics(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 50, 50, color.White)
	detPath := writeTestFile(t, "dets.json", oneDetection)

	mustCallTool(t, s, "segment_render", map[string]interface{}{
		"image": imgPath, "detections": detPath, "out_dir": t.TempDir(),
	}, nil)

	var res struct {
		Text string `json:"text"`
	}
	mustCallTool(t, s, "segment_metrics", map[string]interface{}{}, &res)
	if !strings.Contains(res.Text, "mask_overlay_detections_accepted_total 1") {
		t.Errorf("metrics text missing accepted count:\n%s", res.Text)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	_, mcpErr := callTool(t, s, "image_ocr_full", map[string]interface{}{})
	if mcpErr == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(mcpErr.Data.(string), "unknown tool") {
		t.Errorf("data: got %v", mcpErr.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want -32602", resp.Error)
	}
}
