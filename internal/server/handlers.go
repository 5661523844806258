package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/mask-overlay/internal/config"
	"github.com/ironsheep/mask-overlay/internal/detection"
	"github.com/ironsheep/mask-overlay/internal/imaging"
	"github.com/ironsheep/mask-overlay/internal/labels"
	"github.com/ironsheep/mask-overlay/internal/segment"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "segment_render").
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
		s.log.Warn(logModule, "tool %s: %v", params.Name, err)
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "segment_render":
		return s.handleSegmentRender(args)
	case "segment_inspect":
		return s.handleSegmentInspect(args)
	case "segment_metrics":
		return s.handleSegmentMetrics()
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

// === Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// === Segmentation Handlers ===

// overrideArgs are the per-call tweaks accepted by the rendering tools.
type overrideArgs struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	MaskThreshold       *float64 `json:"mask_threshold,omitempty"`
	OverlayColor        *string  `json:"overlay_color,omitempty"`
	OverlayAlpha        *float64 `json:"overlay_alpha,omitempty"`
	ClampBoxes          *bool    `json:"clamp_boxes,omitempty"`
}

func (o overrideArgs) apply(cfg config.Config) (config.Config, error) {
	if o.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.MaskThreshold != nil {
		cfg.MaskThreshold = *o.MaskThreshold
	}
	if o.OverlayColor != nil {
		cfg.OverlayColor = *o.OverlayColor
	}
	if o.OverlayAlpha != nil {
		cfg.OverlayAlpha = *o.OverlayAlpha
	}
	if o.ClampBoxes != nil {
		cfg.ClampBoxes = *o.ClampBoxes
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadLabels(path string) (*labels.Table, error) {
	if path == "" {
		return nil, nil
	}
	return labels.Load(path)
}

func errorStrings(errs []*segment.InstanceError) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

type segmentRenderArgs struct {
	overrideArgs
	Image      string `json:"image"`
	Detections string `json:"detections"`
	Labels     string `json:"labels"`
	OutDir     string `json:"out_dir"`
}

// renderResult is the JSON form of a segment.Report.
type renderResult struct {
	*segment.Report
	Errors         []string `json:"errors,omitempty"`
	CompositeError string   `json:"composite_error,omitempty"`
}

func (s *Server) handleSegmentRender(args json.RawMessage) (interface{}, error) {
	var a segmentRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Image == "" || a.Detections == "" || a.OutDir == "" {
		return nil, fmt.Errorf("image, detections and out_dir are required")
	}
	cfg, err := a.apply(s.cfg)
	if err != nil {
		return nil, err
	}

	base, err := s.cache.Load(a.Image)
	if err != nil {
		return nil, err
	}
	file, err := detection.ReadFile(a.Detections)
	if err != nil {
		return nil, err
	}
	table, err := loadLabels(a.Labels)
	if err != nil {
		return nil, err
	}
	sink, err := segment.NewDirSink(a.OutDir, cfg)
	if err != nil {
		return nil, err
	}
	p, err := segment.New(cfg, table, sink, segment.WithMetrics(s.metrics), segment.WithLogger(s.log))
	if err != nil {
		return nil, err
	}

	rep, err := p.Run(context.Background(), imaging.NewCanvas(base), file.Width, file.Height, file.Detections)
	if err != nil {
		return nil, err
	}

	s.cache.Evict(rep.Composite)
	for _, inst := range rep.Instances {
		s.cache.Evict(inst.Artifact)
	}

	res := &renderResult{Report: rep, Errors: errorStrings(rep.Errors)}
	if rep.CompositeErr != nil {
		res.CompositeError = rep.CompositeErr.Error()
	}
	return res, nil
}

type segmentInspectArgs struct {
	overrideArgs
	Detections string `json:"detections"`
	Labels     string `json:"labels"`
	Image      string `json:"image"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

type inspectInstance struct {
	Index      int                `json:"index"`
	ClassID    int                `json:"class_id"`
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Box        detection.PixelBox `json:"box"`
	MaskPixels int                `json:"mask_pixels"`
	Errors     []string           `json:"errors,omitempty"`
}

type inspectResult struct {
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Seen      int               `json:"seen"`
	Accepted  int               `json:"accepted"`
	Instances []inspectInstance `json:"instances"`
}

// handleSegmentInspect resolves geometry the same way segment_render does
// but draws and writes nothing. The target size comes from width/height,
// then the detections file, then the image.
func (s *Server) handleSegmentInspect(args json.RawMessage) (interface{}, error) {
	var a segmentInspectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := a.apply(s.cfg)
	if err != nil {
		return nil, err
	}
	file, err := detection.ReadFile(a.Detections)
	if err != nil {
		return nil, err
	}

	w, h := a.Width, a.Height
	if w <= 0 || h <= 0 {
		w, h = file.Width, file.Height
	}
	if (w <= 0 || h <= 0) && a.Image != "" {
		img, err := s.cache.Load(a.Image)
		if err != nil {
			return nil, err
		}
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image size unknown: pass width and height, or image")
	}

	table, err := loadLabels(a.Labels)
	if err != nil {
		return nil, err
	}
	p, err := segment.New(cfg, table, segment.NewMemorySink(), segment.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	insts, err := p.Plan(context.Background(), w, h, file.Detections)
	if err != nil {
		return nil, err
	}

	res := &inspectResult{
		Width:     w,
		Height:    h,
		Seen:      len(file.Detections),
		Accepted:  len(insts),
		Instances: make([]inspectInstance, len(insts)),
	}
	for i, inst := range insts {
		ii := inspectInstance{
			Index:      inst.Index,
			ClassID:    inst.ClassID,
			Label:      inst.Label,
			Confidence: inst.Confidence,
			Box:        inst.Box,
			MaskPixels: inst.Mask.Count(),
		}
		for _, e := range inst.Errs {
			ii.Errors = append(ii.Errors, e.Error())
		}
		res.Instances[i] = ii
	}
	return res, nil
}

func (s *Server) handleSegmentMetrics() (interface{}, error) {
	var buf bytes.Buffer
	if err := s.metrics.WriteText(&buf); err != nil {
		return nil, err
	}
	return map[string]string{"text": buf.String()}, nil
}
