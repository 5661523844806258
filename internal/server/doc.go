// Package server exposes the mask overlay renderer as MCP (Model Context
// Protocol) tools.
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
//   - image_load: Load image and get metadata
//   - image_sample_color: Get color at pixel, e.g. to check an overlay
//   - segment_render: Render a detections file onto an image and write the
//     composite and per-instance crops to a directory
//   - segment_inspect: Resolve boxes and mask coverage without drawing
//   - segment_metrics: Render counters in Prometheus text format
//
// Rendering tools start from the server's configuration; each call may
// override thresholds, overlay color and alpha, and box clamping.
//
// # Image Caching
//
// Loaded images are cached by path for the lifetime of the process. Files
// written by segment_render are evicted from the cache so that a following
// image_sample_color sees the new pixels.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Per-instance problems during rendering are not errors; they are listed in
// the tool result.
//
// # Usage
//
//	srv := server.New(config.Default(), logger.New(logger.INFO, os.Stderr))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
