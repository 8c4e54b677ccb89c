// Package server implements the MCP (Model Context Protocol) server for photo
// verification tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the venue photo
// checks to MCP-compatible clients, so an assistant can validate a photo or
// inspect why a photo was rejected.
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
//   - photo_validate: Full size and caption check, returns the report
//   - image_dimensions: Width, height and format from the file header
//   - image_crop_region: Proportional crop as base64 PNG
//   - image_ocr_region: Raw recognized text of a proportional region
//   - caption_match: Test text against the accepted caption patterns
//
// Region arguments are fractions of the image size; omitted values fall back
// to the configured watermark region.
//
// # Image Caching
//
// File contents are cached by path and reused across tool calls. The cache
// persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A rejected photo is not an error: photo_validate returns the report with
// valid set to false.
package server
