// Package log provides the event journal for the hybrid mesh node.
//
// This package defines the Logger interface and Event types for capturing
// mesh events at multiple layers (link, driver, service). It is separate
// from operational logging (slog): the journal is a complete
// machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure a journal by providing a Logger implementation:
//
//	// For development: log to console via slog
//	journal := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	journal, _ := log.NewFileLogger("/var/log/mesh/node.mlog")
//
//	// Both: use MultiLogger
//	journal := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// A Recorder copies every event bus event into a Logger.
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Link: Raw frame bytes (FrameEvent)
//   - Service: Discovery updates (DiscoveryData), state changes
//     (StateChangeEvent) and received data (DataEventData)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files use CBOR encoding with .mlog extension. The mesh-log CLI tool
// provides viewing, filtering, and export capabilities.
package log
