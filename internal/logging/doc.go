// Package logging provides structured logging with per-module log levels.
//
// Initialize once at startup, then ask for module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{"device": "debug"},
//	})
//	logger := logging.GetLogger("stream").With("stream", cfg.Name)
//
// Records go to stderr as text or JSON. When journald is listening they are
// also sent to the journal under the identifier "zmqls":
//
//	journalctl -t zmqls MODULE=stream STREAM=cam1
package logging
