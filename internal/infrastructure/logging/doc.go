// Package logging provides structured logging for the ecoNET bridge.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same default fields (service, version) and level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("econet").Info("bridge started", "uid", uid)
//
// *Logger satisfies the small Logger interfaces declared by the econet,
// entity and mqtt packages (Debug/Info/Warn/Error with key-value pairs).
//
// Never log secrets, tokens or passwords.
package logging
