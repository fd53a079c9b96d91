// Package logger provides a structured logging interface for stacsearch.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - Optional file output
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "stacsearch/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/stacsearch.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Search started")
//	logger.WithField("collection", "landsat-8-l1").Info("Counting matches")
//	logger.WithError(err).Error("Search request failed")
//
// Advanced Usage:
//
//	// Create a logger instance with bound fields
//	log := logger.GetLogger().
//	    WithField("component", "searcher")
//
//	// Use structured logging
//	log.InfoWithFields("page fetched", map[string]interface{}{
//	    "page":     2,
//	    "returned": 100,
//	    "found":    2312,
//	})
package logger
