// Package logger provides structured logging over zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  components:
//	    session: "debug"
//
// Usage:
//
//	log := logger.Get("session")
//	log.Info("listening", logger.Fields(logger.FieldLocale, "en_US"))
package logger
