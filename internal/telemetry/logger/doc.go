// Package logger provides structured logging for snapmesh on log/slog.
//
// Every logger built by New shares one slog.LevelVar, so SetLevel
// retunes the whole process when the configuration file is reloaded.
// Context helpers carry the logger, the session ID and the admin request
// ID. Throttle wraps a logger for hot paths such as datagram drops.
package logger
