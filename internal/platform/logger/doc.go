// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured
// logging with configurable level and output format. Log records go to
// stderr so they never interleave with rendered analysis output on stdout.
package logger
