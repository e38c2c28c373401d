package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// Debug logs a debug message (no-op).
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info logs an info message (no-op).
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn logs a warning message (no-op).
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error logs an error message (no-op).
func (n *NoOpLogger) Error(msg string, args ...any) {}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

type ConsoleLogger struct {
	prefix string
}

func (cl *ConsoleLogger) print(level, msg string, args []any) {
	fmt.Printf("[%s] %s: %s", level, cl.prefix, msg)
	if len(args) > 0 {
		fmt.Printf(" %v", args)
	}
	fmt.Println()
}

// Debug logs a debug message to console.
func (cl *ConsoleLogger) Debug(msg string, args ...any) {
	cl.print("DEBUG", msg, args)
}

// Info logs an info message to console.
func (cl *ConsoleLogger) Info(msg string, args ...any) {
	cl.print("INFO", msg, args)
}

// Warn logs a warning message to console.
func (cl *ConsoleLogger) Warn(msg string, args ...any) {
	cl.print("WARN", msg, args)
}

// Error logs an error message to console.
func (cl *ConsoleLogger) Error(msg string, args ...any) {
	cl.print("ERROR", msg, args)
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(prefix string) Logger {
	return &ConsoleLogger{prefix: prefix}
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a Logger writing to l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

// Debug logs a debug message.
func (sl *SlogLogger) Debug(msg string, args ...any) {
	sl.logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs an info message.
func (sl *SlogLogger) Info(msg string, args ...any) {
	sl.logger.Log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (sl *SlogLogger) Warn(msg string, args ...any) {
	sl.logger.Log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs an error message.
func (sl *SlogLogger) Error(msg string, args ...any) {
	sl.logger.Log(context.Background(), slog.LevelError, msg, args...)
}

// JSONMarshaller is a marshaller that uses the standard JSON library.
type JSONMarshaller struct{}

// Marshal serializes a value to JSON.
func (jm *JSONMarshaller) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a value from JSON.
func (jm *JSONMarshaller) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewJSONMarshaller creates a new JSON marshaller.
func NewJSONMarshaller() Marshaller {
	return &JSONMarshaller{}
}

// NewLocalCacheFactory returns the factory for config.Policy.
func NewLocalCacheFactory(config LocalCacheConfig) (LocalCacheFactory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Policy == PolicyLRU {
		return NewLRUCacheFactory(config.MaxSize), nil
	}
	return NewLFUCacheFactory(config), nil
}
