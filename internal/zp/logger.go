package zp

// Logger is the structured logging surface the workflow and its
// collaborators write to. args are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger drops every record.
type NopLogger struct{}

var _ Logger = NopLogger{}

// NewNopLogger returns a Logger that discards all output.
func NewNopLogger() Logger { return NopLogger{} }

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
