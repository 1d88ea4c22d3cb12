package adapters

import (
	"io"

	"github.com/rs/zerolog"
)

// ZerologLoggerAdapter implements LoggerAdapter on top of a zerolog.Logger.
// Messages are printf-formatted; a trailing map[string]any argument is
// attached as structured fields instead of being formatted.
type ZerologLoggerAdapter struct {
	logger zerolog.Logger
}

// Ensure ZerologLoggerAdapter implements LoggerAdapter interface
var _ LoggerAdapter = (*ZerologLoggerAdapter)(nil)

// NewZerologLoggerAdapter wraps an existing zerolog logger.
func NewZerologLoggerAdapter(logger zerolog.Logger) *ZerologLoggerAdapter {
	return &ZerologLoggerAdapter{logger: logger}
}

// NewConsoleLoggerAdapter writes to w at the given level, tagged with the component name.
func NewConsoleLoggerAdapter(w io.Writer, level LogLevel, component string) *ZerologLoggerAdapter {
	logger := zerolog.New(w).Level(ZerologLevel(level)).With().Timestamp().Str("component", component).Logger()
	return &ZerologLoggerAdapter{logger: logger}
}

// ZerologLevel converts a LogLevel to the matching zerolog level.
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelNone:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the underlying zerolog logger.
func (z *ZerologLoggerAdapter) Logger() zerolog.Logger {
	return z.logger
}

func (z *ZerologLoggerAdapter) Debug(message string, args ...any) {
	z.emit(z.logger.Debug(), message, args)
}

func (z *ZerologLoggerAdapter) Info(message string, args ...any) {
	z.emit(z.logger.Info(), message, args)
}

func (z *ZerologLoggerAdapter) Warn(message string, args ...any) {
	z.emit(z.logger.Warn(), message, args)
}

func (z *ZerologLoggerAdapter) Error(message string, args ...any) {
	z.emit(z.logger.Error(), message, args)
}

func (z *ZerologLoggerAdapter) emit(evt *zerolog.Event, message string, args []any) {
	if evt == nil {
		return
	}
	if n := len(args); n > 0 {
		if fields, ok := args[n-1].(map[string]any); ok {
			evt = evt.Fields(fields)
			args = args[:n-1]
		}
	}
	if len(args) == 0 {
		evt.Msg(message)
		return
	}
	evt.Msgf(message, args...)
}
