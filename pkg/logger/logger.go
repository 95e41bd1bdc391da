package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry written by New.
const ServiceName = "engage"

// Logger wraps zap logger
type Logger struct {
	*zap.Logger
}

// Options selects level, encoding and destination.
type Options struct {
	Level string
	// Development switches to a colored console encoder.
	Development bool
	// Output defaults to stdout.
	Output zapcore.WriteSyncer
}

// New creates a JSON logger writing to stdout at the given level.
func New(level string) (*Logger, error) {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions builds a logger from opts.
func NewWithOptions(opts Options) (*Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if opts.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	out := opts.Output
	if out == nil {
		out = zapcore.AddSync(os.Stdout)
	}

	zapLogger := zap.New(
		zapcore.NewCore(encoder, out, ParseLevel(opts.Level)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).With(zap.String("service", ServiceName))

	return &Logger{Logger: zapLogger}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// ParseLevel maps a textual level to zapcore.Level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	switch normalized := strings.ToLower(strings.TrimSpace(level)); normalized {
	case "warning":
		return zapcore.WarnLevel
	default:
		if err := l.UnmarshalText([]byte(normalized)); err != nil || normalized == "" {
			return zapcore.InfoLevel
		}
	}
	return l
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(zap.Any(key, value))}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		zapFields = append(zapFields, zap.Any(key, value))
	}
	return &Logger{Logger: l.Logger.With(zapFields...)}
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(zap.Error(err))}
}

// WithRequest tags entries with the request ID and, for authenticated calls, the acting user.
// A zero userID is left out.
func (l *Logger) WithRequest(requestID string, userID int64) *Logger {
	fields := make([]zap.Field, 0, 2)
	if requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID != 0 {
		fields = append(fields, zap.Int64("user_id", userID))
	}
	if len(fields) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(fields...)}
}
