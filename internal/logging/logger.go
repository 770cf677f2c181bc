package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a structured logger. Debug enables the development
// encoder and debug level; otherwise the production config is used.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// WithOperation enriches the logger with operation and submission identifiers.
func WithOperation(logger *zap.Logger, operation, submissionID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if submissionID != "" {
		fields = append(fields, zap.String("submission_id", submissionID))
	}
	return logger.With(fields...)
}
