package mylog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MarcGrol/storefront/lib/mycontext"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newZapLogger
	}
}

var (
	baseOnce sync.Once
	base     *zap.Logger
)

func baseLogger() *zap.Logger {
	baseOnce.Do(func() {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
		l, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
		}
		base = l
	})
	return base
}

type zapLogger struct {
	logger *zap.Logger
}

func newZapLogger(component string) Logger {
	return zapLogger{
		logger: baseLogger().Named(component),
	}
}

func (l zapLogger) Log(c context.Context, traceLabel string, severity Severity, format string, a ...any) {
	fields := []zap.Field{zap.String("aggregate", traceLabel)}
	if trace := mycontext.TraceFromContext(c); trace != "" {
		fields = append(fields, zap.String("trace", trace))
	}

	msg := fmt.Sprintf(format, a...)
	switch severity {
	case SeverityDebug:
		l.logger.Debug(msg, fields...)
	case SeverityWarn:
		l.logger.Warn(msg, fields...)
	case SeverityError:
		l.logger.Error(msg, fields...)
	default:
		l.logger.Info(msg, fields...)
	}
}
