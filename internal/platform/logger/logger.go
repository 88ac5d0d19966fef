// Package logger configures the process-wide zerolog logger and carries
// request-scoped loggers through context.Context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	once         sync.Once
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Init sets up the global logger once. Output always goes to stdout and is
// also appended to filePath when it is set.
func Init(level, filePath string) zerolog.Logger {
	once.Do(func() {
		writers := []io.Writer{os.Stdout}
		if filePath != "" {
			file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
			if err != nil {
				os.Stderr.WriteString("failed to open log file: " + err.Error() + "\n")
			} else {
				writers = append(writers, file)
			}
		}

		logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
		globalLogger = logger.Level(ParseLevel(level))
		log.Logger = globalLogger
	})
	return globalLogger
}

// ParseLevel maps a LOG_LEVEL value onto a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// WithFields returns a context whose logger carries fields in addition to the
// ones already attached to ctx.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	l := FromContext(ctx).With().Fields(fields).Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &globalLogger
	}
	return l
}
