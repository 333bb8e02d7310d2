package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the default slog logger.
// LOG_LEVEL: debug, info, warn, error (default: info)
// LOG_FORMAT: text, json (default: text)
func Init() {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func Info(event string, fields map[string]interface{}) {
	slog.Info(event, args(fields)...)
}

func Warn(event string, fields map[string]interface{}) {
	slog.Warn(event, args(fields)...)
}

func Error(event string, err error, fields map[string]interface{}) {
	attrs := args(fields)
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	slog.Error(event, attrs...)
}

func args(fields map[string]interface{}) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
