// Package logging builds the zap logger used by every command.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ezerfernandes/trypub/internal/config"
)

// New returns a logger writing to w. Format is "console" or "json".
func New(cfg config.LogConfig, w io.Writer) (*zap.Logger, error) {
	level := zapcore.InfoLevel

	if len(cfg.Level) != 0 {
		var err error

		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}

	var encoder zapcore.Encoder

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		enc.CallerKey = zapcore.OmitKey
		encoder = zapcore.NewConsoleEncoder(enc)
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)

	return zap.New(core), nil
}
