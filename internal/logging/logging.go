package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. mode "production" gives JSON output at info;
// anything else gives the colored development console logger.
func New(mode string) (*zap.Logger, error) {
	if strings.EqualFold(mode, "production") {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}
