// Package logger 基于 zap 构建结构化日志器。
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 根据运行环境创建日志器。
// prod 环境默认 JSON 编码，其余环境默认 console 编码；encoding 非空时覆盖默认值。
func New(env, level, encoding, name, version string) (*zap.Logger, error) {
	atomicLevel := zap.NewAtomicLevel()
	if err := atomicLevel.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		atomicLevel.SetLevel(zapcore.InfoLevel)
	}

	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = atomicLevel
	cfg.DisableStacktrace = env == "prod"

	if encoding = strings.TrimSpace(encoding); encoding != "" {
		cfg.Encoding = encoding
		if encoding == "json" {
			cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		}
	}

	lg, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return lg.With(zap.String("app", name), zap.String("version", version), zap.String("env", env)), nil
}
