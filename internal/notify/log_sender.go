package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender 只记录日志的发送实现，渠道未配置时使用
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender 创建日志发送器
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send 记录消息摘要
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification (not delivered, channel not configured)",
		zap.String("channel", string(msg.Channel)),
		zap.String("event", msg.Event),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
