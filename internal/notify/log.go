package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes messages to the logger instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier is used when no mail transport is configured.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(_ context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	l.logger.Info("mail",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
