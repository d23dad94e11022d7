package notify

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/suggestion-box/internal/config"
	"github.com/spec-kit/suggestion-box/internal/observability"
)

// New builds the transport selected by cfg.Driver, wrapped with metrics.
// For SMTP the relay is probed once and the outcome logged; a failed probe
// does not stop startup.
func New(cfg config.MailConfig, logger *zap.Logger, metrics *observability.Metrics) (Notifier, error) {
	logger = logger.Named("mail")
	var n Notifier
	switch cfg.Driver {
	case config.MailSMTP:
		smtp := NewSMTPNotifier(cfg, logger)
		if err := smtp.Verify(); err != nil {
			logger.Error("mail transport not ready", zap.Error(err))
		} else {
			logger.Info("mail transport ready", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		}
		n = smtp
	case config.MailSendgrid:
		n = NewSendgridNotifier(cfg)
	case config.MailLog:
		logger.Warn("no mail transport configured; messages are logged only")
		n = NewLogNotifier(logger)
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
	return Instrument(n, cfg.Driver, metrics), nil
}
