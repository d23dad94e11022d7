package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/suggestion-box/internal/config"
)

// SMTPNotifier sends mail through an authenticated SMTP relay.
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPNotifier builds a notifier for cfg. Port 465 always uses implicit TLS.
func NewSMTPNotifier(cfg config.MailConfig, logger *zap.Logger) *SMTPNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.Secure {
		d.SSL = true
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPNotifier{dialer: d, from: from, logger: logger}
}

// Verify dials the relay once and reports whether it accepted the session.
func (s *SMTPNotifier) Verify() error {
	conn, err := s.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp verify %s:%d: %w", s.dialer.Host, s.dialer.Port, err)
	}
	return conn.Close()
}

// Send delivers msg and returns when delivery finishes or ctx is done,
// whichever comes first. gomail cannot be interrupted, so on cancellation
// the delivery goroutine is left to fail on its own.
func (s *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send %q: %w", msg.Subject, err)
		}
	case <-ctx.Done():
		s.logger.Warn("smtp relay did not answer in time; abandoning delivery",
			zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
		return fmt.Errorf("smtp send %q: %w", msg.Subject, ctx.Err())
	}
	s.logger.Debug("mail sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
