package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/suggestion-box/internal/events"
	"github.com/spec-kit/suggestion-box/internal/notify"
)

const sendTimeout = 30 * time.Second

// NotificationService turns suggestion events into emails. Sends run in
// the background so the publishing request never waits on the mail relay.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	logger     *zap.Logger
	inflight   sync.WaitGroup
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSuggestionSubmitted, n.handleSuggestionSubmitted)
	n.dispatcher.Subscribe(events.EventSuggestionStatusChanged, n.handleSuggestionStatusChanged)
}

// Wait blocks until every background send has finished.
func (n *NotificationService) Wait() {
	n.inflight.Wait()
}

func (n *NotificationService) handleSuggestionSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SuggestionSubmittedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	msg, err := notify.SubmittedMessage(payload.Suggestion.DepartmentHead, payload.Suggestion)
	if err != nil {
		return err
	}
	n.dispatch(ctx, event, msg)
	return nil
}

func (n *NotificationService) handleSuggestionStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SuggestionStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if !payload.NewStatus.Final() {
		return nil
	}
	msg, err := notify.StatusMessage(payload.Suggestion)
	if err != nil {
		return err
	}
	n.dispatch(ctx, event, msg)
	return nil
}

func (n *NotificationService) dispatch(ctx context.Context, event events.Event, msg notify.Message) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		defer cancel()
		if err := n.notifier.Send(sendCtx, msg); err != nil {
			n.logger.Error("email send failed",
				zap.String("event_type", string(event.Type)),
				zap.String("suggestion_id", event.SuggestionID),
				zap.Strings("to", msg.To),
				zap.Error(err))
			return
		}
		n.logger.Info("email sent",
			zap.String("event_type", string(event.Type)),
			zap.String("suggestion_id", event.SuggestionID),
			zap.Strings("to", msg.To))
	}()
}
