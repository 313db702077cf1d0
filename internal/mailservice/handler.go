package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/exp/rand"

	"github.com/sushihentaime/bloglist/internal/common"
)

const (
	notificationTemplate = "notification.tmpl"
	consumerName         = "bloglist-mailservice"
	maxRetries           = 5
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender, recipient string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:        mb,
		m:         NewMailer(host, port, username, password, sender, NewTemplate()),
		recipient: recipient,
		logger:    logger,
		baseDelay: 500 * time.Millisecond,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// NotifyCreated starts consuming the notification queue in the background.
// Every delivery is acknowledged once it has been mailed or given up on.
func (s *MailService) NotifyCreated() error {
	msgs, err := s.mb.Consume(common.NotificationQueue, consumerName)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event common.Event
				err := json.Unmarshal(msg.Body, &event)
				if err != nil {
					s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
					msg.Ack(false)
					continue
				}

				s.deliver(event)
				msg.Ack(false)

			case <-s.ctx.Done():
				s.logger.Info("stopping NotifyCreated due to context cancellation")
				return
			}
		}
	}()

	return nil
}

// deliver sends one notification, retrying with exponential backoff and jitter.
func (s *MailService) deliver(event common.Event) {
	data := notification{
		Resource:  resourceName(event.Kind),
		ID:        event.ID,
		Summary:   event.Summary,
		CreatedAt: event.CreatedAt,
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(s.recipient, data, notificationTemplate)
		if err == nil {
			s.logger.Info("notification email sent", slog.String("kind", string(event.Kind)), slog.String("id", event.ID))
			return
		}

		delay := time.Duration(rand.Int63n(int64(s.baseDelay) << uint(attempt)))
		s.logger.Info("delaying notification email", slog.String("id", event.ID), slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}
	}

	s.logger.Error("could not send notification email", slog.String("kind", string(event.Kind)), slog.String("id", event.ID))
}

func resourceName(kind common.BindingKey) string {
	switch kind {
	case common.BlogCreatedKey:
		return "blog"
	case common.UserCreatedKey:
		return "user"
	default:
		return "resource"
	}
}

// Close stops the consumer and waits for an in-flight delivery to finish.
func (s *MailService) Close() {
	s.cancel()
	s.wg.Wait()
}
