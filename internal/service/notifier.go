package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/logger"
)

// Notifier is the outbound messaging collaborator. Delivery is best
// effort: failures are logged and never returned to the caller.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string)
	SendEmail(ctx context.Context, to, subject, body string)
}

// NotifierConfig names the broker topics for each channel
type NotifierConfig struct {
	PushTopic  string
	EmailTopic string
}

// outboxNotifier writes notifications to the outbox. Called inside a
// transaction, the message commits or rolls back with it and the relay
// publishes it afterwards.
type outboxNotifier struct {
	outbox repository.OutboxRepository
	clock  clock.Clock
	cfg    NotifierConfig
}

// NewOutboxNotifier creates a Notifier backed by the outbox table
func NewOutboxNotifier(outbox repository.OutboxRepository, clk clock.Clock, cfg NotifierConfig) Notifier {
	if cfg.PushTopic == "" {
		cfg.PushTopic = "notifications.push"
	}
	if cfg.EmailTopic == "" {
		cfg.EmailTopic = "notifications.email"
	}
	return &outboxNotifier{outbox: outbox, clock: clk, cfg: cfg}
}

// Notify queues a push notification for userID
func (n *outboxNotifier) Notify(ctx context.Context, userID, title, body string) {
	if userID == "" {
		return
	}
	n.enqueue(ctx, domain.ChannelPush, n.cfg.PushTopic, userID, domain.PushNotification{
		UserID: userID,
		Title:  title,
		Body:   body,
	})
}

// SendEmail queues an email to the given address
func (n *outboxNotifier) SendEmail(ctx context.Context, to, subject, body string) {
	if to == "" {
		return
	}
	n.enqueue(ctx, domain.ChannelEmail, n.cfg.EmailTopic, to, domain.EmailNotification{
		To:      to,
		Subject: subject,
		Body:    body,
	})
}

func (n *outboxNotifier) enqueue(ctx context.Context, channel domain.NotificationChannel, topic, key string, payload interface{}) {
	log := logger.FromContext(ctx)

	msg, err := domain.NewOutboxMessage(uuid.NewString(), channel, topic, key, payload, n.clock.Now())
	if err != nil {
		log.Error("failed to encode notification", zap.String("channel", string(channel)), zap.Error(err))
		return
	}
	if err := n.outbox.Create(ctx, msg); err != nil {
		log.Warn("failed to enqueue notification",
			zap.String("channel", string(channel)),
			zap.String("key", key),
			zap.Error(&domain.DependencyError{Dependency: "outbox", Err: err}),
		)
	}
}
