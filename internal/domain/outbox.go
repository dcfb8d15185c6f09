package domain

import (
	"encoding/json"
	"time"
)

// NotificationChannel selects the delivery route of an outbound message
type NotificationChannel string

const (
	ChannelPush  NotificationChannel = "push"
	ChannelEmail NotificationChannel = "email"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// PushNotification is delivered to a user's devices
type PushNotification struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// EmailNotification is delivered to an address
type EmailNotification struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// OutboxMessage is a notification waiting to be relayed to the broker
type OutboxMessage struct {
	ID          string
	Channel     NotificationChannel
	Topic       string
	Key         string
	Payload     []byte
	Status      OutboxStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewOutboxMessage marshals payload into a pending message
func NewOutboxMessage(id string, channel NotificationChannel, topic, key string, payload interface{}, now time.Time) (*OutboxMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		ID:        id,
		Channel:   channel,
		Topic:     topic,
		Key:       key,
		Payload:   data,
		Status:    OutboxStatusPending,
		CreatedAt: now,
	}, nil
}
