package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MarlyH/CorpsAPI-sub000/internal/clock"
	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository/memory"
	"github.com/MarlyH/CorpsAPI-sub000/pkg/kafka"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Produce(ctx context.Context, msg *kafka.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func seedOutbox(t *testing.T, mem *memory.Store, clk clock.Clock, ids ...string) {
	t.Helper()
	repos := mem.Repositories()
	for _, id := range ids {
		msg, err := domain.NewOutboxMessage(id, domain.ChannelPush, "notifications.push", "user-"+id,
			domain.PushNotification{UserID: "user-" + id, Title: "hello"}, clk.Now())
		require.NoError(t, err)
		require.NoError(t, repos.Outbox.Create(context.Background(), msg))
	}
}

func newTestWorker(pub Publisher, mem *memory.Store, clk clock.Clock) *OutboxWorker {
	repos := mem.Repositories()
	return NewOutboxWorker(repos.Tx, repos.Outbox, pub, clk, &OutboxWorkerConfig{MaxAttempts: 2})
}

func TestDefaultOutboxWorkerConfig(t *testing.T) {
	config := DefaultOutboxWorkerConfig()

	assert.Equal(t, time.Second, config.PollInterval)
	assert.Equal(t, 100, config.BatchSize)
	assert.Equal(t, 5, config.MaxAttempts)
	assert.Equal(t, time.Hour, config.CleanupInterval)
	assert.Equal(t, 7*24*time.Hour, config.Retention)
}

func TestNewOutboxWorker_FillsZeroValues(t *testing.T) {
	w := NewOutboxWorker(nil, nil, nil, nil, &OutboxWorkerConfig{BatchSize: 10})

	assert.Equal(t, 10, w.config.BatchSize)
	assert.Equal(t, time.Second, w.config.PollInterval)
	assert.Equal(t, 5, w.config.MaxAttempts)
}

func TestProcessPending_PublishesWithHeaders(t *testing.T) {
	mem := memory.NewStore()
	clk := clock.NewManual(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), time.UTC)
	seedOutbox(t, mem, clk, "m1", "m2")

	pub := &mockPublisher{}
	pub.On("Produce", mock.Anything, mock.MatchedBy(func(msg *kafka.Message) bool {
		return msg.Topic == "notifications.push" &&
			msg.Headers["channel"] == "push" &&
			msg.Headers["message_id"] != "" &&
			string(msg.Key) == "user-"+msg.Headers["message_id"]
	})).Return(nil).Twice()

	published, err := newTestWorker(pub, mem, clk).ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, published)
	pub.AssertExpectations(t)

	for _, msg := range mem.OutboxMessages() {
		assert.Equal(t, domain.OutboxStatusPublished, msg.Status)
		require.NotNil(t, msg.PublishedAt)
	}
}

func TestProcessPending_FailureIsRetriedUntilMaxAttempts(t *testing.T) {
	mem := memory.NewStore()
	clk := clock.NewManual(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), time.UTC)
	seedOutbox(t, mem, clk, "m1")

	pub := &mockPublisher{}
	pub.On("Produce", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	w := newTestWorker(pub, mem, clk)

	for i := 0; i < 3; i++ {
		published, err := w.ProcessPending(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, published)
	}

	pub.AssertNumberOfCalls(t, "Produce", 2)
	msgs := mem.OutboxMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.OutboxStatusFailed, msgs[0].Status)
	assert.Equal(t, 2, msgs[0].Attempts)
	assert.Equal(t, "broker down", msgs[0].LastError)
}

func TestCleanup_RemovesOldPublished(t *testing.T) {
	mem := memory.NewStore()
	clk := clock.NewManual(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	seedOutbox(t, mem, clk, "old", "pending")

	repos := mem.Repositories()
	require.NoError(t, repos.Outbox.MarkAsPublished(context.Background(), "old", clk.Now()))

	clk.Advance(8 * 24 * time.Hour)
	newTestWorker(&mockPublisher{}, mem, clk).cleanup(context.Background())

	msgs := mem.OutboxMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "pending", msgs[0].ID)
}

func TestOutboxWorker_StartStop(t *testing.T) {
	mem := memory.NewStore()
	clk := clock.NewManual(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), time.UTC)
	w := newTestWorker(&mockPublisher{}, mem, clk)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyRunning)

	w.Stop()
	assert.False(t, w.IsRunning())
	w.Stop()
}
