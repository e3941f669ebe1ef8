package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func outboxEvent(eventType string, createdAt time.Time) domain.OutboxEvent {
	return domain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "WALLET",
		AggregateID:   uuid.New().String(),
		EventType:     eventType,
		Payload:       []byte(`{}`),
		CreatedAt:     createdAt,
	}
}

func TestOutboxRelay_FlushPublishesAndMarks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	publisher := mocks.NewMockEventPublisher(ctrl)
	relay := NewOutboxRelay(outboxRepo, publisher, time.Second, 50, zerolog.Nop())

	now := time.Now()
	first := outboxEvent(domain.EventTypeWalletCredited, now.Add(-2*time.Second))
	second := outboxEvent(domain.EventTypeWalletDebited, now.Add(-time.Second))

	outboxRepo.EXPECT().ListUnpublished(gomock.Any(), 50).Return([]domain.OutboxEvent{first, second}, nil)

	gomock.InOrder(
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e *domain.OutboxEvent) error {
				assert.Equal(t, first.ID, e.ID)
				return nil
			}),
		outboxRepo.EXPECT().MarkPublished(gomock.Any(), first.ID).Return(nil),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e *domain.OutboxEvent) error {
				assert.Equal(t, second.ID, e.ID)
				return nil
			}),
		outboxRepo.EXPECT().MarkPublished(gomock.Any(), second.ID).Return(nil),
	)

	require.NoError(t, relay.Flush(context.Background()))
}

func TestOutboxRelay_FlushStopsOnPublishFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	publisher := mocks.NewMockEventPublisher(ctrl)
	relay := NewOutboxRelay(outboxRepo, publisher, time.Second, 50, zerolog.Nop())

	now := time.Now()
	first := outboxEvent(domain.EventTypeWalletCredited, now.Add(-2*time.Second))
	second := outboxEvent(domain.EventTypeWalletDebited, now.Add(-time.Second))

	outboxRepo.EXPECT().ListUnpublished(gomock.Any(), 50).Return([]domain.OutboxEvent{first, second}, nil)

	// First event fails; the second one must not be attempted and neither
	// event may be marked published.
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	err := relay.Flush(context.Background())
	assert.EqualError(t, err, "broker down")
}

func TestOutboxRelay_FlushEmptyBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	publisher := mocks.NewMockEventPublisher(ctrl)
	relay := NewOutboxRelay(outboxRepo, publisher, time.Second, 50, zerolog.Nop())

	outboxRepo.EXPECT().ListUnpublished(gomock.Any(), 50).Return(nil, nil)

	require.NoError(t, relay.Flush(context.Background()))
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	publisher := mocks.NewMockEventPublisher(ctrl)
	relay := NewOutboxRelay(outboxRepo, publisher, 10*time.Millisecond, 10, zerolog.Nop())

	outboxRepo.EXPECT().ListUnpublished(gomock.Any(), 10).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
