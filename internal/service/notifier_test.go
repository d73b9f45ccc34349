package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []entity.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *entity.Notification) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *notification)
	return "notification-id", nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, params repository.ListNotificationsParams) ([]entity.Notification, int64, error) {
	return nil, 0, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, notificationID, userID string) error {
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) PublishRaw(ctx context.Context, subject string, data []byte) error {
	return p.Publish(ctx, subject, nil)
}

func TestAsyncNotifier_PersistsAndPublishes(t *testing.T) {
	repo := &fakeNotificationRepo{}
	publisher := &fakePublisher{}
	notifier := NewNotifier(repo, publisher, &NoOpLogger{}, "notifications", 16)

	notifier.Emit(entity.Notification{
		User:     "user-1",
		Type:     entity.NotificationAuctionWin,
		Title:    "Auction Won",
		Priority: entity.PriorityHigh,
	})
	notifier.Emit(entity.Notification{
		User: "user-2",
		Type: entity.NotificationAuctionEnd,
	})
	notifier.Close()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.created, 2)
	assert.Equal(t, "user-1", repo.created[0].User)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.subjects, 2)
	assert.Equal(t, "notifications.user-1", publisher.subjects[0])
	assert.Equal(t, "notifications.user-2", publisher.subjects[1])
}

func TestAsyncNotifier_WorksWithoutPublisher(t *testing.T) {
	repo := &fakeNotificationRepo{}
	notifier := NewNotifier(repo, nil, &NoOpLogger{}, "notifications", 16)

	notifier.Emit(entity.Notification{User: "user-1", Type: entity.NotificationAuctionBid})
	notifier.Close()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.created, 1)
}

func TestAsyncNotifier_CloseIsIdempotent(t *testing.T) {
	notifier := NewNotifier(&fakeNotificationRepo{}, nil, &NoOpLogger{}, "notifications", 4)
	notifier.Close()
	notifier.Close()
}

func TestAsyncNotifier_EmitAfterCloseDropsInsteadOfPanicking(t *testing.T) {
	repo := &fakeNotificationRepo{}
	notifier := NewNotifier(repo, nil, &NoOpLogger{}, "notifications", 4)

	notifier.Emit(entity.Notification{User: "user-1", Type: entity.NotificationAuctionBid})
	notifier.Close()

	// A handler finishing a request during shutdown may still emit.
	notifier.Emit(entity.Notification{User: "user-2", Type: entity.NotificationAuctionBid})

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.created, 1)
	assert.Equal(t, "user-1", repo.created[0].User)
}

func TestAsyncNotifier_DropsWhenQueueFull(t *testing.T) {
	repo := &fakeNotificationRepo{}
	release := make(chan struct{})
	blocking := &blockingNotificationRepo{inner: repo, release: release}
	notifier := NewNotifier(blocking, nil, &NoOpLogger{}, "notifications", 1)

	// First notification occupies the worker, second fills the queue,
	// third is dropped.
	for i := 0; i < 3; i++ {
		notifier.Emit(entity.Notification{User: "user-1", Type: entity.NotificationAuctionBid})
	}
	close(release)
	notifier.Close()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.GreaterOrEqual(t, len(repo.created), 1)
	assert.LessOrEqual(t, len(repo.created), 2)
}

type blockingNotificationRepo struct {
	inner   *fakeNotificationRepo
	release chan struct{}
	once    sync.Once
}

func (r *blockingNotificationRepo) Create(ctx context.Context, notification *entity.Notification) (string, error) {
	r.once.Do(func() {
		select {
		case <-r.release:
		case <-time.After(time.Second):
		}
	})
	return r.inner.Create(ctx, notification)
}

func (r *blockingNotificationRepo) ListByUser(ctx context.Context, params repository.ListNotificationsParams) ([]entity.Notification, int64, error) {
	return nil, 0, nil
}

func (r *blockingNotificationRepo) MarkRead(ctx context.Context, notificationID, userID string) error {
	return nil
}
