package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/adapter/nats"
	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
)

const notifierShutdownTimeout = 5 * time.Second

// Notifier delivers user notifications off the request path. Emit enqueues
// onto a buffered channel and returns immediately; a worker goroutine
// persists the notification and publishes it to NATS. A full queue drops
// the notification rather than stall bid admission.
type Notifier interface {
	Emit(notification entity.Notification)
}

type AsyncNotifier struct {
	repo      repository.NotificationRepository
	publisher nats.MessagePublisher
	log       logger.Logger
	subject   string
	queue     chan entity.Notification
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewNotifier(
	repo repository.NotificationRepository,
	publisher nats.MessagePublisher,
	log logger.Logger,
	subject string,
	queueSize int,
) *AsyncNotifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	n := &AsyncNotifier{
		repo:      repo,
		publisher: publisher,
		log:       log,
		subject:   subject,
		queue:     make(chan entity.Notification, queueSize),
		done:      make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *AsyncNotifier) Emit(notification entity.Notification) {
	// The read lock keeps Close from closing the queue mid-send; a late
	// emitter after shutdown degrades to a drop instead of a panic.
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.log.Warnf("Notifier closed, dropping %s notification for user %s",
			notification.Type, notification.User)
		return
	}

	select {
	case n.queue <- notification:
	default:
		n.log.Warnf("Notification queue full, dropping %s notification for user %s",
			notification.Type, notification.User)
	}
}

func (n *AsyncNotifier) run() {
	for notification := range n.queue {
		n.deliver(notification)
	}
	close(n.done)
}

func (n *AsyncNotifier) deliver(notification entity.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := n.repo.Create(ctx, &notification)
	if err != nil {
		n.log.Errorf("Failed to persist %s notification for user %s: %v",
			notification.Type, notification.User, err)
	} else {
		notification.ID = id
	}

	if n.publisher != nil {
		subject := fmt.Sprintf("%s.%s", n.subject, notification.User)
		if err := n.publisher.Publish(ctx, subject, notification); err != nil {
			n.log.Errorf("Failed to publish notification to %s: %v", subject, err)
		}
	}
}

// Close drains pending notifications, bounded by notifierShutdownTimeout.
func (n *AsyncNotifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()
		close(n.queue)
		select {
		case <-n.done:
		case <-time.After(notifierShutdownTimeout):
			n.log.Warn("Notifier shutdown timed out with notifications still queued")
		}
	})
}
