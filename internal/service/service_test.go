package service

import (
	"context"
	"sync"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/stretchr/testify/mock"
)

// memNFTRepo is an in-memory NFTRepository with the same optimistic-lock
// semantics as the Mongo adapter: an Update with a stale version fails
// with repository.ErrOptimisticLock.
type memNFTRepo struct {
	mu    sync.Mutex
	items map[string]*entity.NFT
}

func newMemNFTRepo() *memNFTRepo {
	return &memNFTRepo{items: make(map[string]*entity.NFT)}
}

func cloneNFT(n *entity.NFT) *entity.NFT {
	cp := *n
	if n.Auction != nil {
		a := *n.Auction
		a.Bids = append([]entity.Bid(nil), n.Auction.Bids...)
		cp.Auction = &a
	}
	if n.Giveaway != nil {
		g := *n.Giveaway
		g.Participants = append([]string(nil), n.Giveaway.Participants...)
		cp.Giveaway = &g
	}
	cp.PreviousOwners = append([]entity.OwnershipRecord(nil), n.PreviousOwners...)
	return &cp
}

func (r *memNFTRepo) put(n *entity.NFT) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = cloneNFT(n)
}

func (r *memNFTRepo) Create(ctx context.Context, nft *entity.NFT) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nft.Version = 1
	r.items[nft.ID] = cloneNFT(nft)
	return nft.ID, nil
}

func (r *memNFTRepo) GetByID(ctx context.Context, nftID string) (*entity.NFT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[nftID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneNFT(n), nil
}

func (r *memNFTRepo) Update(ctx context.Context, nft *entity.NFT) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[nft.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != nft.Version {
		return repository.ErrOptimisticLock
	}
	nft.Version++
	r.items[nft.ID] = cloneNFT(nft)
	return nil
}

func (r *memNFTRepo) ListActiveAuctions(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var nfts []entity.NFT
	for _, n := range r.items {
		if n.Status == entity.StatusAuction && n.Auction != nil && n.Auction.EndTime.After(params.Now) {
			nfts = append(nfts, *cloneNFT(n))
		}
	}
	return &repository.ListAuctionsResult{NFTs: nfts, TotalCount: int64(len(nfts))}, nil
}

func (r *memNFTRepo) ListActiveGiveaways(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var nfts []entity.NFT
	for _, n := range r.items {
		if n.Status == entity.StatusGiveaway && n.Giveaway != nil && n.Giveaway.EndTime.After(params.Now) {
			nfts = append(nfts, *cloneNFT(n))
		}
	}
	return &repository.ListAuctionsResult{NFTs: nfts, TotalCount: int64(len(nfts))}, nil
}

func (r *memNFTRepo) FindExpiredAuctions(ctx context.Context, now time.Time) ([]entity.NFT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var nfts []entity.NFT
	for _, n := range r.items {
		if n.Status == entity.StatusAuction && n.Auction != nil && !n.Auction.EndTime.After(now) {
			nfts = append(nfts, *cloneNFT(n))
		}
	}
	return nfts, nil
}

func (r *memNFTRepo) FindExpiredGiveaways(ctx context.Context, now time.Time) ([]entity.NFT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var nfts []entity.NFT
	for _, n := range r.items {
		if n.Status == entity.StatusGiveaway && n.Giveaway != nil && !n.Giveaway.EndTime.After(now) {
			nfts = append(nfts, *cloneNFT(n))
		}
	}
	return nfts, nil
}

type MockTransactionRepository struct{ mock.Mock }

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entity.Transaction) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func (m *MockTransactionRepository) ListByNFT(ctx context.Context, nftID string) ([]entity.Transaction, error) {
	args := m.Called(ctx, nftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Transaction), args.Error(1)
}

// recordingTxRepo collects transactions without expectation bookkeeping,
// for flow tests where the exact call count is asserted afterwards.
type recordingTxRepo struct {
	mu  sync.Mutex
	txs []entity.Transaction
}

func (r *recordingTxRepo) Create(ctx context.Context, tx *entity.Transaction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, *tx)
	return "tx-id", nil
}

func (r *recordingTxRepo) ListByNFT(ctx context.Context, nftID string) ([]entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Transaction(nil), r.txs...), nil
}

// captureNotifier records emitted notifications in order.
type captureNotifier struct {
	mu            sync.Mutex
	notifications []entity.Notification
}

func (n *captureNotifier) Emit(notification entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

func (n *captureNotifier) byType(t entity.NotificationType) []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []entity.Notification
	for _, x := range n.notifications {
		if x.Type == t {
			out = append(out, x)
		}
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type NoOpLogger struct{}

func (l *NoOpLogger) Debug(args ...interface{})                    {}
func (l *NoOpLogger) Debugf(template string, args ...interface{})  {}
func (l *NoOpLogger) Info(args ...interface{})                     {}
func (l *NoOpLogger) Infof(template string, args ...interface{})   {}
func (l *NoOpLogger) Warn(args ...interface{})                     {}
func (l *NoOpLogger) Warnf(template string, args ...interface{})   {}
func (l *NoOpLogger) Error(args ...interface{})                    {}
func (l *NoOpLogger) Errorf(template string, args ...interface{})  {}
func (l *NoOpLogger) Fatal(args ...interface{})                    {}
func (l *NoOpLogger) Fatalf(template string, args ...interface{})  {}
func (l *NoOpLogger) With(args ...interface{}) logger.Logger       { return l }
