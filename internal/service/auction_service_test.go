package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auctionFixture struct {
	svc      AuctionService
	repo     *memNFTRepo
	txs      *recordingTxRepo
	notifier *captureNotifier
	clock    *fakeClock
}

func newAuctionFixture(t *testing.T) *auctionFixture {
	t.Helper()
	f := &auctionFixture{
		repo:     newMemNFTRepo(),
		txs:      &recordingTxRepo{},
		notifier: &captureNotifier{},
		clock:    newFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.svc = NewAuctionService(f.repo, f.txs, f.notifier, nil, f.clock, &NoOpLogger{}, nil, AuctionServiceConfig{
		MinDuration:    24 * time.Hour,
		MaxDuration:    168 * time.Hour,
		MinBidIncrease: 0.05,
	})
	return f
}

func (f *auctionFixture) seedNFT(id, owner string) *entity.NFT {
	nft := &entity.NFT{
		ID:        id,
		TokenID:   "token-" + id,
		Name:      "Test NFT " + id,
		Creator:   owner,
		Owner:     owner,
		Status:    entity.StatusCreated,
		Currency:  "TON",
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
		Version:   1,
	}
	f.repo.put(nft)
	return nft
}

func (f *auctionFixture) seedActiveAuction(id, owner string, startPrice float64) *entity.NFT {
	nft := f.seedNFT(id, owner)
	now := f.clock.Now()
	nft.StartAuction(startPrice, 0.05, now, now.Add(24*time.Hour))
	f.repo.put(nft)
	return nft
}

func TestCreateAuction_Success(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedNFT("nft-1", "owner-1")

	nft, err := f.svc.CreateAuction(context.Background(), CreateAuctionParams{
		NFTID:      "nft-1",
		CallerID:   "owner-1",
		StartPrice: 10,
		Duration:   24 * time.Hour,
	})
	require.NoError(t, err)
	require.NotNil(t, nft.Auction)

	assert.Equal(t, entity.StatusAuction, nft.Status)
	assert.Equal(t, 10.0, nft.Auction.StartPrice)
	assert.Equal(t, 10.0, nft.Auction.CurrentPrice)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), nft.Auction.EndTime)
	assert.Empty(t, nft.Auction.Bids)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuction, stored.Status)

	started := f.notifier.byType(entity.NotificationAuctionStart)
	require.Len(t, started, 1)
	assert.Equal(t, "owner-1", started[0].User)
}

func TestCreateAuction_Validation(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedNFT("nft-1", "owner-1")

	testCases := []struct {
		name    string
		params  CreateAuctionParams
		wantErr error
	}{
		{
			name:    "duration below minimum",
			params:  CreateAuctionParams{NFTID: "nft-1", CallerID: "owner-1", StartPrice: 10, Duration: time.Hour},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "duration above maximum",
			params:  CreateAuctionParams{NFTID: "nft-1", CallerID: "owner-1", StartPrice: 10, Duration: 200 * time.Hour},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "non-positive start price",
			params:  CreateAuctionParams{NFTID: "nft-1", CallerID: "owner-1", StartPrice: 0, Duration: 24 * time.Hour},
			wantErr: ErrInvalidStartPrice,
		},
		{
			name:    "caller is not the owner",
			params:  CreateAuctionParams{NFTID: "nft-1", CallerID: "someone-else", StartPrice: 10, Duration: 24 * time.Hour},
			wantErr: ErrNotOwner,
		},
		{
			name:    "unknown item",
			params:  CreateAuctionParams{NFTID: "missing", CallerID: "owner-1", StartPrice: 10, Duration: 24 * time.Hour},
			wantErr: ErrItemNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAuction(context.Background(), tc.params)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCreated, stored.Status)
}

func TestCreateAuction_AlreadyListed(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	_, err := f.svc.CreateAuction(context.Background(), CreateAuctionParams{
		NFTID:      "nft-1",
		CallerID:   "owner-1",
		StartPrice: 20,
		Duration:   24 * time.Hour,
	})
	assert.ErrorIs(t, err, ErrAlreadyListed)
}

func TestPlaceBid_MinimumIncrease(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	// Needs at least 10 + 10*0.05 = 10.5.
	_, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.4)
	assert.ErrorIs(t, err, ErrBidTooLow)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, stored.Auction.CurrentPrice)
	assert.Empty(t, stored.Auction.Bids)
	assert.Empty(t, stored.Auction.HighestBidder)

	nft, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.5)
	require.NoError(t, err)
	assert.Equal(t, 10.5, nft.Auction.CurrentPrice)
	assert.Equal(t, "bidder-1", nft.Auction.HighestBidder)
	require.Len(t, nft.Auction.Bids, 1)
}

func TestPlaceBid_AcceptedSequenceStrictlyIncreasing(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	amounts := []float64{10.5, 12, 15, 20}
	bidders := []string{"bidder-1", "bidder-2", "bidder-1", "bidder-3"}
	for i, amount := range amounts {
		_, err := f.svc.PlaceBid(context.Background(), "nft-1", bidders[i], amount)
		require.NoError(t, err, "bid of %.2f", amount)
	}

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	require.Len(t, stored.Auction.Bids, len(amounts))

	previous := stored.Auction.StartPrice
	for _, bid := range stored.Auction.Bids {
		assert.GreaterOrEqual(t, bid.Amount, previous+previous*0.05)
		previous = bid.Amount
	}
	assert.Equal(t, 20.0, stored.Auction.CurrentPrice)
	assert.Equal(t, "bidder-3", stored.Auction.HighestBidder)
}

func TestPlaceBid_SelfBid(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	_, err := f.svc.PlaceBid(context.Background(), "nft-1", "owner-1", 20)
	assert.ErrorIs(t, err, ErrSelfBid)
}

func TestPlaceBid_AfterEndTime(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	// Past the deadline the bid fails even though the sweep has not yet
	// moved the item out of the auction state.
	f.clock.Advance(25 * time.Hour)

	_, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 50)
	assert.ErrorIs(t, err, ErrAuctionExpired)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuction, stored.Status)
	assert.Empty(t, stored.Auction.Bids)
}

func TestPlaceBid_NotActive(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedNFT("nft-1", "owner-1")

	_, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 50)
	assert.ErrorIs(t, err, ErrAuctionNotActive)
}

func TestPlaceBid_NotificationsAndTransaction(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	_, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.5)
	require.NoError(t, err)

	bidNotifications := f.notifier.byType(entity.NotificationAuctionBid)
	require.Len(t, bidNotifications, 2)
	assert.Equal(t, "owner-1", bidNotifications[0].User)
	assert.Equal(t, entity.PriorityHigh, bidNotifications[0].Priority)
	assert.Equal(t, "bidder-1", bidNotifications[1].User)
	assert.Equal(t, entity.PriorityMedium, bidNotifications[1].Priority)

	require.Len(t, f.txs.txs, 1)
	assert.Equal(t, entity.TransactionAuctionBid, f.txs.txs[0].Type)
	assert.Equal(t, 10.5, f.txs.txs[0].Amount.Value)
	assert.Equal(t, "TON", f.txs.txs[0].Amount.Currency)
}

func TestCancelAuction(t *testing.T) {
	f := newAuctionFixture(t)

	t.Run("succeeds without bids", func(t *testing.T) {
		f.seedActiveAuction("nft-1", "owner-1", 10)

		err := f.svc.CancelAuction(context.Background(), "nft-1", "owner-1")
		require.NoError(t, err)

		stored, err := f.repo.GetByID(context.Background(), "nft-1")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCreated, stored.Status)
		assert.Nil(t, stored.Auction)
		assert.Equal(t, "owner-1", stored.Owner)
	})

	t.Run("fails once a bid exists", func(t *testing.T) {
		f.seedActiveAuction("nft-2", "owner-1", 10)
		_, err := f.svc.PlaceBid(context.Background(), "nft-2", "bidder-1", 10.5)
		require.NoError(t, err)

		err = f.svc.CancelAuction(context.Background(), "nft-2", "owner-1")
		assert.ErrorIs(t, err, ErrHasBids)

		stored, err := f.repo.GetByID(context.Background(), "nft-2")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusAuction, stored.Status)
	})

	t.Run("fails for non-owner", func(t *testing.T) {
		f.seedActiveAuction("nft-3", "owner-1", 10)

		err := f.svc.CancelAuction(context.Background(), "nft-3", "bidder-1")
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestCloseExpiredAuctions_SettlesToHighestBidder(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	_, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.5)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(context.Background(), "nft-1", "bidder-2", 12)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	results, err := f.svc.CloseExpiredAuctions(context.Background(), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bidder-2", results[0].Winner)
	assert.Equal(t, 12.0, results[0].FinalPrice)
	assert.True(t, results[0].HadBids)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSold, stored.Status)
	assert.Equal(t, "bidder-2", stored.Owner)
	assert.Equal(t, 12.0, stored.Price)
	require.Len(t, stored.PreviousOwners, 1)
	assert.Equal(t, "owner-1", stored.PreviousOwners[0].User)
	assert.Equal(t, 12.0, stored.PreviousOwners[0].Price)
}

func TestCloseExpiredAuctions_Idempotent(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	_, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.5)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	now := f.clock.Now()

	first, err := f.svc.CloseExpiredAuctions(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.CloseExpiredAuctions(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, second)

	// One sale transaction and one win notification despite two passes.
	saleCount := 0
	for _, tx := range f.txs.txs {
		if tx.Type == entity.TransactionAuctionSale {
			saleCount++
		}
	}
	assert.Equal(t, 1, saleCount)
	assert.Len(t, f.notifier.byType(entity.NotificationAuctionWin), 1)
}

func TestCloseExpiredAuctions_ZeroBidsReturnsToOwner(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	f.clock.Advance(25 * time.Hour)

	results, err := f.svc.CloseExpiredAuctions(context.Background(), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].HadBids)
	assert.Empty(t, results[0].Winner)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCreated, stored.Status)
	assert.Equal(t, "owner-1", stored.Owner)
	assert.Nil(t, stored.Auction)
	assert.Empty(t, stored.PreviousOwners)

	assert.Empty(t, f.txs.txs)
	assert.Len(t, f.notifier.byType(entity.NotificationAuctionEnd), 1)
}

func TestCloseExpiredAuctions_SkipsNotYetExpired(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	results, err := f.svc.CloseExpiredAuctions(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, results)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuction, stored.Status)
}

func TestAuctionLifecycle_EndToEnd(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedNFT("nft-1", "owner-1")

	_, err := f.svc.CreateAuction(context.Background(), CreateAuctionParams{
		NFTID:      "nft-1",
		CallerID:   "owner-1",
		StartPrice: 10,
		Duration:   24 * time.Hour,
	})
	require.NoError(t, err)

	// 10.4 is below 10 + 10*0.05.
	_, err = f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.4)
	assert.ErrorIs(t, err, ErrBidTooLow)

	nft, err := f.svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.5)
	require.NoError(t, err)
	assert.Equal(t, 10.5, nft.Auction.CurrentPrice)

	// The floor is now 10.5 + 10.5*0.05 = 11.025.
	_, err = f.svc.PlaceBid(context.Background(), "nft-1", "bidder-2", 11)
	assert.ErrorIs(t, err, ErrBidTooLow)

	nft, err = f.svc.PlaceBid(context.Background(), "nft-1", "bidder-2", 11.5)
	require.NoError(t, err)
	assert.Equal(t, 11.5, nft.Auction.CurrentPrice)

	_, err = f.svc.PlaceBid(context.Background(), "nft-1", "owner-1", 20)
	assert.ErrorIs(t, err, ErrSelfBid)

	f.clock.Advance(25 * time.Hour)
	results, err := f.svc.CloseExpiredAuctions(context.Background(), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "bidder-2", results[0].Winner)
	assert.Equal(t, 11.5, results[0].FinalPrice)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	assert.Equal(t, "bidder-2", stored.Owner)
	assert.Equal(t, entity.StatusSold, stored.Status)

	endNotifications := f.notifier.byType(entity.NotificationAuctionEnd)
	require.Len(t, endNotifications, 1)
	assert.Equal(t, "owner-1", endNotifications[0].User)
	assert.Equal(t, 11.5, endNotifications[0].Data.Price)
}

func TestPlaceBid_ConcurrentBidders(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)

	const bidders = 20
	var wg sync.WaitGroup
	errs := make([]error, bidders)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := 10.5 + float64(i)*5
			_, errs[i] = f.svc.PlaceBid(context.Background(), "nft-1", fmt.Sprintf("bidder-%d", i), amount)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, ErrBidTooLow)
		}
	}
	require.NotZero(t, accepted)

	stored, err := f.repo.GetByID(context.Background(), "nft-1")
	require.NoError(t, err)
	require.Len(t, stored.Auction.Bids, accepted)

	// The bid book is strictly increasing and the final price is the
	// maximum accepted amount regardless of interleaving.
	previous := stored.Auction.StartPrice
	for _, bid := range stored.Auction.Bids {
		assert.GreaterOrEqual(t, bid.Amount, previous+previous*0.05)
		previous = bid.Amount
	}
	assert.Equal(t, previous, stored.Auction.CurrentPrice)
	lastBidder := stored.Auction.Bids[len(stored.Auction.Bids)-1].Bidder
	assert.Equal(t, lastBidder, stored.Auction.HighestBidder)
}

// conflictNFTRepo wraps the memory store and fails every Update with an
// optimistic-lock error, simulating a writer that always loses the race.
type conflictNFTRepo struct {
	*memNFTRepo
	updates int
}

func (r *conflictNFTRepo) Update(ctx context.Context, nft *entity.NFT) error {
	r.updates++
	return repository.ErrOptimisticLock
}

func TestPlaceBid_ConflictRetryExhaustion(t *testing.T) {
	repo := &conflictNFTRepo{memNFTRepo: newMemNFTRepo()}
	clk := newFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewAuctionService(repo, &recordingTxRepo{}, &captureNotifier{}, nil, clk, &NoOpLogger{}, nil, AuctionServiceConfig{
		MinDuration:     24 * time.Hour,
		MaxDuration:     168 * time.Hour,
		MinBidIncrease:  0.05,
		ConflictRetries: 3,
	})

	nft := &entity.NFT{ID: "nft-1", Owner: "owner-1", Status: entity.StatusCreated, Currency: "TON", Version: 1}
	now := clk.Now()
	nft.StartAuction(10, 0.05, now, now.Add(24*time.Hour))
	repo.put(nft)

	_, err := svc.PlaceBid(context.Background(), "nft-1", "bidder-1", 10.5)
	assert.ErrorIs(t, err, ErrConflictRetry)
	assert.Equal(t, 3, repo.updates)
}

func TestGetAuction_NotFound(t *testing.T) {
	f := newAuctionFixture(t)

	_, err := f.svc.GetAuction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestListActiveAuctions_FillsCurrentTime(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)
	f.seedActiveAuction("nft-2", "owner-2", 20)

	expired := f.seedNFT("nft-3", "owner-3")
	expired.StartAuction(5, 0.05, f.clock.Now().Add(-48*time.Hour), f.clock.Now().Add(-time.Hour))
	f.repo.put(expired)

	result, err := f.svc.ListActiveAuctions(context.Background(), repository.ListAuctionsParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)
	for _, nft := range result.NFTs {
		assert.NotEqual(t, "nft-3", nft.ID)
	}
}

func TestCloseExpiredAuctions_IsolatesPerItemFailures(t *testing.T) {
	f := newAuctionFixture(t)
	f.seedActiveAuction("nft-1", "owner-1", 10)
	f.seedActiveAuction("nft-2", "owner-2", 10)

	_, err := f.svc.PlaceBid(context.Background(), "nft-2", "bidder-1", 10.5)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	// Delete one item between the scan and the per-item close. The sweep
	// skips it and still settles the other.
	expired, err := f.repo.FindExpiredAuctions(context.Background(), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, expired, 2)

	f.repo.mu.Lock()
	delete(f.repo.items, "nft-1")
	f.repo.mu.Unlock()

	results, err := f.svc.CloseExpiredAuctions(context.Background(), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "nft-2", results[0].NFTID)
}

var _ repository.NFTRepository = (*memNFTRepo)(nil)
var _ repository.TransactionRepository = (*recordingTxRepo)(nil)
var _ Notifier = (*captureNotifier)(nil)
