package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"github.com/RayZar23/ton-nft-market1/internal/platform/clock"
	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/google/uuid"
)

const defaultConflictRetries = 3

// Broadcaster pushes state-change events to connected clients. Delivery is
// best effort and never blocks the mutating path.
type Broadcaster interface {
	Broadcast(ctx context.Context, event interface{}) error
}

type CreateAuctionParams struct {
	NFTID      string
	CallerID   string
	StartPrice float64
	Duration   time.Duration
}

type ClosedAuctionResult struct {
	NFTID      string
	Winner     string
	FinalPrice float64
	HadBids    bool
}

type AuctionService interface {
	CreateAuction(ctx context.Context, params CreateAuctionParams) (*entity.NFT, error)
	PlaceBid(ctx context.Context, nftID, bidderID string, amount float64) (*entity.NFT, error)
	CancelAuction(ctx context.Context, nftID, callerID string) error
	CloseExpiredAuctions(ctx context.Context, now time.Time) ([]ClosedAuctionResult, error)
	GetAuction(ctx context.Context, nftID string) (*entity.NFT, error)
	ListActiveAuctions(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error)
}

type AuctionServiceConfig struct {
	MinDuration     time.Duration
	MaxDuration     time.Duration
	MinBidIncrease  float64
	ConflictRetries int
}

type auctionService struct {
	nftRepo     repository.NFTRepository
	txRepo      repository.TransactionRepository
	notifier    Notifier
	broadcaster Broadcaster
	clock       clock.Clock
	log         logger.Logger
	locks       *LockTable
	cfg         AuctionServiceConfig
}

func NewAuctionService(
	nftRepo repository.NFTRepository,
	txRepo repository.TransactionRepository,
	notifier Notifier,
	broadcaster Broadcaster,
	clk clock.Clock,
	log logger.Logger,
	locks *LockTable,
	cfg AuctionServiceConfig,
) AuctionService {
	if cfg.ConflictRetries <= 0 {
		cfg.ConflictRetries = defaultConflictRetries
	}
	if locks == nil {
		locks = NewLockTable()
	}
	return &auctionService{
		nftRepo:     nftRepo,
		txRepo:      txRepo,
		notifier:    notifier,
		broadcaster: broadcaster,
		clock:       clk,
		log:         log,
		locks:       locks,
		cfg:         cfg,
	}
}

// withConflictRetry re-runs fn while the underlying save loses an
// optimistic-concurrency race, up to the configured bound. fn reloads the
// item on every attempt, so each retry validates against fresh state.
func (s *auctionService) withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < s.cfg.ConflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, repository.ErrOptimisticLock) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrConflictRetry, err)
}

func (s *auctionService) CreateAuction(ctx context.Context, params CreateAuctionParams) (*entity.NFT, error) {
	if params.Duration < s.cfg.MinDuration || params.Duration > s.cfg.MaxDuration {
		return nil, ErrInvalidDuration
	}
	if params.StartPrice <= 0 {
		return nil, ErrInvalidStartPrice
	}

	mu := s.locks.lock(params.NFTID)
	defer mu.Unlock()

	var nft *entity.NFT
	err := s.withConflictRetry(func() error {
		loaded, err := s.loadNFT(ctx, params.NFTID)
		if err != nil {
			return err
		}
		if loaded.Owner != params.CallerID {
			return ErrNotOwner
		}
		if loaded.IsListed() {
			return ErrAlreadyListed
		}

		now := s.clock.Now()
		loaded.StartAuction(params.StartPrice, s.cfg.MinBidIncrease, now, now.Add(params.Duration))
		if err := s.nftRepo.Update(ctx, loaded); err != nil {
			return err
		}
		nft = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Auction started for NFT %s by owner %s, start price %.2f, ends %s",
		nft.ID, nft.Owner, nft.Auction.StartPrice, nft.Auction.EndTime.Format(time.RFC3339))

	s.notifier.Emit(entity.Notification{
		User:     nft.Owner,
		Type:     entity.NotificationAuctionStart,
		Title:    "Auction Started",
		Message:  fmt.Sprintf("Your NFT %q has been listed for auction", nft.Name),
		Data:     entity.NotificationData{NFTID: nft.ID},
		Priority: entity.PriorityMedium,
	})
	s.broadcast(StateChangeEvent{
		Kind:  EventAuctionStarted,
		NFTID: nft.ID,
		Owner: nft.Owner,
		Price: nft.Auction.StartPrice,
	})

	return nft, nil
}

func (s *auctionService) PlaceBid(ctx context.Context, nftID, bidderID string, amount float64) (*entity.NFT, error) {
	mu := s.locks.lock(nftID)
	defer mu.Unlock()

	var nft *entity.NFT
	err := s.withConflictRetry(func() error {
		loaded, err := s.loadNFT(ctx, nftID)
		if err != nil {
			return err
		}
		if loaded.Status != entity.StatusAuction || loaded.Auction == nil {
			return ErrAuctionNotActive
		}

		now := s.clock.Now()
		if !now.Before(loaded.Auction.EndTime) {
			return ErrAuctionExpired
		}
		if now.Before(loaded.Auction.StartTime) {
			return ErrAuctionNotActive
		}
		if loaded.Owner == bidderID {
			return ErrSelfBid
		}
		if amount < loaded.Auction.MinNextBid() {
			return ErrBidTooLow
		}

		loaded.AddBid(bidderID, amount, now)
		if err := s.nftRepo.Update(ctx, loaded); err != nil {
			return err
		}
		nft = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Bid of %.2f %s placed on NFT %s by %s", amount, nft.Currency, nft.ID, bidderID)

	if _, err := s.txRepo.Create(ctx, &entity.Transaction{
		Type:   entity.TransactionAuctionBid,
		User:   bidderID,
		NFTID:  nft.ID,
		Amount: entity.Amount{Value: amount, Currency: nft.Currency},
		Status: entity.TransactionCompleted,
	}); err != nil {
		s.log.Errorf("Failed to record bid transaction for NFT %s: %v", nft.ID, err)
	}

	s.notifier.Emit(entity.Notification{
		User:     nft.Owner,
		Type:     entity.NotificationAuctionBid,
		Title:    "New Bid",
		Message:  fmt.Sprintf("New bid of %.2f %s placed on your NFT %q", amount, nft.Currency, nft.Name),
		Data:     entity.NotificationData{NFTID: nft.ID, Price: amount, Currency: nft.Currency},
		Priority: entity.PriorityHigh,
	})
	s.notifier.Emit(entity.Notification{
		User:     bidderID,
		Type:     entity.NotificationAuctionBid,
		Title:    "Bid Placed",
		Message:  fmt.Sprintf("Your bid of %.2f %s has been placed on %q", amount, nft.Currency, nft.Name),
		Data:     entity.NotificationData{NFTID: nft.ID, Price: amount, Currency: nft.Currency},
		Priority: entity.PriorityMedium,
	})
	s.broadcast(StateChangeEvent{
		Kind:   EventBidPlaced,
		NFTID:  nft.ID,
		Owner:  nft.Owner,
		Bidder: bidderID,
		Price:  amount,
	})

	return nft, nil
}

func (s *auctionService) CancelAuction(ctx context.Context, nftID, callerID string) error {
	mu := s.locks.lock(nftID)
	defer mu.Unlock()

	var nft *entity.NFT
	err := s.withConflictRetry(func() error {
		loaded, err := s.loadNFT(ctx, nftID)
		if err != nil {
			return err
		}
		if loaded.Owner != callerID {
			return ErrNotOwner
		}
		if loaded.Status != entity.StatusAuction || loaded.Auction == nil {
			return ErrAuctionNotActive
		}
		if len(loaded.Auction.Bids) > 0 {
			return ErrHasBids
		}

		loaded.CancelAuction(s.clock.Now())
		if err := s.nftRepo.Update(ctx, loaded); err != nil {
			return err
		}
		nft = loaded
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("Auction cancelled for NFT %s by owner %s", nft.ID, callerID)

	s.notifier.Emit(entity.Notification{
		User:     nft.Owner,
		Type:     entity.NotificationAuctionCancelled,
		Title:    "Auction Cancelled",
		Message:  fmt.Sprintf("Auction for NFT %q has been cancelled", nft.Name),
		Data:     entity.NotificationData{NFTID: nft.ID},
		Priority: entity.PriorityMedium,
	})
	s.broadcast(StateChangeEvent{
		Kind:  EventAuctionCancelled,
		NFTID: nft.ID,
		Owner: nft.Owner,
	})

	return nil
}

// CloseExpiredAuctions settles every auction whose end time has passed.
// Each item is closed under its own lock and failures are isolated: a save
// conflict on one item is logged and picked up by the next sweep pass.
func (s *auctionService) CloseExpiredAuctions(ctx context.Context, now time.Time) ([]ClosedAuctionResult, error) {
	expired, err := s.nftRepo.FindExpiredAuctions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired auctions: %w", err)
	}

	var results []ClosedAuctionResult
	for i := range expired {
		result, err := s.closeOne(ctx, expired[i].ID, now)
		if err != nil {
			s.log.Errorf("Failed to close auction for NFT %s: %v", expired[i].ID, err)
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}
	return results, nil
}

// closeOne transitions a single expired auction. Reloading inside the lock
// makes the close idempotent: an item already settled by a concurrent or
// earlier pass no longer matches the active-auction check and is skipped.
func (s *auctionService) closeOne(ctx context.Context, nftID string, now time.Time) (*ClosedAuctionResult, error) {
	mu := s.locks.lock(nftID)
	defer mu.Unlock()

	nft, err := s.loadNFT(ctx, nftID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if nft.Status != entity.StatusAuction || nft.Auction == nil {
		return nil, nil
	}
	if nft.Auction.EndTime.After(now) {
		// A bid that raced the sweep cannot move the deadline, but the
		// listing may have been re-created since the scan.
		return nil, nil
	}

	previousOwner := nft.Owner
	hadBids := len(nft.Auction.Bids) > 0
	finalPrice := nft.Auction.CurrentPrice
	winner := nft.Auction.HighestBidder

	if hadBids {
		nft.SettleAuction(now)
	} else {
		nft.ExpireAuctionWithoutBids(now)
	}

	if err := s.nftRepo.Update(ctx, nft); err != nil {
		return nil, err
	}

	if hadBids {
		s.log.Infof("Auction closed for NFT %s: winner %s at %.2f", nft.ID, winner, finalPrice)

		if _, err := s.txRepo.Create(ctx, &entity.Transaction{
			Type:   entity.TransactionAuctionSale,
			User:   winner,
			NFTID:  nft.ID,
			Amount: entity.Amount{Value: finalPrice, Currency: nft.Currency},
			Status: entity.TransactionCompleted,
		}); err != nil {
			s.log.Errorf("Failed to record sale transaction for NFT %s: %v", nft.ID, err)
		}

		s.notifier.Emit(entity.Notification{
			User:     winner,
			Type:     entity.NotificationAuctionWin,
			Title:    "Auction Won",
			Message:  fmt.Sprintf("You won the auction for %q at %.2f %s", nft.Name, finalPrice, nft.Currency),
			Data:     entity.NotificationData{NFTID: nft.ID, Price: finalPrice, Currency: nft.Currency},
			Priority: entity.PriorityHigh,
		})
		s.notifier.Emit(entity.Notification{
			User:     previousOwner,
			Type:     entity.NotificationAuctionEnd,
			Title:    "Auction Ended",
			Message:  fmt.Sprintf("Auction for %q ended at a final price of %.2f %s", nft.Name, finalPrice, nft.Currency),
			Data:     entity.NotificationData{NFTID: nft.ID, Price: finalPrice, Currency: nft.Currency},
			Priority: entity.PriorityMedium,
		})
		s.broadcast(StateChangeEvent{
			Kind:   EventAuctionClosed,
			NFTID:  nft.ID,
			Owner:  previousOwner,
			Winner: winner,
			Price:  finalPrice,
		})
	} else {
		s.log.Infof("Auction expired without bids for NFT %s, returned to owner %s", nft.ID, previousOwner)

		s.notifier.Emit(entity.Notification{
			User:     previousOwner,
			Type:     entity.NotificationAuctionEnd,
			Title:    "Auction Ended",
			Message:  fmt.Sprintf("Auction for %q ended without bids", nft.Name),
			Data:     entity.NotificationData{NFTID: nft.ID},
			Priority: entity.PriorityMedium,
		})
		s.broadcast(StateChangeEvent{
			Kind:  EventAuctionExpired,
			NFTID: nft.ID,
			Owner: previousOwner,
		})
	}

	return &ClosedAuctionResult{
		NFTID:      nft.ID,
		Winner:     winner,
		FinalPrice: finalPrice,
		HadBids:    hadBids,
	}, nil
}

func (s *auctionService) GetAuction(ctx context.Context, nftID string) (*entity.NFT, error) {
	return s.loadNFT(ctx, nftID)
}

func (s *auctionService) ListActiveAuctions(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error) {
	if params.Now.IsZero() {
		params.Now = s.clock.Now()
	}
	return s.nftRepo.ListActiveAuctions(ctx, params)
}

func (s *auctionService) loadNFT(ctx context.Context, nftID string) (*entity.NFT, error) {
	nft, err := s.nftRepo.GetByID(ctx, nftID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load NFT %s: %w", nftID, err)
	}
	return nft, nil
}

// broadcast publishes a state-change event without blocking the caller.
func (s *auctionService) broadcast(event StateChangeEvent) {
	if s.broadcaster == nil {
		return
	}
	event.EventID = uuid.New().String()
	event.OccurredAt = s.clock.Now()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.broadcaster.Broadcast(ctx, event); err != nil {
			s.log.Errorf("Failed to broadcast %s event for NFT %s: %v", event.Kind, event.NFTID, err)
		}
	}()
}
