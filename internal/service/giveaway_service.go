package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/domain/entity"
	"github.com/RayZar23/ton-nft-market1/internal/platform/clock"
	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
	"github.com/RayZar23/ton-nft-market1/internal/repository"
	"github.com/google/uuid"
)

type CreateGiveawayParams struct {
	NFTID    string
	CallerID string
	Duration time.Duration
}

type ClosedGiveawayResult struct {
	NFTID           string
	Winner          string
	HadParticipants bool
}

type GiveawayService interface {
	CreateGiveaway(ctx context.Context, params CreateGiveawayParams) (*entity.NFT, error)
	Participate(ctx context.Context, nftID, userID string) (*entity.NFT, error)
	CancelGiveaway(ctx context.Context, nftID, callerID string) error
	CloseExpiredGiveaways(ctx context.Context, now time.Time) ([]ClosedGiveawayResult, error)
	ListActiveGiveaways(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error)
}

type GiveawayServiceConfig struct {
	MinDuration     time.Duration
	MaxDuration     time.Duration
	ConflictRetries int
}

type giveawayService struct {
	nftRepo     repository.NFTRepository
	txRepo      repository.TransactionRepository
	notifier    Notifier
	broadcaster Broadcaster
	clock       clock.Clock
	log         logger.Logger
	locks       *LockTable
	rngMu       sync.Mutex
	rng         *rand.Rand
	cfg         GiveawayServiceConfig
}

func NewGiveawayService(
	nftRepo repository.NFTRepository,
	txRepo repository.TransactionRepository,
	notifier Notifier,
	broadcaster Broadcaster,
	clk clock.Clock,
	log logger.Logger,
	locks *LockTable,
	rng *rand.Rand,
	cfg GiveawayServiceConfig,
) GiveawayService {
	if cfg.ConflictRetries <= 0 {
		cfg.ConflictRetries = defaultConflictRetries
	}
	if locks == nil {
		locks = NewLockTable()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &giveawayService{
		nftRepo:     nftRepo,
		txRepo:      txRepo,
		notifier:    notifier,
		broadcaster: broadcaster,
		clock:       clk,
		log:         log,
		locks:       locks,
		rng:         rng,
		cfg:         cfg,
	}
}

func (s *giveawayService) withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < s.cfg.ConflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, repository.ErrOptimisticLock) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrConflictRetry, err)
}

func (s *giveawayService) CreateGiveaway(ctx context.Context, params CreateGiveawayParams) (*entity.NFT, error) {
	if params.Duration < s.cfg.MinDuration || params.Duration > s.cfg.MaxDuration {
		return nil, ErrInvalidDuration
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
		loaded.StartGiveaway(now, now.Add(params.Duration))
		if err := s.nftRepo.Update(ctx, loaded); err != nil {
			return err
		}
		nft = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Giveaway started for NFT %s by owner %s, ends %s",
		nft.ID, nft.Owner, nft.Giveaway.EndTime.Format(time.RFC3339))

	s.notifier.Emit(entity.Notification{
		User:     nft.Owner,
		Type:     entity.NotificationGiveawayStart,
		Title:    "Giveaway Started",
		Message:  fmt.Sprintf("Your NFT %q has been listed for giveaway", nft.Name),
		Data:     entity.NotificationData{NFTID: nft.ID},
		Priority: entity.PriorityMedium,
	})
	s.broadcast(StateChangeEvent{
		Kind:  EventGiveawayStarted,
		NFTID: nft.ID,
		Owner: nft.Owner,
	})

	return nft, nil
}

func (s *giveawayService) Participate(ctx context.Context, nftID, userID string) (*entity.NFT, error) {
	mu := s.locks.lock(nftID)
	defer mu.Unlock()

	var nft *entity.NFT
	err := s.withConflictRetry(func() error {
		loaded, err := s.loadNFT(ctx, nftID)
		if err != nil {
			return err
		}
		if loaded.Status != entity.StatusGiveaway || loaded.Giveaway == nil {
			return ErrGiveawayNotActive
		}

		now := s.clock.Now()
		if !now.Before(loaded.Giveaway.EndTime) {
			return ErrGiveawayExpired
		}
		if loaded.Owner == userID {
			return ErrSelfParticipation
		}
		if loaded.Giveaway.HasParticipant(userID) {
			return ErrAlreadyParticipant
		}

		loaded.Giveaway.Participants = append(loaded.Giveaway.Participants, userID)
		loaded.UpdatedAt = now
		if err := s.nftRepo.Update(ctx, loaded); err != nil {
			return err
		}
		nft = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("User %s entered giveaway for NFT %s (%d participants)",
		userID, nft.ID, len(nft.Giveaway.Participants))

	s.notifier.Emit(entity.Notification{
		User:     nft.Owner,
		Type:     entity.NotificationGiveawayNew,
		Title:    "New Participant",
		Message:  fmt.Sprintf("A new user entered the giveaway for %q", nft.Name),
		Data:     entity.NotificationData{NFTID: nft.ID},
		Priority: entity.PriorityLow,
	})
	s.broadcast(StateChangeEvent{
		Kind:   EventGiveawayEntered,
		NFTID:  nft.ID,
		Owner:  nft.Owner,
		Bidder: userID,
	})

	return nft, nil
}

func (s *giveawayService) CancelGiveaway(ctx context.Context, nftID, callerID string) error {
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
		if loaded.Status != entity.StatusGiveaway || loaded.Giveaway == nil {
			return ErrGiveawayNotActive
		}
		if len(loaded.Giveaway.Participants) > 0 {
			return ErrHasParticipants
		}

		loaded.CancelGiveaway(s.clock.Now())
		if err := s.nftRepo.Update(ctx, loaded); err != nil {
			return err
		}
		nft = loaded
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("Giveaway cancelled for NFT %s by owner %s", nft.ID, callerID)

	s.notifier.Emit(entity.Notification{
		User:     nft.Owner,
		Type:     entity.NotificationGiveawayEnd,
		Title:    "Giveaway Cancelled",
		Message:  fmt.Sprintf("Giveaway for NFT %q has been cancelled", nft.Name),
		Data:     entity.NotificationData{NFTID: nft.ID},
		Priority: entity.PriorityMedium,
	})
	s.broadcast(StateChangeEvent{
		Kind:  EventGiveawayCancelled,
		NFTID: nft.ID,
		Owner: nft.Owner,
	})

	return nil
}

// CloseExpiredGiveaways draws a winner for every giveaway past its end
// time. Failures are isolated per item, same as the auction sweep.
func (s *giveawayService) CloseExpiredGiveaways(ctx context.Context, now time.Time) ([]ClosedGiveawayResult, error) {
	expired, err := s.nftRepo.FindExpiredGiveaways(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired giveaways: %w", err)
	}

	var results []ClosedGiveawayResult
	for i := range expired {
		result, err := s.closeOne(ctx, expired[i].ID, now)
		if err != nil {
			s.log.Errorf("Failed to close giveaway for NFT %s: %v", expired[i].ID, err)
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}
	return results, nil
}

func (s *giveawayService) closeOne(ctx context.Context, nftID string, now time.Time) (*ClosedGiveawayResult, error) {
	mu := s.locks.lock(nftID)
	defer mu.Unlock()

	nft, err := s.loadNFT(ctx, nftID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if nft.Status != entity.StatusGiveaway || nft.Giveaway == nil {
		return nil, nil
	}
	if nft.Giveaway.EndTime.After(now) {
		return nil, nil
	}

	previousOwner := nft.Owner
	participants := nft.Giveaway.Participants
	hadParticipants := len(participants) > 0

	var winner string
	if hadParticipants {
		winner = participants[s.draw(len(participants))]
		nft.SettleGiveaway(winner, now)
	} else {
		nft.CancelGiveaway(now)
	}

	if err := s.nftRepo.Update(ctx, nft); err != nil {
		return nil, err
	}

	if hadParticipants {
		s.log.Infof("Giveaway closed for NFT %s: winner %s of %d participants",
			nft.ID, winner, len(participants))

		if _, err := s.txRepo.Create(ctx, &entity.Transaction{
			Type:   entity.TransactionGiveaway,
			User:   winner,
			NFTID:  nft.ID,
			Amount: entity.Amount{Currency: nft.Currency},
			Status: entity.TransactionCompleted,
		}); err != nil {
			s.log.Errorf("Failed to record giveaway transaction for NFT %s: %v", nft.ID, err)
		}

		s.notifier.Emit(entity.Notification{
			User:     winner,
			Type:     entity.NotificationGiveawayWin,
			Title:    "Giveaway Won",
			Message:  fmt.Sprintf("You won the giveaway for %q", nft.Name),
			Data:     entity.NotificationData{NFTID: nft.ID},
			Priority: entity.PriorityHigh,
		})
		s.notifier.Emit(entity.Notification{
			User:     previousOwner,
			Type:     entity.NotificationGiveawayEnd,
			Title:    "Giveaway Ended",
			Message:  fmt.Sprintf("Giveaway for %q ended with %d participants", nft.Name, len(participants)),
			Data:     entity.NotificationData{NFTID: nft.ID},
			Priority: entity.PriorityMedium,
		})
		s.broadcast(StateChangeEvent{
			Kind:   EventGiveawayClosed,
			NFTID:  nft.ID,
			Owner:  previousOwner,
			Winner: winner,
		})
	} else {
		s.log.Infof("Giveaway expired without participants for NFT %s", nft.ID)

		s.notifier.Emit(entity.Notification{
			User:     previousOwner,
			Type:     entity.NotificationGiveawayEnd,
			Title:    "Giveaway Ended",
			Message:  fmt.Sprintf("Giveaway for %q ended without participants", nft.Name),
			Data:     entity.NotificationData{NFTID: nft.ID},
			Priority: entity.PriorityMedium,
		})
		s.broadcast(StateChangeEvent{
			Kind:  EventGiveawayExpired,
			NFTID: nft.ID,
			Owner: previousOwner,
		})
	}

	return &ClosedGiveawayResult{
		NFTID:           nft.ID,
		Winner:          winner,
		HadParticipants: hadParticipants,
	}, nil
}

func (s *giveawayService) ListActiveGiveaways(ctx context.Context, params repository.ListAuctionsParams) (*repository.ListAuctionsResult, error) {
	if params.Now.IsZero() {
		params.Now = s.clock.Now()
	}
	return s.nftRepo.ListActiveGiveaways(ctx, params)
}

// draw picks a participant index. The RNG is shared by every sweep path
// (ticker loop, admin trigger) and must not be hit concurrently.
func (s *giveawayService) draw(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func (s *giveawayService) loadNFT(ctx context.Context, nftID string) (*entity.NFT, error) {
	nft, err := s.nftRepo.GetByID(ctx, nftID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load NFT %s: %w", nftID, err)
	}
	return nft, nil
}

func (s *giveawayService) broadcast(event StateChangeEvent) {
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
