package service

import (
	"context"
	"time"

	"github.com/RayZar23/ton-nft-market1/internal/platform/clock"
	"github.com/RayZar23/ton-nft-market1/internal/platform/logger"
)

// Sweeper drives auction and giveaway expiry on a fixed interval so
// listings close on time regardless of traffic. Each pass operates under
// the per-item locks of the services it calls, so it is safe alongside
// concurrent request handling.
type Sweeper struct {
	auctions  AuctionService
	giveaways GiveawayService
	clock     clock.Clock
	log       logger.Logger
	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
}

func NewSweeper(
	auctions AuctionService,
	giveaways GiveawayService,
	clk clock.Clock,
	log logger.Logger,
	interval time.Duration,
) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Sweeper{
		auctions:  auctions,
		giveaways: giveaways,
		clock:     clk,
		log:       log,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.run()
	s.log.Infof("Sweeper started with interval %s", s.interval)
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Sweep runs one expiry pass. Exposed for the administrative trigger and
// for tests; the background loop calls it on every tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clock.Now()

	closed, err := s.auctions.CloseExpiredAuctions(ctx, now)
	if err != nil {
		s.log.Errorf("Auction sweep pass failed: %v", err)
	} else if len(closed) > 0 {
		s.log.Infof("Auction sweep closed %d auctions", len(closed))
	}

	if s.giveaways != nil {
		drawn, err := s.giveaways.CloseExpiredGiveaways(ctx, now)
		if err != nil {
			s.log.Errorf("Giveaway sweep pass failed: %v", err)
		} else if len(drawn) > 0 {
			s.log.Infof("Giveaway sweep closed %d giveaways", len(drawn))
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
	s.log.Info("Sweeper stopped")
}
