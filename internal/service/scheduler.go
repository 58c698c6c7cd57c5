package service

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper cancels PENDING redemptions that were never attached to an order,
// refunding their points through the compensating path.
type Sweeper struct {
	loyalty       *LoyaltyService
	interval      time.Duration
	pendingMaxAge time.Duration
	sched         gocron.Scheduler
}

func NewSweeper(loyalty *LoyaltyService, interval, pendingMaxAge time.Duration) *Sweeper {
	return &Sweeper{
		loyalty:       loyalty,
		interval:      interval,
		pendingMaxAge: pendingMaxAge,
	}
}

func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = sched
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweep),
	)
	if err != nil {
		return err
	}
	sched.Start()
	log.Printf("[sweeper] cancelling pending redemptions older than %s every %s", s.pendingMaxAge, s.interval)
	return nil
}

func (s *Sweeper) Stop() {
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			log.Printf("[sweeper] shutdown: %v", err)
		}
	}
}

func (s *Sweeper) sweep() {
	cancelled, err := s.loyalty.CancelStalePending(s.pendingMaxAge)
	if err != nil {
		log.Printf("[sweeper] sweep failed: %v", err)
		return
	}
	if cancelled > 0 {
		log.Printf("[sweeper] cancelled %d expired pending redemption(s)", cancelled)
	}
}
