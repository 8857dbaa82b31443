package sessioninfra

import (
	"context"
	"time"

	"github.com/flagforge/flagforge/pkg/iam/session"
	"github.com/flagforge/flagforge/pkg/logx"
	"github.com/robfig/cron/v3"
)

// CleanupService periodically sweeps expired refresh sessions so the table
// does not accumulate dead chains. Expired tokens are already rejected at
// rotate time; the sweep is hygiene, not correctness.
type CleanupService struct {
	store    session.Store
	schedule string
	cron     *cron.Cron
}

// NewCleanupService builds a sweep on the given cron schedule
// (e.g. "@every 1h").
func NewCleanupService(store session.Store, schedule string) *CleanupService {
	return &CleanupService{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers and starts the sweep job.
func (c *CleanupService) Start() error {
	_, err := c.cron.AddFunc(c.schedule, c.sweep)
	if err != nil {
		return err
	}
	c.cron.Start()
	logx.Infof("session cleanup scheduled: %s", c.schedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (c *CleanupService) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CleanupService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := c.store.DeleteExpired(ctx)
	if err != nil {
		logx.WithError(err).Error("session cleanup sweep failed")
		return
	}
	if removed > 0 {
		logx.Infof("session cleanup removed %d expired sessions", removed)
	}
}
