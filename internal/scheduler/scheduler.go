package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/fintrack/internal/config"
	"github.com/Dan9191/fintrack/internal/models"
	"github.com/Dan9191/fintrack/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 5 * time.Minute

// Jobs is the part of the service the scheduler drives.
type Jobs interface {
	Reconcile(ctx context.Context) (models.ReconcileReport, error)
	SendDigests(ctx context.Context, mailer service.DigestMailer, days int) (int, error)
}

// Scheduler runs periodic maintenance: linkage reconciliation and, when a
// mailer is configured, the weekly digest.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	mailer service.DigestMailer
	days   int
	log    *logrus.Logger
}

// New registers the jobs enabled in cfg. A nil mailer disables the digest.
func New(jobs Jobs, mailer service.DigestMailer, cfg *config.Config, log *logrus.Logger) (*Scheduler, error) {
	cronLog := cron.PrintfLogger(log)
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		jobs:   jobs,
		mailer: mailer,
		days:   cfg.DigestDays,
		log:    log,
	}

	if cfg.ReconcileSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.ReconcileSchedule, s.reconcile); err != nil {
			return nil, fmt.Errorf("failed to schedule reconciliation: %w", err)
		}
		log.Infof("Reconciliation scheduled: %s", cfg.ReconcileSchedule)
	}
	if cfg.DigestSchedule != "" && mailer != nil {
		if _, err := s.cron.AddFunc(cfg.DigestSchedule, s.digest); err != nil {
			return nil, fmt.Errorf("failed to schedule digest: %w", err)
		}
		log.Infof("Digest scheduled: %s", cfg.DigestSchedule)
	}
	return s, nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Run starts the cron loop and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	s.log.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.jobs.Reconcile(ctx)
	if err != nil {
		s.log.Errorf("Reconciliation failed: %v", err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"relinked": report.Relinked,
		"unlinked": report.Unlinked,
	}).Info("Reconciliation finished")
}

func (s *Scheduler) digest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := s.jobs.SendDigests(ctx, s.mailer, s.days)
	if err != nil {
		s.log.Errorf("Digest run failed: %v", err)
		return
	}
	s.log.Infof("Digest sent to %d users", sent)
}
