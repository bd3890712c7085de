// Package scheduler runs the reminder trigger and processor on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/application"
	"github.com/enxergar/outreach/pkg/helpers"
)

const runTimeout = 10 * time.Minute

type Triggerer interface {
	Trigger(ctx context.Context, req application.TriggerRequest) (application.TriggerResult, error)
}

type Runner interface {
	Process(ctx context.Context, req application.ProcessRequest) (application.ProcessResult, error)
}

type Scheduler struct {
	cron      *cron.Cron
	trigger   Triggerer
	processor Runner
	batchSize int
	log       *logrus.Logger
	now       func() time.Time
}

func New(loc *time.Location, trigger Triggerer, processor Runner, batchSize int, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Scheduler{cron: c, trigger: trigger, processor: processor, batchSize: batchSize, log: logger, now: time.Now}
}

// Start registers both jobs. An empty expression disables that job.
func (s *Scheduler) Start(triggerSpec, processSpec string) error {
	if triggerSpec != "" {
		if _, err := s.cron.AddFunc(triggerSpec, func() { s.RunTrigger(context.Background()) }); err != nil {
			return err
		}
	}
	if processSpec != "" {
		if _, err := s.cron.AddFunc(processSpec, func() { s.RunProcess(context.Background()) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.WithFields(logrus.Fields{"trigger": triggerSpec, "process": processSpec}).Info("scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunTrigger enqueues the 24h and 48h reminders due from now.
func (s *Scheduler) RunTrigger(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	res, err := s.trigger.Trigger(ctx, application.TriggerRequest{
		Type:      application.TriggerReminder,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.WithError(err).Error("scheduled trigger failed")
		return
	}
	s.log.WithFields(logrus.Fields{"jobs_created": res.JobsCreated, "errors": len(res.Errors)}).Info("scheduled trigger finished")
}

// RunProcess drains pending jobs one batch at a time until a batch comes back empty.
func (s *Scheduler) RunProcess(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	total := 0
	for ctx.Err() == nil {
		res, err := s.processor.Process(ctx, application.ProcessRequest{BatchSize: s.batchSize})
		if err != nil {
			s.log.WithError(err).Error("scheduled processing failed")
			return
		}
		total += res.Processed
		if res.Processed == 0 {
			break
		}
		if res.Sent == 0 && res.Failed == res.Processed && len(res.Errors) > 0 {
			s.log.WithField("errors", res.Errors).Warn("whole batch failed; stopping until next run")
			break
		}
	}
	if total > 0 {
		s.log.WithField("processed", total).Info("scheduled processing finished")
	}
}
