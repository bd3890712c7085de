package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/enxergar/outreach/internal/domain/entity"
	repo "github.com/enxergar/outreach/internal/domain/repository"
	"github.com/enxergar/outreach/internal/notify"
	"github.com/enxergar/outreach/pkg/helpers"
)

const (
	DefaultBatchSize = 50
	MaxBatchSize     = 500

	errNoUsableContact = "no usable contact"
)

// channelOrder is the order channels are attempted for each job.
var channelOrder = []entity.TemplateType{entity.TemplateEmail, entity.TemplateWhatsApp, entity.TemplateSMS}

type ProcessRequest struct {
	BatchSize int
	TestMode  bool
}

// JobPreview is what a job would have sent in test mode.
type JobPreview struct {
	JobID string `json:"jobId"`
	notify.Result
}

type ProcessResult struct {
	Processed int          `json:"processed"`
	Sent      int          `json:"sent"`
	Failed    int          `json:"failed"`
	Errors    []string     `json:"errors,omitempty"`
	Previews  []JobPreview `json:"previews,omitempty"`
	TestMode  bool         `json:"testMode"`
}

// ReminderProcessor claims pending jobs and delivers them over every usable channel.
type ReminderProcessor struct {
	Jobs      repo.ReminderJobRepository
	Resolver  *VariableResolver
	Notifiers map[entity.TemplateType]notify.Notifier
	Logger    *logrus.Logger
	Now       func() time.Time
}

func NewReminderProcessor(jobs repo.ReminderJobRepository, resolver *VariableResolver, logger *logrus.Logger, notifiers ...notify.Notifier) *ReminderProcessor {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	if resolver == nil {
		resolver = &VariableResolver{}
	}
	m := make(map[entity.TemplateType]notify.Notifier, len(notifiers))
	for _, n := range notifiers {
		m[n.Channel()] = n
	}
	return &ReminderProcessor{Jobs: jobs, Resolver: resolver, Notifiers: m, Logger: logger, Now: time.Now}
}

// ReminderTemplateName is the stored template a channel uses for a reminder type.
func ReminderTemplateName(ch entity.TemplateType, rt entity.ReminderType) string {
	return "lembrete_" + string(ch) + "_" + string(rt)
}

func normalizeBatch(n int) int {
	switch {
	case n <= 0:
		return DefaultBatchSize
	case n > MaxBatchSize:
		return MaxBatchSize
	default:
		return n
	}
}

func (p *ReminderProcessor) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	start := time.Now()
	defer func() { mBatchDuration.Observe(time.Since(start).Seconds()) }()

	res := ProcessResult{TestMode: req.TestMode}
	claimed, err := p.Jobs.ClaimPending(ctx, normalizeBatch(req.BatchSize))
	if err != nil {
		return res, fmt.Errorf("claim reminder jobs: %w", err)
	}
	if len(claimed) == 0 {
		return res, nil
	}
	p.Logger.WithFields(logrus.Fields{"claimed": len(claimed), "test_mode": req.TestMode}).Info("processing reminder jobs")

	// Outcomes and releases are written even after ctx is done so no claimed
	// job is left in processing.
	store := context.WithoutCancel(ctx)
	for i, cj := range claimed {
		if err := ctx.Err(); err != nil {
			p.release(store, claimed[i:], &res)
			return res, fmt.Errorf("process reminder jobs interrupted: %w", err)
		}
		out := p.processJob(ctx, cj, req.TestMode, &res)
		if err := p.Jobs.Complete(store, cj.Job.ID, out); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to update job %s: %v", cj.Job.ID, err))
			p.Logger.WithError(err).WithField("job_id", cj.Job.ID).Error("complete job failed")
		}
		res.Processed++
		if out.Status == entity.JobSent {
			res.Sent++
		} else {
			res.Failed++
		}
		mJobsProcessed.WithLabelValues(string(out.Status)).Inc()
	}
	return res, nil
}

// release puts claimed jobs that were never attempted back to pending.
func (p *ReminderProcessor) release(ctx context.Context, rest []entity.ClaimedJob, res *ProcessResult) {
	ids := make([]string, len(rest))
	for i, cj := range rest {
		ids[i] = cj.Job.ID
	}
	n, err := p.Jobs.Release(ctx, ids)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("failed to release %d jobs: %v", len(ids), err))
		p.Logger.WithError(err).WithField("jobs", ids).Error("release claimed jobs failed")
		return
	}
	res.Errors = append(res.Errors, fmt.Sprintf("batch interrupted: %d jobs returned to pending", n))
	p.Logger.WithField("released", n).Warn("reminder batch interrupted")
}

// processJob always returns a terminal outcome, including after a panic.
func (p *ReminderProcessor) processJob(ctx context.Context, cj entity.ClaimedJob, testMode bool, res *ProcessResult) (out entity.JobOutcome) {
	job := cj.Job
	log := p.Logger.WithFields(logrus.Fields{"job_id": job.ID, "reminder_type": job.ReminderType})

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("job %s failed: %v", job.ID, r)
			log.WithField("panic", r).Error("reminder job panicked")
			res.Errors = append(res.Errors, msg)
			out = entity.JobOutcome{Status: entity.JobFailed, ErrorMessage: msg, CompletedAt: p.Now()}
		}
	}()

	vars := p.Resolver.Resolve(cj.Patient, cj.EventDate, ResolveOptions{IncludeLinks: true, LinkID: job.ID})
	recipient := notify.Recipient{Name: cj.Patient.Name, Email: cj.Patient.Email, Phone: cj.Patient.Phone}

	var failures []string
	attempted := false
	for _, ch := range channelOrder {
		if !usable(ch, cj.Patient) {
			continue
		}
		attempted = true
		n, ok := p.Notifiers[ch]
		if !ok {
			msg := fmt.Sprintf("%s: provider not configured", ch)
			failures = append(failures, msg)
			res.Errors = append(res.Errors, fmt.Sprintf("job %s: %s", job.ID, msg))
			continue
		}
		r, err := n.Send(ctx, notify.Message{
			TemplateName: ReminderTemplateName(ch, job.ReminderType),
			Variables:    vars,
			Recipient:    recipient,
			TestMode:     testMode,
			JobID:        job.ID,
		})
		if err != nil {
			mChannelAttempts.WithLabelValues(string(ch), "failed").Inc()
			msg := fmt.Sprintf("%s failed for job %s: %v", ch, job.ID, err)
			failures = append(failures, msg)
			res.Errors = append(res.Errors, msg)
			continue
		}
		mChannelAttempts.WithLabelValues(string(ch), "sent").Inc()
		switch ch {
		case entity.TemplateEmail:
			out.EmailSent = true
		case entity.TemplateWhatsApp:
			out.WhatsAppSent = true
		case entity.TemplateSMS:
			out.SMSSent = true
		}
		if testMode {
			res.Previews = append(res.Previews, JobPreview{JobID: job.ID, Result: r})
		}
	}

	out.CompletedAt = p.Now()
	switch {
	case out.EmailSent || out.WhatsAppSent || out.SMSSent:
		out.Status = entity.JobSent
		out.ErrorMessage = strings.Join(failures, "; ")
	case !attempted:
		out.Status = entity.JobFailed
		out.ErrorMessage = errNoUsableContact
		res.Errors = append(res.Errors, fmt.Sprintf("job %s: %s", job.ID, errNoUsableContact))
	default:
		out.Status = entity.JobFailed
		out.ErrorMessage = strings.Join(failures, "; ")
	}
	log.WithField("status", out.Status).Info("reminder job completed")
	return out
}

func usable(ch entity.TemplateType, p entity.Patient) bool {
	if ch == entity.TemplateEmail {
		return strings.TrimSpace(p.Email) != ""
	}
	return strings.TrimSpace(p.Phone) != ""
}
