package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mJobsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_jobs_enqueued_total", Help: "Reminder jobs created by the trigger",
	}, []string{"reminder_type"})
	mJobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_jobs_processed_total", Help: "Reminder jobs finished, by final status",
	}, []string{"status"})
	mChannelAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_channel_attempts_total", Help: "Channel sends, by channel and result",
	}, []string{"channel", "result"})
	mProviderStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_provider_status_total", Help: "Provider delivery status callbacks, by status",
	}, []string{"status"})
	mBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "reminder_batch_duration_seconds", Help: "Duration of one processor run",
		Buckets: prometheus.DefBuckets,
	})
)
