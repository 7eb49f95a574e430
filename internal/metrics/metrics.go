// Package metrics exports Prometheus metrics for backup and restore runs.
//
// Metrics:
//   - lockbox_backup_runs_total{outcome}: backups by outcome
//   - lockbox_backup_duration_seconds: backup wall time
//   - lockbox_backup_items{category}: items written by the last backup
//   - lockbox_restore_runs_total{outcome}: restores by outcome
//   - lockbox_restore_duration_seconds: restore wall time
//   - lockbox_restore_items_total{category,result}: restored and skipped items
//   - lockbox_failed_items_total{op,category}: per-item failures
//   - lockbox_transport_errors_total{op,kind}: fatal remote errors by kind
//   - lockbox_last_backup_timestamp_seconds: time of the last successful backup
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lockboxapp/lockbox-server/internal/backup"
	"github.com/lockboxapp/lockbox-server/internal/transport"
)

// Run outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeIssues           = "issues"
	OutcomeError            = "error"
	OutcomePasswordRequired = "password_required"
)

// Recorder implements backup.Observer on a Prometheus registry.
type Recorder struct {
	backupRuns      *prometheus.CounterVec
	backupDuration  prometheus.Histogram
	backupItems     *prometheus.GaugeVec
	restoreRuns     *prometheus.CounterVec
	restoreDuration prometheus.Histogram
	restoreItems    *prometheus.CounterVec
	failedItems     *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	lastBackup      prometheus.Gauge
	now             func() time.Time
}

var _ backup.Observer = (*Recorder)(nil)

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	buckets := []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}
	return &Recorder{
		backupRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lockbox_backup_runs_total",
			Help: "Total number of backup runs by outcome",
		}, []string{"outcome"}),
		backupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lockbox_backup_duration_seconds",
			Help:    "Duration of backup runs in seconds",
			Buckets: buckets,
		}),
		backupItems: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lockbox_backup_items",
			Help: "Items written by the most recent backup, by category",
		}, []string{"category"}),
		restoreRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lockbox_restore_runs_total",
			Help: "Total number of restore runs by outcome",
		}, []string{"outcome"}),
		restoreDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lockbox_restore_duration_seconds",
			Help:    "Duration of restore runs in seconds",
			Buckets: buckets,
		}),
		restoreItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lockbox_restore_items_total",
			Help: "Items handled by restores, by category and result",
		}, []string{"category", "result"}),
		failedItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lockbox_failed_items_total",
			Help: "Items that failed during a backup or restore",
		}, []string{"op", "category"}),
		transportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lockbox_transport_errors_total",
			Help: "Fatal remote store errors by kind",
		}, []string{"op", "kind"}),
		lastBackup: f.NewGauge(prometheus.GaugeOpts{
			Name: "lockbox_last_backup_timestamp_seconds",
			Help: "Unix time of the last successful backup upload",
		}),
		now: time.Now,
	}
}

// BackupFinished implements backup.Observer.
func (r *Recorder) BackupFinished(report *backup.BackupReport, elapsed time.Duration, err error) {
	r.backupDuration.Observe(elapsed.Seconds())
	r.recordTransport("backup", err)
	if report != nil {
		for cat, n := range countsByCategory(report.Succeeded) {
			r.backupItems.WithLabelValues(string(cat)).Set(float64(n))
		}
		for _, f := range report.Failed {
			r.failedItems.WithLabelValues("backup", string(f.Category)).Inc()
		}
		if err == nil {
			r.lastBackup.Set(float64(r.now().Unix()))
		}
	}
	r.backupRuns.WithLabelValues(outcome(err, report != nil && report.HasIssues())).Inc()
}

// RestoreFinished implements backup.Observer.
func (r *Recorder) RestoreFinished(report *backup.RestoreReport, elapsed time.Duration, err error) {
	r.restoreDuration.Observe(elapsed.Seconds())
	r.recordTransport("restore", err)
	if report != nil {
		for cat, n := range countsByCategory(report.Restored) {
			r.restoreItems.WithLabelValues(string(cat), "restored").Add(float64(n))
		}
		for cat, n := range countsByCategory(report.Skipped) {
			r.restoreItems.WithLabelValues(string(cat), "skipped").Add(float64(n))
		}
		for _, f := range report.Failed {
			r.failedItems.WithLabelValues("restore", string(f.Category)).Inc()
		}
	}
	r.restoreRuns.WithLabelValues(outcome(err, report != nil && report.HasIssues())).Inc()
}

func (r *Recorder) recordTransport(op string, err error) {
	var te *transport.Error
	if errors.As(err, &te) {
		r.transportErrors.WithLabelValues(op, te.Kind.String()).Inc()
	}
}

func outcome(err error, issues bool) string {
	switch {
	case errors.Is(err, backup.ErrPasswordRequired):
		return OutcomePasswordRequired
	case err != nil:
		return OutcomeError
	case issues:
		return OutcomeIssues
	default:
		return OutcomeSuccess
	}
}

func countsByCategory(c backup.ItemCounts) map[backup.Category]int {
	return map[backup.Category]int{
		backup.CategoryPassword:         c.Passwords,
		backup.CategoryNote:             c.Notes,
		backup.CategoryTOTP:             c.TOTP,
		backup.CategoryBankCard:         c.BankCards,
		backup.CategoryDocument:         c.Documents,
		backup.CategoryImage:            c.Images,
		backup.CategoryGeneratorHistory: c.GeneratorHistory,
	}
}
