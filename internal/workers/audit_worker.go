package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/pkg/logger"
	"github.com/avolkhov/newspulse/pkg/metrics"
	"github.com/avolkhov/newspulse/pkg/models"
)

// NarrativeAuditor runs one read-only consistency pass
type NarrativeAuditor interface {
	Audit(ctx context.Context) (*models.AuditReport, error)
}

// AuditNotifier delivers audit findings to operators
type AuditNotifier interface {
	SendAuditReport(ctx context.Context, report *models.AuditReport) error
}

// AuditWorker periodically audits narrative bookkeeping. It reports
// findings and never repairs: repair stays an explicit operator action
// (cmd/audit -repair).
type AuditWorker struct {
	auditor  NarrativeAuditor
	buffer   metrics.Buffer
	notifier AuditNotifier
}

// NewAuditWorker creates new audit worker. notifier may be nil.
func NewAuditWorker(auditor NarrativeAuditor, buffer metrics.Buffer, notifier AuditNotifier) *AuditWorker {
	return &AuditWorker{
		auditor:  auditor,
		buffer:   buffer,
		notifier: notifier,
	}
}

// Name returns worker name for logging
func (w *AuditWorker) Name() string {
	return "narrative-audit"
}

// Run executes one audit pass
func (w *AuditWorker) Run(ctx context.Context) error {
	started := time.Now()

	report, err := w.auditor.Audit(ctx)
	if err != nil {
		return err
	}

	metric := &metrics.AuditRunMetric{
		Timestamp:          started,
		NarrativesScanned:  report.NarrativesScanned,
		CountMismatches:    report.CountMismatches,
		DuplicateSets:      report.DuplicateSets,
		NarrativesOrphaned: report.NarrativesOrphaned,
		DurationMs:         time.Since(started).Milliseconds(),
	}
	if err := w.buffer.Add(metric); err != nil {
		logger.Warn("failed to record audit run metric", zap.Error(err))
	}

	if report.Clean() {
		logger.Debug("narrative audit clean",
			zap.Int("scanned", report.NarrativesScanned),
		)
		return nil
	}

	logger.Warn("narrative audit found inconsistencies",
		zap.Int("findings", len(report.Findings)),
		zap.Int("count_mismatches", report.CountMismatches),
		zap.Int("duplicate_sets", report.DuplicateSets),
		zap.Int("with_orphans", report.NarrativesOrphaned),
	)

	if w.notifier != nil {
		if err := w.notifier.SendAuditReport(ctx, report); err != nil {
			logger.Warn("failed to send audit report", zap.Error(err))
		}
	}

	return nil
}
