package app

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ludo-technologies/tcagate/domain"
)

// ReportPublisher writes the final report and keeps a copy in the archive
type ReportPublisher struct {
	store   domain.ResultStore
	archive domain.ReportArchive
	prefix  string
}

// NewReportPublisher creates a publisher. archive may be nil.
func NewReportPublisher(store domain.ResultStore, archive domain.ReportArchive, prefix string) *ReportPublisher {
	return &ReportPublisher{store: store, archive: archive, prefix: prefix}
}

// Publish writes the report to reportPath and archives it under a new run
// id. Archive failures are logged and do not affect the outcome.
func (p *ReportPublisher) Publish(ctx context.Context, reportPath string, report *domain.StatusReport) (*domain.ScanOutcome, error) {
	outcome := &domain.ScanOutcome{RunID: uuid.NewString(), Report: report}

	if err := p.store.WriteReport(reportPath, report); err != nil {
		return outcome, err
	}

	if p.archive == nil {
		return outcome, nil
	}
	data, err := report.Marshal()
	if err != nil {
		log.Warnf("report not archived: %v", err)
		return outcome, nil
	}
	key := ArchiveKey(p.prefix, outcome.RunID)
	if err := p.archive.Put(ctx, key, data); err != nil {
		log.Warnf("report not archived: %v", err)
		return outcome, nil
	}
	log.Infof("report archived as %s", key)
	outcome.ArchiveKey = key
	return outcome, nil
}

// ArchiveKey returns the object key of a run's report
func ArchiveKey(prefix, runID string) string {
	key := runID + ".json"
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = path.Join(prefix, key)
	}
	return key
}

// errorReport builds the report written when the pipeline cannot produce a verdict
func errorReport(text string, err error) *domain.StatusReport {
	return domain.NewStatusReport(&domain.GateVerdict{
		Status:      domain.StatusError,
		Text:        text,
		Description: err.Error(),
	}, nil)
}
