package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opsdesk/dailyclose/pkg/facts"
	"github.com/opsdesk/dailyclose/pkg/filestore"
	"github.com/opsdesk/dailyclose/pkg/ledger"
	"github.com/opsdesk/dailyclose/pkg/mailer"
	"github.com/opsdesk/dailyclose/pkg/observability"
	"github.com/opsdesk/dailyclose/pkg/summary"
	"github.com/opsdesk/dailyclose/pkg/workbook"
)

// Service runs the daily close pipeline for one as-of date.
type Service interface {
	Run(ctx context.Context, asOfDate string) (*Result, error)
}

type service struct {
	log    logrus.FieldLogger
	cfg    *Config
	store  filestore.Store
	sender mailer.Sender
	ledger ledger.Ledger
}

// NewService creates a pipeline service. Configuration problems fail here,
// before any I/O.
func NewService(log logrus.FieldLogger, cfg *Config, store filestore.Store, sender mailer.Sender, runLedger ledger.Ledger) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	return &service{
		log:    log.WithField("service", "pipeline"),
		cfg:    cfg,
		store:  store,
		sender: sender,
		ledger: runLedger,
	}, nil
}

// Run executes one daily close. At most one invocation per date proceeds
// past lock acquisition; a completed date short-circuits idempotently.
func (s *service) Run(ctx context.Context, asOfDate string) (*Result, error) {
	started := time.Now()

	result, err := s.run(ctx, asOfDate)
	if err != nil {
		observability.RecordRun("error", time.Since(started))
		return nil, err
	}

	observability.RecordRun(string(result.Status), time.Since(started))

	return result, nil
}

func (s *service) run(ctx context.Context, asOfDate string) (*Result, error) {
	log := s.log.WithField("as_of_date", asOfDate)

	if record, err := s.ledger.GetSuccess(ctx, asOfDate); err != nil {
		return nil, fmt.Errorf("failed to check run ledger: %w", err)
	} else if record != nil {
		log.WithField("run_id", record.RunID).Info("Date already sent, skipping")
		return alreadySentResult(record), nil
	}

	if err := s.ledger.Acquire(ctx, asOfDate); err != nil {
		if errors.Is(err, ledger.ErrAlreadyRunning) {
			log.Info("Another run holds the lock for this date")
			return &Result{Status: StatusRunning, AsOfDate: asOfDate}, nil
		}

		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	// The lock clears on every exit path, success or failure.
	defer func() {
		if err := s.ledger.Release(context.WithoutCancel(ctx), asOfDate); err != nil {
			log.WithError(err).Warn("Failed to release run lock")
		}
	}()

	tables, notReady, err := s.collectInputs(ctx, log, asOfDate)
	if err != nil {
		return nil, err
	}
	if notReady != nil {
		return notReady, nil
	}

	daily, long, err := facts.Build(tables, asOfDate)
	if err != nil {
		return nil, fmt.Errorf("failed to build fact tables: %w", err)
	}
	observability.RecordFactRows(len(daily.Rows), len(long.Rows))

	log.WithFields(logrus.Fields{
		"fact_daily_rows": len(daily.Rows),
		"fact_long_rows":  len(long.Rows),
	}).Info("Built fact tables")

	output, err := s.renderOutput(ctx, daily, long)
	if err != nil {
		return nil, err
	}

	attachName := asOfDate + "_confirmed-actuals.xlsx"
	if err := s.sendReport(ctx, asOfDate, attachName, output, daily); err != nil {
		return nil, err
	}

	s.archiveMonthly(ctx, log, asOfDate, output)

	record := &ledger.Record{
		AsOfDate:           asOfDate,
		RunID:              uuid.NewString(),
		FactDailyRows:      len(daily.Rows),
		FactLongRows:       len(long.Rows),
		AttachmentFilename: attachName,
		CompletedAt:        time.Now().UTC(),
	}
	if err := s.ledger.MarkSucceeded(ctx, asOfDate, record); err != nil {
		return nil, fmt.Errorf("failed to record run success: %w", err)
	}

	log.WithField("run_id", record.RunID).Info("Daily close completed")

	return &Result{
		Status:             StatusOK,
		AsOfDate:           asOfDate,
		RunID:              record.RunID,
		FactDailyRows:      record.FactDailyRows,
		FactLongRows:       record.FactLongRows,
		AttachmentFilename: attachName,
	}, nil
}

// collectInputs locates the daily folder, validates the required files, and
// parses each file's Data sheet. Readiness problems are results, not errors.
func (s *service) collectInputs(ctx context.Context, log logrus.FieldLogger, asOfDate string) (map[string]*facts.Table, *Result, error) {
	folder, err := s.store.FindChildFolder(ctx, s.cfg.InputFolderID, asOfDate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up daily folder: %w", err)
	}
	if folder == nil {
		log.Info("Daily folder not found, inputs not ready")
		return nil, &Result{
			Status:   StatusNotReady,
			AsOfDate: asOfDate,
			Reason:   "daily folder not found: " + asOfDate,
		}, nil
	}

	children, err := s.store.ListChildren(ctx, folder.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list daily folder: %w", err)
	}

	fileIDs := make(map[string]string, len(children))
	for _, child := range children {
		if child.IsFolder {
			continue
		}
		fileIDs[child.Name] = child.ID
	}

	var missing []string
	for _, rf := range RequiredFiles {
		if _, ok := fileIDs[rf.Filename]; !ok {
			missing = append(missing, rf.Filename)
		}
	}
	if len(missing) > 0 {
		log.WithField("missing_files", missing).Info("Required files missing, inputs not ready")
		return nil, &Result{
			Status:       StatusNotReady,
			AsOfDate:     asOfDate,
			Reason:       "required files missing",
			MissingFiles: missing,
		}, nil
	}

	tables := make(map[string]*facts.Table, len(RequiredFiles))
	for _, rf := range RequiredFiles {
		data, err := s.store.Download(ctx, fileIDs[rf.Filename])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to download %s: %w", rf.Filename, err)
		}

		table, err := workbook.ReadTable(data, workbook.DataSheet)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", rf.Filename, err)
		}
		tables[rf.Metric] = table
	}

	return tables, nil, nil
}

func (s *service) renderOutput(ctx context.Context, daily *facts.DailyFact, long *facts.LongFact) ([]byte, error) {
	templateBytes, err := s.store.Download(ctx, s.cfg.TemplateFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download template: %w", err)
	}

	output, err := workbook.RenderTemplate(templateBytes, daily, long)
	if err != nil {
		return nil, fmt.Errorf("failed to render output workbook: %w", err)
	}

	return output, nil
}

func (s *service) sendReport(ctx context.Context, asOfDate, attachName string, output []byte, daily *facts.DailyFact) error {
	summaryText := s.summarize(daily, asOfDate)

	body, err := renderMailBody(asOfDate, summaryText)
	if err != nil {
		return err
	}

	msg := &mailer.Message{
		Subject:        fmt.Sprintf("%s %s 実績レポート", s.cfg.SubjectPrefix, asOfDate),
		Body:           body,
		AttachmentName: attachName,
		Attachment:     output,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		observability.RecordMailSend("failed")
		return fmt.Errorf("failed to send report mail: %w", err)
	}
	observability.RecordMailSend("success")

	return nil
}

// summarize computes the KPI summary text. Summary generation must never
// block the mail send: any failure degrades to a one-line notice in the
// body.
func (s *service) summarize(daily *facts.DailyFact, asOfDate string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("Summary generation failed")
			text = fmt.Sprintf("要約生成に失敗しました: %v", r)
		}
	}()

	return summary.Summarize(daily, asOfDate, s.cfg.Targets).Render()
}

// archiveMonthly overwrites the month-bucketed output file. The mail is
// already delivered at this point, so an archive failure only logs; a rerun
// would duplicate the send.
func (s *service) archiveMonthly(ctx context.Context, log logrus.FieldLogger, asOfDate string, output []byte) {
	if s.cfg.OutputRootID == "" {
		return
	}

	month := asOfDate
	if len(month) >= 7 {
		month = asOfDate[:7]
	}

	folder, err := s.store.EnsureFolder(ctx, s.cfg.OutputRootID, month)
	if err != nil {
		log.WithError(err).Error("Failed to ensure monthly output folder")
		return
	}

	res, err := s.store.Upsert(ctx, folder.ID, month+"_confirmed-actuals.xlsx", output)
	if err != nil {
		log.WithError(err).Error("Failed to write monthly output file")
		return
	}

	log.WithFields(logrus.Fields{
		"month": month,
		"mode":  res.Mode,
		"file":  res.ID,
	}).Info("Monthly output written")
}

func alreadySentResult(record *ledger.Record) *Result {
	return &Result{
		Status:             StatusAlreadySent,
		AsOfDate:           record.AsOfDate,
		RunID:              record.RunID,
		FactDailyRows:      record.FactDailyRows,
		FactLongRows:       record.FactLongRows,
		AttachmentFilename: record.AttachmentFilename,
	}
}

var _ Service = (*service)(nil)
