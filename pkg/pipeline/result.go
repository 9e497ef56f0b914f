package pipeline

// Status is the terminal state of one run invocation.
type Status string

// Run statuses. Input-readiness and duplicate-execution states are business
// results returned as data, never errors.
const (
	// StatusOK marks a completed run with the report mailed.
	StatusOK Status = "ok"
	// StatusNotReady marks an expected not-ready state: the daily folder or
	// required files are absent and a scheduler may retry later.
	StatusNotReady Status = "not_ready"
	// StatusRunning marks a rejected invocation because another run for the
	// same date holds the lock.
	StatusRunning Status = "running"
	// StatusAlreadySent marks an idempotent short-circuit: the date already
	// has a success record and the pipeline was not re-run.
	StatusAlreadySent Status = "already_sent"
)

// Result is the structured outcome of one run invocation.
type Result struct {
	Status             Status   `json:"status"`
	AsOfDate           string   `json:"as_of_date"`
	RunID              string   `json:"run_id,omitempty"`
	FactDailyRows      int      `json:"fact_daily_rows,omitempty"`
	FactLongRows       int      `json:"fact_long_rows,omitempty"`
	AttachmentFilename string   `json:"attachment_filename,omitempty"`
	MissingFiles       []string `json:"missing_files,omitempty"`
	Reason             string   `json:"reason,omitempty"`
}
