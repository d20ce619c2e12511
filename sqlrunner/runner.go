// Package sqlrunner executes raw SQL against the project warehouse
// through the Lightdash SQL runner job flow: submit, poll the
// scheduler, download the result file.
package sqlrunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lightdash-go/domain"
	"lightdash-go/transport"
)

// Defaults for the scheduler poll loop.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTimeout      = 5 * time.Minute
	DefaultLimit        = 500
)

// API is the SQL runner surface the runner needs from the transport.
type API interface {
	RunSQL(ctx context.Context, sql string, limit int) (transport.SQLSubmission, error)
	SQLJob(ctx context.Context, jobID string) (transport.SQLJobResult, error)
	FetchSQLResults(ctx context.Context, resultsURL string) ([]domain.Row, error)
}

// Options tunes the poll loop.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Runner submits raw SQL and waits for the scheduler to finish it.
type Runner struct {
	api          API
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a runner with the given options applied over defaults.
func New(api API, opts ...Options) *Runner {
	r := &Runner{
		api:          api,
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
		now:          time.Now,
		sleep:        sleepCtx,
	}
	if len(opts) > 0 {
		opt := opts[0]
		if opt.PollInterval > 0 {
			r.pollInterval = opt.PollInterval
		}
		if opt.Timeout > 0 {
			r.timeout = opt.Timeout
		}
		if opt.Logger != nil {
			r.logger = opt.Logger
		}
	}
	return r
}

// Execute runs the SQL statement and blocks until the job finishes,
// fails, or the poll budget runs out.
func (r *Runner) Execute(ctx context.Context, sql string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	submission, err := r.api.RunSQL(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("submit sql: %w", err)
	}
	if submission.JobID == "" {
		// Synchronous servers return rows directly.
		return newResult(submission.Rows, nil), nil
	}

	r.logger.DebugContext(ctx, "sql job submitted", "job_id", submission.JobID)
	start := r.now()
	for {
		job, err := r.api.SQLJob(ctx, submission.JobID)
		if err != nil {
			return nil, fmt.Errorf("poll sql job %s: %w", submission.JobID, err)
		}
		switch job.Status {
		case transport.SQLJobCompleted:
			return r.collect(ctx, submission.JobID, job)
		case transport.SQLJobError:
			message := job.Error
			if message == "" {
				message = "sql query failed"
			}
			return nil, &domain.QueryError{QueryUUID: submission.JobID, Message: message}
		}

		elapsed := r.now().Sub(start)
		if elapsed >= r.timeout {
			return nil, &domain.QueryTimeoutError{QueryUUID: submission.JobID, Elapsed: elapsed, Budget: r.timeout}
		}
		if err := r.sleep(ctx, r.pollInterval); err != nil {
			return nil, fmt.Errorf("wait for sql job %s: %w", submission.JobID, err)
		}
	}
}

func (r *Runner) collect(ctx context.Context, jobID string, job transport.SQLJobResult) (*Result, error) {
	if job.ResultsURL == "" {
		return newResult(nil, job.Columns), nil
	}
	rows, err := r.api.FetchSQLResults(ctx, job.ResultsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch results of sql job %s: %w", jobID, err)
	}
	return newResult(rows, job.Columns), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
