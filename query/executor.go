package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lightdash-go/domain"
)

// Transport is the narrow contract the executor needs from the REST
// layer. Implementations must map API error envelopes to typed errors
// from the domain package.
type Transport interface {
	// SubmitQuery submits a metric-query payload and returns the
	// assigned query UUID with the result field metadata.
	SubmitQuery(ctx context.Context, payload map[string]any) (queryUUID string, fields domain.Fields, err error)
	// PollStatus reports the query state, including the requested
	// page and result totals once the query is ready.
	PollStatus(ctx context.Context, queryUUID string, page, pageSize int) (domain.StatusResponse, error)
	// FetchPage fetches one page of a completed query.
	FetchPage(ctx context.Context, queryUUID string, page, pageSize int) (domain.ResultPage, error)
	// CancelQuery requests cancellation. Best effort: callers do not
	// depend on it succeeding.
	CancelQuery(ctx context.Context, queryUUID string) error
}

// Executor defaults.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTimeout      = 5 * time.Minute
	DefaultPageSize     = 500
)

// Options configures an Executor.
type Options struct {
	// PollInterval is the fixed wait between status polls.
	PollInterval time.Duration
	// Timeout is the wall-clock budget for a query to become ready.
	Timeout time.Duration
	// PageSize is the page size requested from the API.
	PageSize int
	// Logger receives debug-level poll activity. Nil disables logging.
	Logger *slog.Logger
}

// Executor drives submitted queries through the polling lifecycle:
// Submitted -> Polling -> {Ready | Error | TimedOut | Cancelled}.
//
// Execute blocks the calling goroutine between polls; no background
// goroutines are spawned. For concurrent queries, run independent
// Execute calls — executors share no per-query state.
type Executor struct {
	transport Transport
	interval  time.Duration
	timeout   time.Duration
	pageSize  int
	logger    *slog.Logger

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor over the given transport.
func NewExecutor(transport Transport, opts ...Options) *Executor {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	return &Executor{
		transport: transport,
		interval:  o.PollInterval,
		timeout:   o.Timeout,
		pageSize:  o.PageSize,
		logger:    o.Logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Execute submits the query and polls until it reaches a terminal
// state, returning a ResultSet holding the first page on success.
//
// Error outcomes are typed: *domain.QuerySubmissionError when the API
// rejects the submission, *domain.QueryError on a server-side failure,
// *domain.QueryTimeoutError when the budget runs out (after one
// best-effort cancellation request), and *domain.QueryCancelledError
// when the job is cancelled by this caller's context or externally.
// Terminal error and cancelled states are never retried.
func (e *Executor) Execute(ctx context.Context, q Query) (*ResultSet, error) {
	payload, err := q.Payload()
	if err != nil {
		return nil, err
	}

	queryUUID, fields, err := e.transport.SubmitQuery(ctx, payload)
	if err != nil {
		return nil, &domain.QuerySubmissionError{Message: err.Error(), Cause: err}
	}

	job := &domain.QueryJob{QueryUUID: queryUUID, State: domain.JobSubmitted}
	start := e.now()

	for {
		job.State = domain.JobPolling
		status, err := e.transport.PollStatus(ctx, queryUUID, 1, e.pageSize)
		if err != nil {
			job.State = domain.JobError
			return nil, fmt.Errorf("poll query %s: %w", queryUUID, err)
		}

		switch status.Status {
		case domain.StatusReady:
			job.State = domain.JobReady
			return newResultSet(e.transport, queryUUID, fields, status, e.pageSize), nil
		case domain.StatusError:
			job.State = domain.JobError
			job.ErrorMessage = status.ErrorMessage
			return nil, &domain.QueryError{QueryUUID: queryUUID, Message: status.ErrorMessage}
		case domain.StatusCancelled:
			job.State = domain.JobCancelled
			return nil, &domain.QueryCancelledError{QueryUUID: queryUUID}
		}

		job.Elapsed = e.now().Sub(start)
		if job.Elapsed >= e.timeout {
			job.State = domain.JobTimedOut
			e.cancelBestEffort(queryUUID)
			return nil, &domain.QueryTimeoutError{QueryUUID: queryUUID, Elapsed: job.Elapsed, Budget: e.timeout}
		}

		if e.logger != nil {
			e.logger.Debug("query pending", "queryUuid", queryUUID, "elapsed", job.Elapsed)
		}

		if err := e.sleep(ctx, e.interval); err != nil {
			// Caller cancelled while waiting: tell the server, then
			// reflect the caller's intent locally regardless.
			job.State = domain.JobCancelled
			e.cancelBestEffort(queryUUID)
			return nil, &domain.QueryCancelledError{QueryUUID: queryUUID}
		}
	}
}

// Cancel requests cancellation of a running query.
func (e *Executor) Cancel(ctx context.Context, queryUUID string) error {
	return e.transport.CancelQuery(ctx, queryUUID)
}

// cancelBestEffort fires a single cancellation request and ignores the
// outcome. A fresh context is used because the caller's may already be
// done.
func (e *Executor) cancelBestEffort(queryUUID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.transport.CancelQuery(ctx, queryUUID); err != nil && e.logger != nil {
		e.logger.Debug("best-effort cancel failed", "queryUuid", queryUUID, "error", err)
	}
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
