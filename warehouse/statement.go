package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultMaxInterval  = 5 * time.Second
	defaultTimeout      = 30 * time.Minute
)

// ErrTimeout is returned when a statement does not reach a terminal
// state within the Runner timeout.
var ErrTimeout = errors.New("statement timed out")

// Runner turns the asynchronous statement API into a blocking call: it
// submits a statement, then polls its status with exponential backoff
// until a terminal state is reached.
type Runner struct {
	api          API
	logger       *zap.Logger
	pollInterval time.Duration
	maxInterval  time.Duration
	timeout      time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithPollInterval sets the initial poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(r *Runner) {
		r.pollInterval = interval
	}
}

// WithMaxInterval caps the backoff between polls.
func WithMaxInterval(interval time.Duration) Option {
	return func(r *Runner) {
		r.maxInterval = interval
	}
}

// WithTimeout bounds the total wait for a single statement.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		r.timeout = timeout
	}
}

// NewRunner returns a new Runner instance.
func NewRunner(api API, logger *zap.Logger, opts ...Option) *Runner {
	runner := &Runner{
		api:          api,
		logger:       logger,
		pollInterval: defaultPollInterval,
		maxInterval:  defaultMaxInterval,
		timeout:      defaultTimeout,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run submits sql against cluster and blocks until the statement
// finishes, returning its rows when it produced a result set.
func (r *Runner) Run(ctx context.Context, cluster, sql string) (Result, error) {
	handle, err := r.api.Submit(ctx, cluster, sql)
	if err != nil {
		return Result{}, fmt.Errorf("unable to submit statement on cluster %s: %w", cluster, err)
	}

	r.logger.Info("Statement submitted",
		zap.String("cluster", cluster),
		zap.String("statement_id", handle.ID))

	return r.await(ctx, handle)
}

func (r *Runner) await(ctx context.Context, handle Handle) (Result, error) {
	var (
		interval = r.pollInterval
		deadline = time.Now().Add(r.timeout)
	)

	for {
		description, err := r.api.Describe(ctx, handle)
		if err != nil {
			return Result{}, fmt.Errorf("unable to describe statement %s: %w", handle.ID, err)
		}

		if description.Status.Terminal() {
			return r.resolve(ctx, handle, description)
		}

		if time.Now().After(deadline) {
			return Result{}, fmt.Errorf("statement %s still %s after %s: %w",
				handle.ID, description.Status, r.timeout, ErrTimeout)
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(interval):
		}

		if interval *= 2; interval > r.maxInterval {
			interval = r.maxInterval
		}
	}
}

// resolve handles every terminal status: a failed or aborted statement
// surfaces as a StatementError carrying the remote reason.
func (r *Runner) resolve(ctx context.Context, handle Handle, description Description) (Result, error) {
	if description.Status != StatusFinished {
		r.logger.Warn("Statement did not finish",
			zap.String("statement_id", handle.ID),
			zap.String("status", string(description.Status)),
			zap.String("reason", description.Error))

		return Result{}, &StatementError{
			ID:     handle.ID,
			Status: description.Status,
			Reason: description.Error,
		}
	}

	r.logger.Info("Statement finished",
		zap.String("statement_id", handle.ID),
		zap.Bool("has_result_set", description.HasResultSet))

	if !description.HasResultSet {
		return Result{}, nil
	}

	rows, err := r.api.FetchResult(ctx, handle)
	if err != nil {
		return Result{}, fmt.Errorf("unable to fetch result of statement %s: %w", handle.ID, err)
	}

	return Result{Rows: rows}, nil
}

var _ Executor = (*Runner)(nil)
