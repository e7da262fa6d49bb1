package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy bounds every ledger call made through Retrying.
type RetryPolicy struct {
	// Timeout caps a single attempt.
	Timeout time.Duration
	// MaxElapsed caps all attempts of one call together.
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:         5 * time.Second,
		MaxElapsed:      15 * time.Second,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Retrying wraps a Ledger so that each call gets a per-attempt timeout
// and transient failures are retried with exponential backoff.
type Retrying struct {
	next   Ledger
	policy RetryPolicy
	logger *zap.Logger
}

var _ BatchAppender = (*Retrying)(nil)

func NewRetrying(next Ledger, policy RetryPolicy, logger *zap.Logger) *Retrying {
	return &Retrying{next: next, policy: policy, logger: logger}
}

func (r *Retrying) AppendRow(ctx context.Context, row Row) error {
	return r.do(ctx, "append_row", func(ctx context.Context) error {
		return r.next.AppendRow(ctx, row)
	})
}

// AppendRows retries the whole batch when the wrapped ledger supports
// batching and falls back to row-by-row appends otherwise. The fallback is
// not atomic: rows written before a failing row stay in the ledger.
func (r *Retrying) AppendRows(ctx context.Context, rows []Row) error {
	b, ok := r.next.(BatchAppender)
	if !ok {
		for i, row := range rows {
			if err := r.AppendRow(ctx, row); err != nil {
				if i > 0 {
					r.logger.Warn("Ledger batch partially written",
						zap.Int("written", i),
						zap.Int("total", len(rows)),
						zap.String("first_cell", row.Cell(0)),
						zap.Error(err))
				}
				return &PartialWriteError{Written: i, Total: len(rows), Err: err}
			}
		}
		return nil
	}
	return r.do(ctx, "append_rows", func(ctx context.Context) error {
		return b.AppendRows(ctx, rows)
	})
}

func (r *Retrying) ReadAllRows(ctx context.Context) ([]Row, error) {
	var rows []Row
	err := r.do(ctx, "read_all_rows", func(ctx context.Context) error {
		var err error
		rows, err = r.next.ReadAllRows(ctx)
		return err
	})
	return rows, err
}

func (r *Retrying) UpdateCell(ctx context.Context, row, col int, value string) error {
	return r.do(ctx, "update_cell", func(ctx context.Context) error {
		return r.next.UpdateCell(ctx, row, col, value)
	})
}

func (r *Retrying) FindColumnIndex(ctx context.Context, candidates ...string) (int, error) {
	idx := -1
	err := r.do(ctx, "find_column_index", func(ctx context.Context) error {
		var err error
		idx, err = r.next.FindColumnIndex(ctx, candidates...)
		return err
	})
	return idx, err
}

func (r *Retrying) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.policy.InitialInterval
	policy.MaxInterval = r.policy.MaxInterval
	policy.MaxElapsedTime = r.policy.MaxElapsed

	attempt := func() error {
		callCtx := ctx
		if r.policy.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
			defer cancel()
		}
		err := fn(callCtx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotify(attempt, backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			r.logger.Warn("Ledger call failed, retrying",
				zap.String("op", op),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		})
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrColumnNotFound), errors.Is(err, ErrOutOfRange):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}
