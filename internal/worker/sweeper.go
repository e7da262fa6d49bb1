package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"posterbot/internal/ledger"
)

// Notification tells a customer that their payment was verified.
type Notification struct {
	Phone   string
	Text    string
	OrderID string
	// Row is the 1-based ledger row the notification came from.
	Row int
}

// Dispatcher delivers notifications to customers.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Stats are cumulative counters of a Sweeper.
type Stats struct {
	Sweeps           int64
	Notifications    int64
	ReadErrors       int64
	ColumnErrors     int64
	MarkErrors       int64
	DispatchErrors   int64
	DispatchedOK     int64
	LastSweepStarted time.Time
}

// Sweeper periodically scans the ledger for orders whose payment staff
// have verified and that were not confirmed to the customer yet.
type Sweeper struct {
	ledger     ledger.Ledger
	dispatcher Dispatcher
	interval   time.Duration
	logger     *zap.Logger

	sweeps, notifications, readErrors, columnErrors atomic.Int64
	markErrors, dispatchErrors, dispatched          atomic.Int64
	lastSweep                                       atomic.Int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

func NewSweeper(l ledger.Ledger, d Dispatcher, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sweeper{
		ledger:     l,
		dispatcher: d,
		interval:   interval,
		logger:     logger,
	}
}

// Sweep marks every row with "Payment Verified" = yes and "Confirmation
// Sent" != yes as sent and returns one notification per marked row. A row
// is marked before it is returned, so a notification is produced at most
// once. A ledger without the expected headers yields an error wrapping
// ledger.ErrColumnNotFound and no notifications.
func (s *Sweeper) Sweep(ctx context.Context) ([]Notification, error) {
	rows, err := s.ledger.ReadAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headers := rows[0]
	verifiedCol, err := ledger.FindColumn(headers, ledger.Candidates(ledger.ColPaymentVerified)...)
	if err != nil {
		return nil, fmt.Errorf("resolve columns: %w", err)
	}
	sentCol, err := ledger.FindColumn(headers, ledger.Candidates(ledger.ColConfirmationSent)...)
	if err != nil {
		return nil, fmt.Errorf("resolve columns: %w", err)
	}
	orderCol, err := ledger.FindColumn(headers, ledger.Candidates(ledger.ColOrderID)...)
	if err != nil {
		return nil, fmt.Errorf("resolve columns: %w", err)
	}
	phoneCol, err := ledger.FindColumn(headers, ledger.Candidates(ledger.ColContact)...)
	if err != nil {
		return nil, fmt.Errorf("resolve columns: %w", err)
	}

	var out []Notification
	for i, row := range rows[1:] {
		if len(row) <= max(verifiedCol, sentCol) {
			continue
		}
		if !isYes(row[verifiedCol]) || isYes(row[sentCol]) {
			continue
		}

		rowNum := i + 2
		if err := s.ledger.UpdateCell(ctx, rowNum, sentCol+1, ledger.Yes); err != nil {
			s.markErrors.Add(1)
			s.logger.Error("Failed to mark confirmation sent",
				zap.Int("row", rowNum),
				zap.String("order_id", row.Cell(orderCol)),
				zap.Error(err))
			continue
		}

		orderID := row.Cell(orderCol)
		out = append(out, Notification{
			Phone:   row.Cell(phoneCol),
			Text:    fmt.Sprintf("Your order #%s is Confirmed! ✅", orderID),
			OrderID: orderID,
			Row:     rowNum,
		})
	}
	return out, nil
}

// Start runs sweeps every interval until ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)
}

// Stop waits for the running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sweeper) Stats() Stats {
	return Stats{
		Sweeps:           s.sweeps.Load(),
		Notifications:    s.notifications.Load(),
		ReadErrors:       s.readErrors.Load(),
		ColumnErrors:     s.columnErrors.Load(),
		MarkErrors:       s.markErrors.Load(),
		DispatchErrors:   s.dispatchErrors.Load(),
		DispatchedOK:     s.dispatched.Load(),
		LastSweepStarted: time.Unix(0, s.lastSweep.Load()),
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Notification sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Notification sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps the ledger and dispatches what it found. Failures are
// logged and counted, never returned.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.sweeps.Add(1)
	s.lastSweep.Store(time.Now().UnixNano())

	notes, err := s.Sweep(ctx)
	switch {
	case errors.Is(err, ledger.ErrColumnNotFound):
		s.columnErrors.Add(1)
		s.logger.Warn("Ledger headers not recognized, skipping sweep", zap.Error(err))
		return
	case err != nil:
		s.readErrors.Add(1)
		s.logger.Error("Failed to sweep ledger", zap.Error(err))
		return
	}

	s.notifications.Add(int64(len(notes)))
	for _, n := range notes {
		if s.dispatcher == nil {
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			s.dispatchErrors.Add(1)
			s.logger.Error("Failed to dispatch notification",
				zap.String("order_id", n.OrderID),
				zap.Int("row", n.Row),
				zap.Error(err))
			continue
		}
		s.dispatched.Add(1)
	}
}

func isYes(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), ledger.Yes)
}
