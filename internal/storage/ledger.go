package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"posterbot/internal/ledger"
)

// Config describes the SQL database holding the order ledger.
type Config struct {
	Driver          string // "postgres" or "sqlite3"
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// PostgresDSN builds a lib/pq connection string.
func PostgresDSN(host string, port int, user, password, dbName, sslMode string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbName, sslMode,
	)
}

// columns maps ledger sheet columns to table columns, in sheet order.
var columns = []string{
	"order_id", "name", "product", "item_type", "size", "qty", "created_at",
	"address", "contact", "details", "payment_verified", "confirmation_sent",
}

type ledgerRecord struct {
	ID               int64  `db:"id"`
	OrderID          string `db:"order_id"`
	Name             string `db:"name"`
	Product          string `db:"product"`
	ItemType         string `db:"item_type"`
	Size             string `db:"size"`
	Qty              string `db:"qty"`
	CreatedAt        string `db:"created_at"`
	Address          string `db:"address"`
	Contact          string `db:"contact"`
	Details          string `db:"details"`
	PaymentVerified  string `db:"payment_verified"`
	ConfirmationSent string `db:"confirmation_sent"`
}

func (r ledgerRecord) row() ledger.Row {
	return ledger.Row{
		r.OrderID, r.Name, r.Product, r.ItemType, r.Size, r.Qty, r.CreatedAt,
		r.Address, r.Contact, r.Details, r.PaymentVerified, r.ConfirmationSent,
	}
}

// SQLLedger stores ledger rows in the order_ledger table and presents them
// as a sheet: a synthetic header row followed by records in insertion order.
type SQLLedger struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

var _ ledger.BatchAppender = (*SQLLedger)(nil)

// NewSQLLedger connects with retries, configures the pool and applies
// migrations.
func NewSQLLedger(ctx context.Context, cfg Config, logger *zap.Logger) (*SQLLedger, error) {
	const operation = "storage.NewSQLLedger"

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = cfg.ConnectTimeout
	if retryPolicy.MaxElapsedTime == 0 {
		retryPolicy.MaxElapsedTime = 2 * time.Minute
	}
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to ledger database...", zap.String("driver", cfg.Driver))

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				_ = db.Close()
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("Ledger database connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := RunMigrations(ctx, db.DB, cfg.Driver, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	logger.Info("Successfully connected to ledger database")
	return &SQLLedger{db: db, driver: cfg.Driver, logger: logger}, nil
}

func (s *SQLLedger) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLLedger) AppendRow(ctx context.Context, row ledger.Row) error {
	return s.AppendRows(ctx, []ledger.Row{row})
}

// AppendRows inserts all rows in one transaction.
func (s *SQLLedger) AppendRows(ctx context.Context, rows []ledger.Row) error {
	query := s.db.Rebind(`
        INSERT INTO order_ledger (
            order_id, name, product, item_type, size, qty, created_at,
            address, contact, details, payment_verified, confirmation_sent
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &ledger.Error{Op: "append_rows", Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	for _, row := range rows {
		args := make([]interface{}, len(columns))
		for i := range columns {
			args[i] = row.Cell(i)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return &ledger.Error{Op: "append_rows", Err: fmt.Errorf("insert: %w", err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &ledger.Error{Op: "append_rows", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func (s *SQLLedger) ReadAllRows(ctx context.Context) ([]ledger.Row, error) {
	const query = `SELECT * FROM order_ledger ORDER BY id`

	var records []ledgerRecord
	if err := s.db.SelectContext(ctx, &records, query); err != nil {
		return nil, &ledger.Error{Op: "read_all_rows", Err: err}
	}

	rows := make([]ledger.Row, 0, len(records)+1)
	rows = append(rows, append(ledger.Row(nil), ledger.Headers...))
	for _, r := range records {
		rows = append(rows, r.row())
	}
	return rows, nil
}

// UpdateCell resolves row to the (row-1)th record in insertion order.
func (s *SQLLedger) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 2 || col < 1 || col > len(columns) {
		return fmt.Errorf("%w: row=%d col=%d", ledger.ErrOutOfRange, row, col)
	}

	var id int64
	err := s.db.GetContext(ctx, &id,
		s.db.Rebind(`SELECT id FROM order_ledger ORDER BY id LIMIT 1 OFFSET ?`), row-2)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: row=%d", ledger.ErrOutOfRange, row)
		}
		return &ledger.Error{Op: "update_cell", Err: err}
	}

	// column names come from the fixed columns slice, never from input
	query := s.db.Rebind(fmt.Sprintf(`UPDATE order_ledger SET %s = ? WHERE id = ?`, columns[col-1]))
	if _, err := s.db.ExecContext(ctx, query, value, id); err != nil {
		return &ledger.Error{Op: "update_cell", Err: err}
	}
	return nil
}

func (s *SQLLedger) FindColumnIndex(ctx context.Context, candidates ...string) (int, error) {
	return ledger.FindColumn(ledger.Headers, candidates...)
}
