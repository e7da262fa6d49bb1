// Package ledger describes the external order ledger: a sheet of rows with
// a header row first, addressed by 1-based row and column numbers.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Column headers written by the order finalizer, in sheet order.
const (
	ColOrderID          = "Order ID"
	ColName             = "Name"
	ColProduct          = "Product"
	ColType             = "Type"
	ColSize             = "Size"
	ColQty              = "Qty"
	ColTimestamp        = "Timestamp"
	ColAddress          = "Address"
	ColContact          = "Contact no."
	ColDetails          = "Details"
	ColPaymentVerified  = "Payment Verified"
	ColConfirmationSent = "Confirmation Sent"
)

// Headers is the header row of a new ledger.
var Headers = []string{
	ColOrderID, ColName, ColProduct, ColType, ColSize, ColQty, ColTimestamp,
	ColAddress, ColContact, ColDetails, ColPaymentVerified, ColConfirmationSent,
}

// Values used in the verification and confirmation columns.
const (
	Yes = "Yes"
	No  = "No"
)

// Candidates returns the accepted spellings of a header: the plain name
// and the "- " prefixed variant some sheets use.
func Candidates(header string) []string {
	return []string{header, "- " + header}
}

type Row []string

// Cell returns the 0-based column i of the row or "" when the row is short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

var (
	ErrNotConnected   = errors.New("ledger not connected")
	ErrColumnNotFound = errors.New("ledger column not found")
	ErrOutOfRange     = errors.New("ledger cell out of range")
)

// Error is an I/O failure of a ledger operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Ledger is the order ledger client. Implementations must be safe for
// concurrent use.
type Ledger interface {
	AppendRow(ctx context.Context, row Row) error
	// ReadAllRows returns every row, header row first.
	ReadAllRows(ctx context.Context) ([]Row, error)
	// UpdateCell sets a single cell; row and col are 1-based, row 1 is the header.
	UpdateCell(ctx context.Context, row, col int, value string) error
	// FindColumnIndex returns the 0-based index of the first header matching
	// one of the candidates, or ErrColumnNotFound.
	FindColumnIndex(ctx context.Context, candidates ...string) (int, error)
}

// BatchAppender is implemented by ledgers that can append several rows in
// one call. A failed batch writes nothing.
type BatchAppender interface {
	AppendRows(ctx context.Context, rows []Row) error
}

// AppendAll writes rows in one batch when l supports it, otherwise one row
// at a time. Any failure fails the whole call, but without batching the
// rows before the failing one are already written; the error is then a
// *PartialWriteError.
func AppendAll(ctx context.Context, l Ledger, rows []Row) error {
	if b, ok := l.(BatchAppender); ok {
		return b.AppendRows(ctx, rows)
	}
	for i, row := range rows {
		if err := l.AppendRow(ctx, row); err != nil {
			return &PartialWriteError{Written: i, Total: len(rows), Err: err}
		}
	}
	return nil
}

// PartialWriteError reports a row-by-row append that stopped after Written
// of Total rows. The written rows are not rolled back.
type PartialWriteError struct {
	Written int
	Total   int
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("append row %d of %d: %v", e.Written+1, e.Total, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// FindColumn looks the candidates up in a header row.
func FindColumn(headers Row, candidates ...string) (int, error) {
	for _, name := range candidates {
		for i, h := range headers {
			if h == name {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %v", ErrColumnNotFound, candidates)
}
