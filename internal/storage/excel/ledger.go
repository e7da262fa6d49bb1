// Package excel keeps the order ledger in an .xlsx workbook so staff can
// open it, tick "Payment Verified" and save it back.
package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"posterbot/internal/ledger"
)

type Ledger struct {
	mu      sync.Mutex
	path    string
	sheet   string
	file    *excelize.File
	modTime time.Time
	logger  *zap.Logger
}

var _ ledger.BatchAppender = (*Ledger)(nil)

// Open loads the workbook at path, creating it with the ledger header row
// when it does not exist yet.
func Open(path, sheet string, logger *zap.Logger) (*Ledger, error) {
	const operation = "excel.Open"

	l := &Ledger{path: path, sheet: sheet, logger: logger}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("%s: failed to create ledger directory: %w", operation, err)
		}
		f := excelize.NewFile()
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("%s: failed to name sheet: %w", operation, err)
		}
		l.file = f
		if err := l.writeHeaders(); err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		if err := l.save(); err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		logger.Info("Created ledger workbook", zap.String("path", path), zap.String("sheet", sheet))
		return l, nil
	}

	if err := l.reload(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return l, nil
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Ledger) AppendRow(ctx context.Context, row ledger.Row) error {
	return l.AppendRows(ctx, []ledger.Row{row})
}

// AppendRows writes all rows and saves the workbook once. If saving fails
// the rows are removed again so nothing is half-written.
func (l *Ledger) AppendRows(ctx context.Context, rows []ledger.Row) error {
	if err := ctx.Err(); err != nil {
		return &ledger.Error{Op: "append_rows", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.refresh(); err != nil {
		return &ledger.Error{Op: "append_rows", Err: err}
	}

	existing, err := l.file.GetRows(l.sheet)
	if err != nil {
		return &ledger.Error{Op: "append_rows", Err: err}
	}
	first := len(existing) + 1

	written := 0
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, first+i)
		if err != nil {
			l.rollback(first, written)
			return &ledger.Error{Op: "append_rows", Err: err}
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := l.file.SetSheetRow(l.sheet, cell, &values); err != nil {
			l.rollback(first, written)
			return &ledger.Error{Op: "append_rows", Err: err}
		}
		written++
	}

	if err := l.save(); err != nil {
		l.rollback(first, written)
		return &ledger.Error{Op: "append_rows", Err: err}
	}
	return nil
}

func (l *Ledger) ReadAllRows(ctx context.Context) ([]ledger.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ledger.Error{Op: "read_all_rows", Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.refresh(); err != nil {
		return nil, &ledger.Error{Op: "read_all_rows", Err: err}
	}
	raw, err := l.file.GetRows(l.sheet)
	if err != nil {
		return nil, &ledger.Error{Op: "read_all_rows", Err: err}
	}
	rows := make([]ledger.Row, len(raw))
	for i, r := range raw {
		rows[i] = ledger.Row(r)
	}
	return rows, nil
}

func (l *Ledger) UpdateCell(ctx context.Context, row, col int, value string) error {
	if err := ctx.Err(); err != nil {
		return &ledger.Error{Op: "update_cell", Err: err}
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("%w: row=%d col=%d", ledger.ErrOutOfRange, row, col)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.refresh(); err != nil {
		return &ledger.Error{Op: "update_cell", Err: err}
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrOutOfRange, err)
	}
	if err := l.file.SetCellValue(l.sheet, cell, value); err != nil {
		return &ledger.Error{Op: "update_cell", Err: err}
	}
	if err := l.save(); err != nil {
		return &ledger.Error{Op: "update_cell", Err: err}
	}
	return nil
}

func (l *Ledger) FindColumnIndex(ctx context.Context, candidates ...string) (int, error) {
	rows, err := l.ReadAllRows(ctx)
	if err != nil {
		return -1, err
	}
	if len(rows) == 0 {
		return -1, fmt.Errorf("%w: empty sheet", ledger.ErrColumnNotFound)
	}
	return ledger.FindColumn(rows[0], candidates...)
}

func (l *Ledger) writeHeaders() error {
	values := make([]interface{}, len(ledger.Headers))
	for i, h := range ledger.Headers {
		values[i] = h
	}
	if err := l.file.SetSheetRow(l.sheet, "A1", &values); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	style, err := l.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(values), 1)
		_ = l.file.SetCellStyle(l.sheet, "A1", last, style)
	}
	return nil
}

// refresh reopens the workbook when someone else saved it since we last
// touched it.
func (l *Ledger) refresh() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrNotConnected, err)
	}
	if l.file != nil && info.ModTime().Equal(l.modTime) {
		return nil
	}
	return l.reload()
}

func (l *Ledger) reload() error {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return fmt.Errorf("%w: failed to open workbook: %v", ledger.ErrNotConnected, err)
	}
	idx, err := f.GetSheetIndex(l.sheet)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to look up sheet: %w", err)
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	if idx == -1 {
		l.logger.Warn("Ledger sheet missing, creating it", zap.String("sheet", l.sheet))
		if _, err := f.NewSheet(l.sheet); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		if err := l.writeHeaders(); err != nil {
			return err
		}
		return l.save()
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrNotConnected, err)
	}
	l.modTime = info.ModTime()
	return nil
}

func (l *Ledger) save() error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := l.file.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace workbook: %w", err)
	}
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("failed to stat workbook: %w", err)
	}
	l.modTime = info.ModTime()
	return nil
}

func (l *Ledger) rollback(first, written int) {
	for i := written - 1; i >= 0; i-- {
		if err := l.file.RemoveRow(l.sheet, first+i); err != nil {
			l.logger.Error("Failed to roll back ledger row",
				zap.Int("row", first+i),
				zap.Error(err))
		}
	}
}
