package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process ledger. It backs LEDGER_BACKEND=memory for local
// runs and stands in for the real sheet in tests.
type Memory struct {
	mu   sync.Mutex
	rows []Row
}

var _ BatchAppender = (*Memory)(nil)

// NewMemory creates a ledger holding the given header row.
func NewMemory(headers Row) *Memory {
	return &Memory{rows: []Row{append(Row(nil), headers...)}}
}

func (m *Memory) AppendRow(ctx context.Context, row Row) error {
	return m.AppendRows(ctx, []Row{row})
}

func (m *Memory) AppendRows(ctx context.Context, rows []Row) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "append_rows", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows = append(m.rows, append(Row(nil), r...))
	}
	return nil
}

func (m *Memory) ReadAllRows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "read_all_rows", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	for i, r := range m.rows {
		out[i] = append(Row(nil), r...)
	}
	return out, nil
}

func (m *Memory) UpdateCell(ctx context.Context, row, col int, value string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "update_cell", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 1 || row > len(m.rows) || col < 1 {
		return fmt.Errorf("%w: row=%d col=%d", ErrOutOfRange, row, col)
	}
	r := m.rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	m.rows[row-1] = r
	return nil
}

func (m *Memory) FindColumnIndex(ctx context.Context, candidates ...string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FindColumn(m.rows[0], candidates...)
}
