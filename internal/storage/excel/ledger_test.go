package excel

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"posterbot/internal/ledger"
)

func TestOpenCreatesWorkbookWithHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders", "ledger.xlsx")
	l, err := Open(path, "Orders", zap.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	rows, err := l.ReadAllRows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d rows", len(rows))
	}
	if rows[0].Cell(0) != ledger.ColOrderID || rows[0].Cell(11) != ledger.ColConfirmationSent {
		t.Errorf("unexpected headers: %v", rows[0])
	}
}

func TestAppendUpdateAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	ctx := context.Background()

	l, err := Open(path, "Orders", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	rows := []ledger.Row{
		{"ID1234", "Asha", "Naruto", "Website", "NA", "2", "2026-01-01 10:00:00", "Pune", "9876543210", "", "No", "No"},
		{"ID1234", "Asha", "Custom", "Custom", "NA", "1", "2026-01-01 10:00:00", "Pune", "9876543210", "Image: /u.png", "No", "No"},
	}
	if err := l.AppendRows(ctx, rows); err != nil {
		t.Fatalf("AppendRows failed: %v", err)
	}

	col, err := l.FindColumnIndex(ctx, ledger.Candidates(ledger.ColConfirmationSent)...)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.UpdateCell(ctx, 3, col+1, ledger.Yes); err != nil {
		t.Fatalf("UpdateCell failed: %v", err)
	}
	_ = l.Close()

	reopened, err := Open(path, "Orders", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.ReadAllRows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows after reopen, got %d", len(got))
	}
	if got[2].Cell(9) != "Image: /u.png" {
		t.Errorf("expected details persisted, got %q", got[2].Cell(9))
	}
	if got[2].Cell(col) != ledger.Yes || got[1].Cell(col) != ledger.No {
		t.Errorf("expected only row 3 confirmed, got %q / %q", got[1].Cell(col), got[2].Cell(col))
	}
}

func TestUpdateCellRejectsBadCoordinates(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "l.xlsx"), "Orders", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.UpdateCell(context.Background(), 0, 1, "x"); err == nil {
		t.Error("expected an error for row 0")
	}
}
