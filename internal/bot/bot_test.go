package bot

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"posterbot/internal/catalog"
	"posterbot/internal/ledger"
	"posterbot/internal/session"
)

type stubLedger struct {
	*ledger.Memory

	mu          sync.Mutex
	appendErr   error
	readErr     error
	appendCalls int
}

func (l *stubLedger) AppendRow(ctx context.Context, row ledger.Row) error {
	return l.AppendRows(ctx, []ledger.Row{row})
}

func (l *stubLedger) AppendRows(ctx context.Context, rows []ledger.Row) error {
	l.mu.Lock()
	l.appendCalls++
	err := l.appendErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.Memory.AppendRows(ctx, rows)
}

func (l *stubLedger) ReadAllRows(ctx context.Context) ([]ledger.Row, error) {
	l.mu.Lock()
	err := l.readErr
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return l.Memory.ReadAllRows(ctx)
}

func (l *stubLedger) setAppendErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appendErr = err
}

type stubNotifier struct {
	orders chan Order
}

func (n *stubNotifier) NotifyNewOrder(ctx context.Context, order Order) error {
	n.orders <- order
	return nil
}

var fixedNow = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

type testEnv struct {
	engine *Engine
	ledger *stubLedger
	store  *session.MemoryStore
	mgr    *session.Manager
}

func newTestEnv(t *testing.T, products []string, opts ...Option) *testEnv {
	t.Helper()

	store := session.NewMemoryStore(0, 0, zap.NewNop())
	mgr := session.NewManager(store)
	l := &stubLedger{Memory: ledger.NewMemory(ledger.Headers)}

	ids := 0
	base := []Option{
		WithOrderIDGenerator(func() string {
			ids++
			return fmt.Sprintf("ID%d", 4241+ids)
		}),
		WithClock(func() time.Time { return fixedNow }),
	}
	e := New(mgr, catalog.NewStatic(products), l, zap.NewNop(), append(base, opts...)...)
	return &testEnv{engine: e, ledger: l, store: store, mgr: mgr}
}

func (env *testEnv) send(t *testing.T, userID string, texts ...string) Message {
	t.Helper()
	var reply Message
	for _, text := range texts {
		reply = env.engine.Handle(context.Background(), userID, text)
	}
	return reply
}

func (env *testEnv) session(t *testing.T, userID string) *session.Session {
	t.Helper()
	s, err := env.mgr.GetUserDialogState(context.Background(), userID)
	if err != nil {
		t.Fatalf("no session for %s: %v", userID, err)
	}
	return s
}

func (env *testEnv) dataRows(t *testing.T) []ledger.Row {
	t.Helper()
	rows, err := env.ledger.Memory.ReadAllRows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return rows[1:]
}

func TestFirstMessageGetsWelcome(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	welcome := DefaultVariant().Welcome

	for i, text := range []string{"place an order", "9876543210", "", "track my order"} {
		user := fmt.Sprintf("user-%d", i)
		reply := env.send(t, user, text)
		if reply.Text != welcome.Text || !reflect.DeepEqual(reply.Options, welcome.Options) {
			t.Errorf("%q: expected welcome message, got %+v", text, reply)
		}
		if st := env.session(t, user).State; st != session.StateIdle {
			t.Errorf("%q: expected IDLE, got %s", text, st)
		}
	}
}

func TestGlobalResetFromAnyState(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	ctx := context.Background()

	states := []session.State{
		session.StateIdle, session.StateCheckStatus, session.StateAskOrderCategory,
		session.StateWebsiteSelectProduct, session.StateWebsiteAskQty,
		session.StateCustomUploadDetails, session.StateCustomAskQty,
		session.StateAskAddMore, session.StateAskName, session.StateAskAddress,
		session.StateAskPhone,
	}
	for _, keyword := range []string{"menu", "  Main Menu ", "🔙 Main Menu", "HI"} {
		for _, st := range states {
			user := "reset-" + string(st)
			s := session.New(user)
			s.State = st
			s.FallbackCount = 2
			s.Cart = []session.CartItem{{Kind: session.KindWebsite, ProductName: "A", Quantity: "1"}}
			if st.IsQuantityStep() {
				s.PendingItem = &session.CartItem{Kind: session.KindCustom, ProductName: "Custom"}
			}
			if err := env.store.Save(ctx, s); err != nil {
				t.Fatal(err)
			}

			reply := env.send(t, user, keyword)
			got := env.session(t, user)
			if got.State != session.StateIdle || len(got.Cart) != 0 || got.PendingItem != nil || got.FallbackCount != 0 {
				t.Errorf("%q from %s: session not reset: %+v", keyword, st, got)
			}
			if reply.Text != DefaultVariant().Welcome.Text {
				t.Errorf("%q from %s: expected welcome, got %q", keyword, st, reply.Text)
			}
		}
	}
}

func TestWebsiteOrderReachesFinalize(t *testing.T) {
	env := newTestEnv(t, []string{"Goku Poster", "Batmobile"})
	user := "web_guest"

	env.send(t, user, "hi", "place an order", "website", "Batmobile", "2", "no, checkout", "Asha", "12 MG Road, Pune")
	if st := env.session(t, user).State; st != session.StateAskPhone {
		t.Fatalf("expected ASK_PHONE before the phone number, got %s", st)
	}
	reply := env.send(t, user, "9876543210")

	rows := env.dataRows(t)
	if len(rows) != 1 {
		t.Fatalf("expected exactly one ledger row, got %d", len(rows))
	}
	want := ledger.Row{"ID4242", "Asha", "Batmobile", "Website", "NA", "2", "2026-01-02 15:04:05",
		"12 MG Road, Pune", "9876543210", "", "No", "No"}
	if !reflect.DeepEqual(rows[0], want) {
		t.Errorf("unexpected row\n got: %v\nwant: %v", rows[0], want)
	}

	if !strings.Contains(reply.Text, "Order ID: #ID4242") || !strings.Contains(reply.Text, "Items: 1") {
		t.Errorf("unexpected confirmation: %q", reply.Text)
	}
	if !reflect.DeepEqual(reply.Options, []string{optCheckOrderStatus, optPlaceAnother}) {
		t.Errorf("unexpected options: %v", reply.Options)
	}

	s := env.session(t, user)
	if s.State != session.StateIdle || len(s.Cart) != 0 || s.PendingItem != nil {
		t.Errorf("session not cleared after order: %+v", s)
	}
}

func TestPhoneStepRejectsInvalidNumbers(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	user := "web_guest"

	env.send(t, user, "hi", "place an order", "website", "A", "1", "no", "Asha", "Pune")
	for _, bad := range []string{"12345", "12345678901", "12345abcde"} {
		reply := env.send(t, user, bad)
		if reply.Text != textInvalidPhone {
			t.Errorf("%q: expected invalid phone prompt, got %q", bad, reply.Text)
		}
		if st := env.session(t, user).State; st != session.StateAskPhone {
			t.Errorf("%q: expected to stay in ASK_PHONE, got %s", bad, st)
		}
	}

	env.send(t, user, "+91 98765 43210")
	if rows := env.dataRows(t); len(rows) != 1 || rows[0].Cell(8) != "9876543210" {
		t.Errorf("expected order with normalized phone, got %v", rows)
	}
}

func TestFallbackEscalatesOnThirdMiss(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	user := "u"
	env.send(t, user, "hi")

	for i := 1; i <= 2; i++ {
		reply := env.send(t, user, "qwerty")
		if reply.Text != textNotUnderstood {
			t.Fatalf("miss %d: expected rephrase prompt, got %q", i, reply.Text)
		}
		if !reflect.DeepEqual(reply.Options, DefaultVariant().Welcome.Options) {
			t.Errorf("miss %d: expected welcome options, got %v", i, reply.Options)
		}
	}

	reply := env.send(t, user, "qwerty")
	if reply.Text != textHandoffOffer {
		t.Fatalf("third miss: expected handoff offer, got %q", reply.Text)
	}
	if !reflect.DeepEqual(reply.Options, []string{optChatOnWhatsApp, optMainMenu}) {
		t.Errorf("unexpected handoff options: %v", reply.Options)
	}
	if n := env.session(t, user).FallbackCount; n != 0 {
		t.Errorf("expected counter reset after handoff, got %d", n)
	}

	if reply := env.send(t, user, "qwerty"); reply.Text != textNotUnderstood {
		t.Errorf("expected counting to restart, got %q", reply.Text)
	}

	reply = env.send(t, user, "Chat on WhatsApp")
	if !strings.Contains(reply.Text, "https://wa.me/919876543210") {
		t.Errorf("expected WhatsApp link, got %q", reply.Text)
	}
}

func TestRecognizedInputResetsFallbackCounter(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	user := "u"
	env.send(t, user, "hi", "qwerty", "qwerty", "shipping policy")

	if n := env.session(t, user).FallbackCount; n != 0 {
		t.Errorf("expected counter reset by policy rule, got %d", n)
	}
}

func TestFinalizeFailureKeepsCartAndState(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	env.ledger.setAppendErr(&ledger.Error{Op: "append_rows", Err: errors.New("quota exceeded")})
	user := "web_guest"

	reply := env.send(t, user, "hi", "place an order", "website", "A", "2", "no, checkout", "Asha", "Pune", "9876543210")
	if reply.Text != textOrderFailed {
		t.Fatalf("expected system error, got %q", reply.Text)
	}

	s := env.session(t, user)
	if s.State != session.StateAskPhone {
		t.Errorf("expected state unchanged (ASK_PHONE), got %s", s.State)
	}
	if len(s.Cart) != 1 || s.Cart[0].Quantity != "2" {
		t.Errorf("expected cart preserved, got %+v", s.Cart)
	}

	env.ledger.setAppendErr(nil)
	reply = env.send(t, user, "9876543210")
	if !strings.HasPrefix(reply.Text, "Order Placed Successfully!") {
		t.Fatalf("expected retry to succeed, got %q", reply.Text)
	}
	if rows := env.dataRows(t); len(rows) != 1 {
		t.Errorf("expected one row after retry, got %d", len(rows))
	}
}

func TestCatalogOptionsCappedAtTen(t *testing.T) {
	products := make([]string, 15)
	for i := range products {
		products[i] = fmt.Sprintf("Poster %02d", i+1)
	}
	env := newTestEnv(t, products)

	reply := env.send(t, "u", "hi", "place an order", "website")
	if len(reply.Options) != 11 {
		t.Fatalf("expected 11 options, got %d: %v", len(reply.Options), reply.Options)
	}
	if !reflect.DeepEqual(reply.Options[:10], products[:10]) {
		t.Errorf("expected first ten products in order, got %v", reply.Options[:10])
	}
	if reply.Options[10] != optMainMenu {
		t.Errorf("expected menu option last, got %q", reply.Options[10])
	}
}

func TestCustomUploadFromIdle(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	user := "u"

	reply := env.send(t, user, "hi", "[image uploaded] /uploads/abc_cat.png")
	if reply.Text != textImageReceived {
		t.Fatalf("expected image received prompt, got %q", reply.Text)
	}
	s := env.session(t, user)
	if s.State != session.StateCustomAskQty || s.PendingItem == nil ||
		session.StringValue(s.PendingItem.Details) != "Image: /uploads/abc_cat.png" {
		t.Fatalf("unexpected session: %+v", s)
	}

	env.send(t, user, "5")
	s = env.session(t, user)
	if s.State != session.StateAskAddMore || s.PendingItem != nil || len(s.Cart) != 1 {
		t.Fatalf("expected item committed, got %+v", s)
	}
	if s.Cart[0].ProductName != "Custom Upload" || s.Cart[0].Quantity != "5" {
		t.Errorf("unexpected cart item: %+v", s.Cart[0])
	}
}

func TestCustomPrintWithoutUploadGivesInstructions(t *testing.T) {
	env := newTestEnv(t, []string{"A"})

	reply := env.send(t, "u", "hi", "✨ Custom Print")
	if reply.Text != textCustomUploadHint {
		t.Errorf("expected upload instructions, got %q", reply.Text)
	}
	if st := env.session(t, "u").State; st != session.StateIdle {
		t.Errorf("expected IDLE, got %s", st)
	}
}

func TestCustomOrderDetails(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	user := "web_guest"

	env.send(t, user, "hi", "place an order", "custom product", "A3 print of my dog", "1", "yes",
		"website", "A", "3", "no", "Ravi", "Delhi", "9876543210")

	rows := env.dataRows(t)
	if len(rows) != 2 {
		t.Fatalf("expected two rows, got %d", len(rows))
	}
	if rows[0].Cell(3) != "Custom" || rows[0].Cell(9) != "A3 print of my dog" {
		t.Errorf("unexpected custom row: %v", rows[0])
	}
	if rows[1].Cell(2) != "A" || rows[1].Cell(5) != "3" {
		t.Errorf("unexpected website row: %v", rows[1])
	}
	if rows[0].Cell(0) != rows[1].Cell(0) || rows[0].Cell(6) != rows[1].Cell(6) {
		t.Error("rows of one order must share order id and timestamp")
	}
}

func TestCategoryRecommendation(t *testing.T) {
	env := newTestEnv(t, []string{"A"})

	reply := env.send(t, "u", "hi", "🦸 Anime Collection")
	if !strings.Contains(reply.Text, "our Anime collection") || !strings.Contains(reply.Text, "/products.html?cat=anime") {
		t.Errorf("unexpected recommendation: %q", reply.Text)
	}
	reply = env.send(t, "u", "gift ideas")
	if !strings.Contains(reply.Text, "cat=all") {
		t.Errorf("expected the all category, got %q", reply.Text)
	}
}

func TestOrderStatusLookup(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	ctx := context.Background()
	_ = env.ledger.Memory.AppendRows(ctx, []ledger.Row{
		{"ID1111", "A", "P", "Website", "NA", "1", "", "", "9876543210", "", "Yes", "No"},
		{"ID2222", "B", "P", "Website", "NA", "1", "", "", "9876543211", "", "No", "No"},
	})
	user := "u"

	reply := env.send(t, user, "hi", "📦 Track Order")
	if reply.Text != textTrackPrompt {
		t.Fatalf("expected order id prompt, got %q", reply.Text)
	}
	reply = env.send(t, user, "#ID1111")
	if reply.Text != "Order #ID1111: Confirmed ✅" {
		t.Errorf("unexpected status: %q", reply.Text)
	}
	if st := env.session(t, user).State; st != session.StateIdle {
		t.Errorf("expected IDLE after lookup, got %s", st)
	}

	reply = env.send(t, user, "status", "ID2222")
	if reply.Text != "Order #ID2222: Payment Pending ⏳" {
		t.Errorf("unexpected status: %q", reply.Text)
	}

	reply = env.send(t, user, "track", "ID9999")
	if reply.Text != textStatusNotFound || !reflect.DeepEqual(reply.Options, []string{optMainMenu, optStatusAgain}) {
		t.Errorf("unexpected not found reply: %+v", reply)
	}
}

func TestOrderStatusLedgerDown(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	env.ledger.readErr = ledger.ErrNotConnected
	user := "u"

	reply := env.send(t, user, "hi", "track", "ID1111")
	if reply.Text != textStatusNoLedger {
		t.Errorf("expected system error, got %q", reply.Text)
	}
	if st := env.session(t, user).State; st != session.StateCheckStatus {
		t.Errorf("expected to stay in CHECK_STATUS, got %s", st)
	}
}

func TestSecondOrderSkipsKnownFields(t *testing.T) {
	env := newTestEnv(t, []string{"A"})
	user := "web_guest"

	env.send(t, user, "hi", "place an order", "website", "A", "1", "no", "Asha", "Pune", "9876543210")
	reply := env.send(t, user, "Place another order", "website", "A", "2", "No, Checkout")

	if !strings.Contains(reply.Text, "Order ID: #ID4243") {
		t.Fatalf("expected direct finalize on second order, got %q", reply.Text)
	}
	if rows := env.dataRows(t); len(rows) != 2 || rows[1].Cell(1) != "Asha" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestAlwaysAskVariant(t *testing.T) {
	v := DefaultVariant()
	v.SkipFilledFields = false
	env := newTestEnv(t, []string{"A"}, WithVariant(v))

	// a user id that is itself a valid phone number
	user := "9876543210"
	reply := env.send(t, user, "hi", "place an order", "website", "A", "1", "no")
	if reply.Text != textAskName {
		t.Fatalf("expected name prompt, got %q", reply.Text)
	}
	reply = env.send(t, user, "Asha", "Pune")
	if reply.Text != textAskPhone {
		t.Errorf("expected phone prompt even with a known phone, got %q", reply.Text)
	}
}

func TestSkipToFinalizeAfterAddressWhenPhoneKnown(t *testing.T) {
	env := newTestEnv(t, []string{"A"})

	reply := env.send(t, "9876543210", "hi", "place an order", "website", "A", "1", "no", "Asha", "Pune")
	if !strings.HasPrefix(reply.Text, "Order Placed Successfully!") {
		t.Errorf("expected finalize after address, got %q", reply.Text)
	}
}

func TestNotifierReceivesOrder(t *testing.T) {
	n := &stubNotifier{orders: make(chan Order, 1)}
	env := newTestEnv(t, []string{"A"}, WithNotifier(n))

	env.send(t, "web_guest", "hi", "place an order", "website", "A", "2", "no", "Asha", "Pune", "9876543210")
	env.engine.Wait()

	select {
	case order := <-n.orders:
		if order.ID != "ID4242" || len(order.Items) != 1 || order.Phone != "9876543210" {
			t.Errorf("unexpected order: %+v", order)
		}
	default:
		t.Fatal("notifier was not called")
	}
}

func TestMainMenuFromProductSelection(t *testing.T) {
	env := newTestEnv(t, []string{"A"})

	env.send(t, "u", "hi", "place an order", "website")
	reply := env.send(t, "u", "back to main menu please")
	if reply.Text != DefaultVariant().Welcome.Text {
		t.Errorf("expected welcome, got %q", reply.Text)
	}
	if st := env.session(t, "u").State; st != session.StateIdle {
		t.Errorf("expected IDLE, got %s", st)
	}
}

func TestOptionsNeverNil(t *testing.T) {
	env := newTestEnv(t, []string{"A"})

	reply := env.send(t, "u", "hi", "place an order", "website", "A", "1", "no")
	if reply.Options == nil {
		t.Error("options must be an empty list, not nil")
	}
}

func TestWithVariantLeavesCallerKeywordsAlone(t *testing.T) {
	v := DefaultVariant()
	v.TrackKeywords = []string{"  WHERE'S My Poster "}
	v.ResetKeywords = append([]string{"Yo"}, v.ResetKeywords...)

	env := newTestEnv(t, []string{"A"}, WithVariant(v))

	if v.TrackKeywords[0] != "  WHERE'S My Poster " || v.ResetKeywords[0] != "Yo" {
		t.Errorf("caller's variant changed: %q, %q", v.TrackKeywords[0], v.ResetKeywords[0])
	}

	env.send(t, "u1", "hi")
	env.send(t, "u1", "where's my poster?")
	if st := env.session(t, "u1").State; st != session.StateCheckStatus {
		t.Errorf("expected mixed-case keyword to match, state %s", st)
	}
	env.send(t, "u1", "yo")
	if st := env.session(t, "u1").State; st != session.StateIdle {
		t.Errorf("expected mixed-case reset keyword to match, state %s", st)
	}
}
