package billing

import (
	"errors"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tably-system/internal/database"
	"tably-system/internal/database/models"
)

type fixture struct {
	db         *gorm.DB
	service    *Service
	restaurant models.Restaurant
	table      models.Table
	pasta      models.MenuItem
	salad      models.MenuItem
	soldOut    models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	f := &fixture{db: db, service: NewService(db)}

	f.restaurant = models.Restaurant{
		Name:           "Test Restaurant",
		TaxRate:        "0.0875",
		ServiceFeeRate: "0.0300",
		AdminTokenHash: "admin-hash-" + t.Name(),
	}
	if err := db.Create(&f.restaurant).Error; err != nil {
		t.Fatalf("failed to create restaurant: %v", err)
	}

	f.table = models.Table{
		RestaurantID:   f.restaurant.ID,
		Name:           "Table 1",
		TableTokenHash: "table-hash-" + t.Name(),
	}
	if err := db.Create(&f.table).Error; err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	f.pasta = models.MenuItem{
		RestaurantID: f.restaurant.ID,
		Name:         "Pasta",
		PriceCents:   1200,
		Available:    true,
	}
	f.salad = models.MenuItem{
		RestaurantID: f.restaurant.ID,
		Name:         "Salad",
		PriceCents:   800,
		Available:    true,
	}
	f.soldOut = models.MenuItem{
		RestaurantID: f.restaurant.ID,
		Name:         "Oysters",
		PriceCents:   2400,
		Available:    false,
	}
	for _, item := range []*models.MenuItem{&f.pasta, &f.salad, &f.soldOut} {
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("failed to create menu item: %v", err)
		}
	}

	return f
}

func assertTotalsConsistent(t *testing.T, bill *models.Bill) {
	t.Helper()
	var lineSum int64
	for _, line := range bill.Lines {
		if line.LineTotalCents != line.UnitPriceCents*int64(line.Qty) {
			t.Errorf("line %d: line_total %d != unit_price %d * qty %d",
				line.ID, line.LineTotalCents, line.UnitPriceCents, line.Qty)
		}
		lineSum += line.LineTotalCents
	}
	if bill.SubtotalCents != lineSum {
		t.Errorf("subtotal %d != sum of lines %d", bill.SubtotalCents, lineSum)
	}
	want := bill.SubtotalCents + bill.TaxCents + bill.ServiceFeeCents + bill.TipCents
	if bill.TotalCents != want {
		t.Errorf("total %d != subtotal+tax+fee+tip %d", bill.TotalCents, want)
	}
}

func TestGetOrOpenBillIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.service.GetOrOpenBill(f.table.ID)
	if err != nil {
		t.Fatalf("GetOrOpenBill: %v", err)
	}
	if !first.IsOpen {
		t.Fatal("new bill should be open")
	}
	if first.TotalCents != 0 || len(first.Lines) != 0 {
		t.Errorf("new bill should be empty, got total %d with %d lines",
			first.TotalCents, len(first.Lines))
	}

	second, err := f.service.GetOrOpenBill(f.table.ID)
	if err != nil {
		t.Fatalf("GetOrOpenBill (second call): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second call opened a new bill %d, want existing %d", second.ID, first.ID)
	}
}

func TestGetOrOpenBillUnknownTable(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.GetOrOpenBill(f.table.ID + 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestAddItemRecalculatesTotals(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, "alice"); err != nil {
		t.Fatalf("AddItem pasta: %v", err)
	}
	bill, err := f.service.AddItem(f.table.ID, f.salad.ID, 1, nil, "bob")
	if err != nil {
		t.Fatalf("AddItem salad: %v", err)
	}

	// 2000 at 8.75% tax and 3% service fee.
	if bill.SubtotalCents != 2000 {
		t.Errorf("subtotal = %d, want 2000", bill.SubtotalCents)
	}
	if bill.TaxCents != 175 {
		t.Errorf("tax = %d, want 175", bill.TaxCents)
	}
	if bill.ServiceFeeCents != 60 {
		t.Errorf("service fee = %d, want 60", bill.ServiceFeeCents)
	}
	if bill.TotalCents != 2235 {
		t.Errorf("total = %d, want 2235", bill.TotalCents)
	}
	assertTotalsConsistent(t, bill)
}

func TestAddItemQuantityAndAvailability(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 0, nil, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("qty 0: error = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, -3, nil, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("qty -3: error = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.service.AddItem(f.table.ID, f.soldOut.ID, 1, nil, ""); !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("sold-out item: error = %v, want ErrItemUnavailable", err)
	}
	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID+999, 1, nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown item: error = %v, want ErrNotFound", err)
	}

	bill, err := f.service.GetOrOpenBill(f.table.ID)
	if err != nil {
		t.Fatalf("GetOrOpenBill: %v", err)
	}
	if len(bill.Lines) != 0 {
		t.Errorf("rejected adds left %d lines on the bill", len(bill.Lines))
	}
}

func TestAddItemSnapshotsFrozenAgainstMenuEdits(t *testing.T) {
	f := newFixture(t)

	bill, err := f.service.AddItem(f.table.ID, f.pasta.ID, 2, models.JSONMap{"size": "large"}, "alice")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	// A later price hike must not touch the already-ordered line.
	if err := f.db.Model(&models.MenuItem{}).Where("id = ?", f.pasta.ID).
		Updates(map[string]interface{}{"price_cents": 9999, "name": "Truffle Pasta"}).Error; err != nil {
		t.Fatalf("menu update: %v", err)
	}

	reloaded, err := f.service.GetOrOpenBill(f.table.ID)
	if err != nil {
		t.Fatalf("GetOrOpenBill: %v", err)
	}
	if len(reloaded.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(reloaded.Lines))
	}
	line := reloaded.Lines[0]
	if line.NameSnapshot != "Pasta" {
		t.Errorf("name snapshot = %q, want %q", line.NameSnapshot, "Pasta")
	}
	if line.UnitPriceCents != 1200 {
		t.Errorf("unit price = %d, want frozen 1200", line.UnitPriceCents)
	}
	if line.LineTotalCents != 2400 {
		t.Errorf("line total = %d, want 2400", line.LineTotalCents)
	}
	if reloaded.SubtotalCents != bill.SubtotalCents {
		t.Errorf("subtotal changed from %d to %d after menu edit",
			bill.SubtotalCents, reloaded.SubtotalCents)
	}
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, "alice"); err != nil {
		t.Fatalf("AddItem pasta: %v", err)
	}
	bill, err := f.service.AddItem(f.table.ID, f.salad.ID, 1, nil, "bob")
	if err != nil {
		t.Fatalf("AddItem salad: %v", err)
	}

	var saladLine models.BillLine
	for _, line := range bill.Lines {
		if line.NameSnapshot == "Salad" {
			saladLine = line
		}
	}
	if saladLine.ID == 0 {
		t.Fatal("salad line not found on bill")
	}

	after, err := f.service.RemoveItem(f.table.ID, saladLine.ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(after.Lines) != 1 {
		t.Fatalf("expected 1 remaining line, got %d", len(after.Lines))
	}
	if after.SubtotalCents != 1200 {
		t.Errorf("subtotal = %d, want 1200", after.SubtotalCents)
	}
	if after.TaxCents != 105 {
		t.Errorf("tax = %d, want 105", after.TaxCents)
	}
	if after.ServiceFeeCents != 36 {
		t.Errorf("service fee = %d, want 36", after.ServiceFeeCents)
	}
	assertTotalsConsistent(t, after)

	if _, err := f.service.RemoveItem(f.table.ID, saladLine.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("removing a removed line: error = %v, want ErrNotFound", err)
	}
}

func TestRemoveItemFromAnotherTable(t *testing.T) {
	f := newFixture(t)

	other := models.Table{
		RestaurantID:   f.restaurant.ID,
		Name:           "Table 2",
		TableTokenHash: "table2-hash-" + t.Name(),
	}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("create second table: %v", err)
	}

	bill, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, "")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	// The line belongs to the first table's bill; the second table must
	// not be able to remove it.
	if _, err := f.service.RemoveItem(other.ID, bill.Lines[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-table removal: error = %v, want ErrNotFound", err)
	}
}

func TestPaymentFullClosesBillOnce(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, ""); err != nil {
		t.Fatalf("AddItem pasta: %v", err)
	}
	if _, err := f.service.AddItem(f.table.ID, f.salad.ID, 1, nil, ""); err != nil {
		t.Fatalf("AddItem salad: %v", err)
	}

	result, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeFull, Seats: 1})
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	if result.Payment.Status != models.PaymentStatusSucceeded {
		t.Errorf("payment status = %q, want succeeded", result.Payment.Status)
	}
	if result.Payment.AmountCents != 2235 {
		t.Errorf("payment amount = %d, want 2235", result.Payment.AmountCents)
	}
	if !strings.HasPrefix(result.Payment.ProviderRef, "pi_mock_") {
		t.Errorf("provider ref = %q, want pi_mock_ prefix", result.Payment.ProviderRef)
	}
	if !result.BillClosed {
		t.Error("full payment should close the bill")
	}

	// The settled bill accepts no further attempts.
	_, err = f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeFull, Seats: 1})
	if !errors.Is(err, ErrBillClosed) {
		t.Errorf("second attempt: error = %v, want ErrBillClosed", err)
	}
}

func TestPaymentSplitEvenClosesOnLastSeat(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, ""); err != nil {
		t.Fatalf("AddItem pasta: %v", err)
	}
	if _, err := f.service.AddItem(f.table.ID, f.salad.ID, 1, nil, ""); err != nil {
		t.Fatalf("AddItem salad: %v", err)
	}

	// 2235 over 3 seats is 745 each; 3x745 = 2235 covers the bill exactly
	// in this case, so the third attempt closes it.
	for attempt := 1; attempt <= 3; attempt++ {
		result, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeSplitEven, Seats: 3})
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if result.Payment.AmountCents != 745 {
			t.Errorf("attempt %d amount = %d, want 745", attempt, result.Payment.AmountCents)
		}
		wantClosed := attempt == 3
		if result.BillClosed != wantClosed {
			t.Errorf("attempt %d billClosed = %v, want %v", attempt, result.BillClosed, wantClosed)
		}
	}
}

func TestPaymentMineOnlySessions(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, "alice"); err != nil {
		t.Fatalf("AddItem pasta: %v", err)
	}
	if _, err := f.service.AddItem(f.table.ID, f.salad.ID, 1, nil, "bob"); err != nil {
		t.Fatalf("AddItem salad: %v", err)
	}

	alice, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeMineOnly, SessionID: "alice"})
	if err != nil {
		t.Fatalf("alice payment: %v", err)
	}
	if alice.Payment.AmountCents != 1341 {
		t.Errorf("alice amount = %d, want 1341", alice.Payment.AmountCents)
	}
	if alice.BillClosed {
		t.Error("bill closed after only one session paid")
	}

	bob, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeMineOnly, SessionID: "bob"})
	if err != nil {
		t.Fatalf("bob payment: %v", err)
	}
	if bob.Payment.AmountCents != 894 {
		t.Errorf("bob amount = %d, want 894", bob.Payment.AmountCents)
	}
	if !bob.BillClosed {
		t.Error("bill should close once both sessions have paid")
	}
}

func TestPaymentMineOnlyUnknownSession(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, "alice"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	_, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeMineOnly, SessionID: "carol"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestPaymentTipRaisesTotal(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, "alice"); err != nil {
		t.Fatalf("AddItem pasta: %v", err)
	}
	if _, err := f.service.AddItem(f.table.ID, f.salad.ID, 1, nil, "bob"); err != nil {
		t.Fatalf("AddItem salad: %v", err)
	}

	// Alice tips 300 on her share. The tip raises the amount owed, so the
	// bill stays open until Bob covers the rest.
	alice, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{
		Mode: ModeMineOnly, SessionID: "alice", TipCents: 300,
	})
	if err != nil {
		t.Fatalf("alice payment: %v", err)
	}
	if alice.Payment.AmountCents != 1641 {
		t.Errorf("alice amount = %d, want 1641", alice.Payment.AmountCents)
	}
	if alice.BillClosed {
		t.Error("bill closed before the tipped total was covered")
	}

	var bill models.Bill
	if err := f.db.Where("table_id = ?", f.table.ID).First(&bill).Error; err != nil {
		t.Fatalf("load bill: %v", err)
	}
	if bill.TipCents != 300 {
		t.Errorf("tip = %d, want 300", bill.TipCents)
	}
	if bill.TotalCents != 2535 {
		t.Errorf("total = %d, want 2535", bill.TotalCents)
	}

	bob, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeMineOnly, SessionID: "bob"})
	if err != nil {
		t.Fatalf("bob payment: %v", err)
	}
	// Alice paid 1641, Bob 894: 2535 total, exactly the tipped amount owed.
	if !bob.BillClosed {
		t.Error("bill should close once payments reach the tipped total")
	}
}

func TestGetOrOpenBillAfterClose(t *testing.T) {
	f := newFixture(t)

	if _, err := f.service.AddItem(f.table.ID, f.pasta.ID, 1, nil, ""); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	closed, err := f.service.CreatePaymentIntent(f.table.ID, SplitRequest{Mode: ModeFull, Seats: 1})
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	if !closed.BillClosed {
		t.Fatal("full payment should close the bill")
	}

	// The next visit gets a fresh, empty bill.
	fresh, err := f.service.GetOrOpenBill(f.table.ID)
	if err != nil {
		t.Fatalf("GetOrOpenBill: %v", err)
	}
	if !fresh.IsOpen {
		t.Error("new bill should be open")
	}
	if fresh.TotalCents != 0 || len(fresh.Lines) != 0 {
		t.Errorf("new bill should be empty, got total %d with %d lines",
			fresh.TotalCents, len(fresh.Lines))
	}
}

func TestLinesBySession(t *testing.T) {
	lines := []models.BillLine{
		{ID: 1, SessionID: "alice"},
		{ID: 2, SessionID: ""},
		{ID: 3, SessionID: "alice"},
		{ID: 4, SessionID: "bob"},
	}

	groups := LinesBySession(lines)
	if len(groups["alice"]) != 2 {
		t.Errorf("alice has %d lines, want 2", len(groups["alice"]))
	}
	if len(groups["bob"]) != 1 {
		t.Errorf("bob has %d lines, want 1", len(groups["bob"]))
	}
	if len(groups[SessionUnknown]) != 1 {
		t.Errorf("unknown bucket has %d lines, want 1", len(groups[SessionUnknown]))
	}
}
