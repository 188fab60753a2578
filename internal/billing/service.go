package billing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tably-system/internal/database/models"
)

// SessionUnknown is the reporting bucket for lines added without a diner
// session. It is not a payable session.
const SessionUnknown = "unknown"

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetOrOpenBill returns the table's open bill, creating an empty one if
// none exists. Two concurrent first orders converge on one bill via the
// partial unique index on (table_id) WHERE is_open.
func (s *Service) GetOrOpenBill(tableID int64) (*models.Bill, error) {
	var bill *models.Bill
	err := s.db.Transaction(func(tx *gorm.DB) error {
		table, err := findTable(tx, tableID)
		if err != nil {
			return err
		}
		bill, err = getOrOpenBill(tx, table)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.reloadBill(bill.ID)
}

// AddItem appends a line for the menu item to the table's open bill and
// recalculates totals as one atomic unit. Name, options and unit price are
// frozen at call time so later menu edits never change the bill.
func (s *Service) AddItem(tableID, itemID int64, qty int32, options models.JSONMap, sessionID string) (*models.Bill, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: qty must be a positive integer", ErrInvalidArgument)
	}

	var bill *models.Bill
	err := s.db.Transaction(func(tx *gorm.DB) error {
		table, err := findTable(tx, tableID)
		if err != nil {
			return err
		}

		var item models.MenuItem
		if err := tx.Where("id = ? AND restaurant_id = ?", itemID, table.RestaurantID).
			First(&item).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: menu item %d", ErrNotFound, itemID)
			}
			return err
		}
		if !item.Available {
			return fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
		}

		bill, err = getOrOpenBill(tx, table)
		if err != nil {
			return err
		}

		if options == nil {
			options = models.JSONMap{}
		}
		line := models.BillLine{
			BillID:          bill.ID,
			ItemID:          &item.ID,
			NameSnapshot:    item.Name,
			OptionsSnapshot: options,
			Qty:             qty,
			UnitPriceCents:  item.PriceCents,
			LineTotalCents:  item.PriceCents * int64(qty),
			SessionID:       sessionID,
		}
		if err := tx.Create(&line).Error; err != nil {
			return err
		}

		return s.recalculateBillTotals(tx, bill)
	})
	if err != nil {
		return nil, err
	}
	return s.reloadBill(bill.ID)
}

// RemoveItem deletes a line from the table's open bill. Removal is
// all-or-nothing for a line; quantity changes are remove + re-add.
func (s *Service) RemoveItem(tableID, lineID int64) (*models.Bill, error) {
	var bill *models.Bill
	err := s.db.Transaction(func(tx *gorm.DB) error {
		table, err := findTable(tx, tableID)
		if err != nil {
			return err
		}

		bill, err = getOrOpenBill(tx, table)
		if err != nil {
			return err
		}

		result := tx.Where("id = ? AND bill_id = ?", lineID, bill.ID).Delete(&models.BillLine{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: bill line %d", ErrNotFound, lineID)
		}

		return s.recalculateBillTotals(tx, bill)
	})
	if err != nil {
		return nil, err
	}
	return s.reloadBill(bill.ID)
}

// PaymentResult is returned to the caller after a settlement attempt.
type PaymentResult struct {
	Payment    models.Payment
	BillClosed bool
}

// CreatePaymentIntent records one settlement attempt against the table's
// current bill. The mock provider settles instantly: the payment is
// created directly in succeeded status. A positive tip is added in full to
// the bill, raising the amount-owed baseline for later attempts. The bill
// closes exactly once, when cumulative succeeded payments reach the total.
func (s *Service) CreatePaymentIntent(tableID int64, req SplitRequest) (*PaymentResult, error) {
	var result PaymentResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		table, err := findTable(tx, tableID)
		if err != nil {
			return err
		}

		var bill models.Bill
		if err := tx.Where("table_id = ?", table.ID).
			Order("created_at DESC, id DESC").
			First(&bill).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: no bill for table %d", ErrNotFound, tableID)
			}
			return err
		}
		if !bill.IsOpen {
			return fmt.Errorf("%w: bill %d is already settled", ErrBillClosed, bill.ID)
		}

		snap, err := snapshotBill(tx, &bill)
		if err != nil {
			return err
		}

		amount, err := ResolveAmount(snap, req)
		if err != nil {
			return err
		}

		payment := models.Payment{
			BillID:      bill.ID,
			Status:      models.PaymentStatusSucceeded,
			AmountCents: amount,
			Provider:    "stripe",
			ProviderRef: newProviderRef(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if req.TipCents > 0 {
			bill.TipCents += req.TipCents
			bill.TotalCents = bill.SubtotalCents + bill.TaxCents + bill.ServiceFeeCents + bill.TipCents
			if err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).Updates(map[string]interface{}{
				"tip_cents":   bill.TipCents,
				"total_cents": bill.TotalCents,
			}).Error; err != nil {
				return err
			}
		}

		var totalPaid int64
		if err := tx.Model(&models.Payment{}).
			Where("bill_id = ? AND status = ?", bill.ID, models.PaymentStatusSucceeded).
			Select("COALESCE(SUM(amount_cents), 0)").
			Scan(&totalPaid).Error; err != nil {
			return err
		}

		if totalPaid >= bill.TotalCents {
			bill.IsOpen = false
			if err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).
				Update("is_open", false).Error; err != nil {
				return err
			}
		}

		result = PaymentResult{Payment: payment, BillClosed: !bill.IsOpen}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LinesBySession groups a bill's lines by diner session for reporting.
// Lines without a session land in the "unknown" bucket.
func LinesBySession(lines []models.BillLine) map[string][]models.BillLine {
	sessions := make(map[string][]models.BillLine)
	for _, line := range lines {
		key := line.SessionID
		if key == "" {
			key = SessionUnknown
		}
		sessions[key] = append(sessions[key], line)
	}
	return sessions
}

func findTable(tx *gorm.DB, tableID int64) (*models.Table, error) {
	var table models.Table
	if err := tx.Where("id = ?", tableID).First(&table).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: table %d", ErrNotFound, tableID)
		}
		return nil, err
	}
	return &table, nil
}

func getOrOpenBill(tx *gorm.DB, table *models.Table) (*models.Bill, error) {
	var bill models.Bill
	err := tx.Where("table_id = ? AND is_open = ?", table.ID, true).First(&bill).Error
	if err == nil {
		return &bill, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	bill = models.Bill{
		RestaurantID: table.RestaurantID,
		TableID:      table.ID,
		IsOpen:       true,
	}
	if createErr := tx.Create(&bill).Error; createErr != nil {
		// A concurrent first order won the race; the unique open-bill index
		// rejected our insert, so the other bill is the one to use.
		if strings.Contains(strings.ToLower(createErr.Error()), "unique") ||
			strings.Contains(strings.ToLower(createErr.Error()), "duplicate") {
			if err := tx.Where("table_id = ? AND is_open = ?", table.ID, true).
				First(&bill).Error; err != nil {
				return nil, err
			}
			return &bill, nil
		}
		return nil, createErr
	}
	return &bill, nil
}

// recalculateBillTotals re-derives every monetary field from the current
// line set. Tip is only ever mutated by settlement, never here.
func (s *Service) recalculateBillTotals(tx *gorm.DB, bill *models.Bill) error {
	var lines []models.BillLine
	if err := tx.Where("bill_id = ?", bill.ID).Find(&lines).Error; err != nil {
		return err
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.LineTotalCents
	}

	var restaurant models.Restaurant
	if err := tx.Where("id = ?", bill.RestaurantID).First(&restaurant).Error; err != nil {
		return err
	}

	taxRate, err := decimal.NewFromString(restaurant.TaxRate)
	if err != nil {
		return fmt.Errorf("bad tax_rate %q: %w", restaurant.TaxRate, err)
	}
	feeRate, err := decimal.NewFromString(restaurant.ServiceFeeRate)
	if err != nil {
		return fmt.Errorf("bad service_fee_rate %q: %w", restaurant.ServiceFeeRate, err)
	}

	tax := decimal.NewFromInt(subtotal).Mul(taxRate).Floor().IntPart()
	fee := decimal.NewFromInt(subtotal).Mul(feeRate).Floor().IntPart()

	bill.SubtotalCents = subtotal
	bill.TaxCents = tax
	bill.ServiceFeeCents = fee
	bill.TotalCents = subtotal + tax + fee + bill.TipCents

	return tx.Model(&models.Bill{}).Where("id = ?", bill.ID).Updates(map[string]interface{}{
		"subtotal_cents":    bill.SubtotalCents,
		"tax_cents":         bill.TaxCents,
		"service_fee_cents": bill.ServiceFeeCents,
		"total_cents":       bill.TotalCents,
	}).Error
}

func snapshotBill(tx *gorm.DB, bill *models.Bill) (BillSnapshot, error) {
	var lines []models.BillLine
	if err := tx.Where("bill_id = ?", bill.ID).Find(&lines).Error; err != nil {
		return BillSnapshot{}, err
	}

	sessionSubtotals := make(map[string]int64)
	for _, line := range lines {
		if line.SessionID == "" {
			continue
		}
		sessionSubtotals[line.SessionID] += line.LineTotalCents
	}

	return BillSnapshot{
		SubtotalCents:    bill.SubtotalCents,
		TaxCents:         bill.TaxCents,
		ServiceFeeCents:  bill.ServiceFeeCents,
		SessionSubtotals: sessionSubtotals,
	}, nil
}

func (s *Service) reloadBill(billID int64) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.Where("id = ?", billID).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordered_at, id")
		}).
		First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func newProviderRef() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "pi_mock_" + hex[:24]
}
