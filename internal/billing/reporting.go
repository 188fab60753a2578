package billing

import (
	"time"

	"tably-system/internal/database/models"
)

// DashboardStats are the admin landing-page KPIs.
type DashboardStats struct {
	OpenChecksCount   int64
	TodayRevenueCents int64
	TotalBillsToday   int64
}

func (s *Service) Dashboard(restaurantID int64) (*DashboardStats, error) {
	var stats DashboardStats

	if err := s.db.Model(&models.Bill{}).
		Where("restaurant_id = ? AND is_open = ?", restaurantID, true).
		Count(&stats.OpenChecksCount).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if err := s.db.Model(&models.Bill{}).
		Where("restaurant_id = ? AND is_open = ? AND created_at >= ?", restaurantID, false, todayStart).
		Select("COALESCE(SUM(total_cents), 0)").
		Scan(&stats.TodayRevenueCents).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Bill{}).
		Where("restaurant_id = ? AND created_at >= ?", restaurantID, todayStart).
		Count(&stats.TotalBillsToday).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

// OpenBills returns the restaurant's open bills with lines and table
// preloaded, most recently updated first. Used by the staff orders view.
func (s *Service) OpenBills(restaurantID int64) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.db.Where("restaurant_id = ? AND is_open = ?", restaurantID, true).
		Preload("Lines").
		Preload("Table").
		Order("updated_at DESC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}
