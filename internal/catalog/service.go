package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tably-system/internal/auth"
	"tably-system/internal/database/models"
)

const (
	menuCachePrefix = "catalog:menu:"
	menuCacheTTL    = 30 * time.Minute
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Service struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{db: db, redis: redisClient}
}

// Menu returns the restaurant's categories with their items, ordered by
// position. Served from redis when possible; admin mutations invalidate.
func (s *Service) Menu(ctx context.Context, restaurantID int64) ([]models.MenuCategory, error) {
	cacheKey := fmt.Sprintf("%s%d", menuCachePrefix, restaurantID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var categories []models.MenuCategory
			if err := json.Unmarshal([]byte(cached), &categories); err == nil {
				return categories, nil
			}
		}
	}

	var categories []models.MenuCategory
	if err := s.db.Where("restaurant_id = ?", restaurantID).
		Preload("Items").
		Order("position, id").
		Find(&categories).Error; err != nil {
		return nil, err
	}

	if s.redis != nil {
		if payload, err := json.Marshal(categories); err == nil {
			_ = s.redis.Set(ctx, cacheKey, payload, menuCacheTTL).Err()
		}
	}

	return categories, nil
}

func (s *Service) invalidateMenuCache(ctx context.Context, restaurantID int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, fmt.Sprintf("%s%d", menuCachePrefix, restaurantID)).Err()
}

// -- Categories --

func (s *Service) Categories(restaurantID int64) ([]models.MenuCategory, error) {
	var categories []models.MenuCategory
	err := s.db.Where("restaurant_id = ?", restaurantID).
		Preload("Items").
		Order("position, id").
		Find(&categories).Error
	return categories, err
}

func (s *Service) CreateCategory(ctx context.Context, restaurantID int64, name string, position int32) (*models.MenuCategory, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: category name required", ErrInvalidArgument)
	}

	category := models.MenuCategory{
		RestaurantID: restaurantID,
		Name:         name,
		Position:     position,
	}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, err
	}

	s.invalidateMenuCache(ctx, restaurantID)
	return &category, nil
}

func (s *Service) GetCategory(restaurantID, categoryID int64) (*models.MenuCategory, error) {
	var category models.MenuCategory
	if err := s.db.Where("id = ? AND restaurant_id = ?", categoryID, restaurantID).
		Preload("Items").
		First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
		}
		return nil, err
	}
	return &category, nil
}

type CategoryUpdate struct {
	Name     *string
	Position *int32
}

func (s *Service) UpdateCategory(ctx context.Context, restaurantID, categoryID int64, update CategoryUpdate) (*models.MenuCategory, error) {
	category, err := s.GetCategory(restaurantID, categoryID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		category.Name = *update.Name
	}
	if update.Position != nil {
		category.Position = *update.Position
	}

	if err := s.db.Save(category).Error; err != nil {
		return nil, err
	}

	s.invalidateMenuCache(ctx, restaurantID)
	return category, nil
}

func (s *Service) DeleteCategory(ctx context.Context, restaurantID, categoryID int64) error {
	result := s.db.Where("id = ? AND restaurant_id = ?", categoryID, restaurantID).
		Delete(&models.MenuCategory{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
	}

	s.invalidateMenuCache(ctx, restaurantID)
	return nil
}

// -- Items --

func (s *Service) Items(restaurantID int64) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.db.Where("restaurant_id = ?", restaurantID).
		Preload("Category").
		Order("id").
		Find(&items).Error
	return items, err
}

type ItemInput struct {
	CategoryID  int64
	Name        string
	Description string
	PriceCents  int64
	ImageURL    *string
	Available   bool
	Options     models.JSONMap
}

func (s *Service) CreateItem(ctx context.Context, restaurantID int64, input ItemInput) (*models.MenuItem, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: item name required", ErrInvalidArgument)
	}
	if input.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidArgument)
	}

	// The category must belong to the same restaurant.
	var category models.MenuCategory
	if err := s.db.Where("id = ? AND restaurant_id = ?", input.CategoryID, restaurantID).
		First(&category).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: invalid category", ErrInvalidArgument)
		}
		return nil, err
	}

	if input.Options == nil {
		input.Options = models.JSONMap{}
	}
	item := models.MenuItem{
		RestaurantID: restaurantID,
		CategoryID:   input.CategoryID,
		Name:         input.Name,
		Description:  input.Description,
		PriceCents:   input.PriceCents,
		ImageURL:     input.ImageURL,
		Available:    input.Available,
		Options:      input.Options,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, err
	}

	s.invalidateMenuCache(ctx, restaurantID)
	return &item, nil
}

func (s *Service) GetItem(restaurantID, itemID int64) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		First(&item).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
		}
		return nil, err
	}
	return &item, nil
}

type ItemUpdate struct {
	CategoryID  *int64
	Name        *string
	Description *string
	PriceCents  *int64
	ImageURL    *string
	Available   *bool
	Options     models.JSONMap
}

func (s *Service) UpdateItem(ctx context.Context, restaurantID, itemID int64, update ItemUpdate) (*models.MenuItem, error) {
	item, err := s.GetItem(restaurantID, itemID)
	if err != nil {
		return nil, err
	}

	if update.CategoryID != nil {
		var category models.MenuCategory
		if err := s.db.Where("id = ? AND restaurant_id = ?", *update.CategoryID, restaurantID).
			First(&category).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: invalid category", ErrInvalidArgument)
			}
			return nil, err
		}
		item.CategoryID = *update.CategoryID
	}
	if update.Name != nil {
		item.Name = *update.Name
	}
	if update.Description != nil {
		item.Description = *update.Description
	}
	if update.PriceCents != nil {
		if *update.PriceCents < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidArgument)
		}
		item.PriceCents = *update.PriceCents
	}
	if update.ImageURL != nil {
		item.ImageURL = update.ImageURL
	}
	if update.Available != nil {
		item.Available = *update.Available
	}
	if update.Options != nil {
		item.Options = update.Options
	}

	if err := s.db.Save(item).Error; err != nil {
		return nil, err
	}

	s.invalidateMenuCache(ctx, restaurantID)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, restaurantID, itemID int64) error {
	result := s.db.Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		Delete(&models.MenuItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}

	s.invalidateMenuCache(ctx, restaurantID)
	return nil
}

// -- Tables --

func (s *Service) Tables(restaurantID int64) ([]models.Table, error) {
	var tables []models.Table
	err := s.db.Where("restaurant_id = ?", restaurantID).Order("id").Find(&tables).Error
	return tables, err
}

// CreateTable provisions a table and returns the plain scan token exactly
// once; only its hash is persisted.
func (s *Service) CreateTable(restaurantID int64, name string) (*models.Table, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("%w: table name required", ErrInvalidArgument)
	}

	token := auth.NewTableToken()
	table := models.Table{
		RestaurantID:   restaurantID,
		Name:           name,
		TableTokenHash: auth.HashToken(token),
	}
	if err := s.db.Create(&table).Error; err != nil {
		return nil, "", err
	}
	return &table, token, nil
}

// -- Settings --

func (s *Service) Settings(restaurantID int64) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := s.db.Where("id = ?", restaurantID).First(&restaurant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: restaurant %d", ErrNotFound, restaurantID)
		}
		return nil, err
	}
	return &restaurant, nil
}

type SettingsUpdate struct {
	Name           *string
	Theme          models.JSONMap
	TaxRate        *string
	ServiceFeeRate *string
	TipPresets     models.FloatArray
}

func (s *Service) UpdateSettings(restaurantID int64, update SettingsUpdate) (*models.Restaurant, error) {
	restaurant, err := s.Settings(restaurantID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		restaurant.Name = *update.Name
	}
	if update.Theme != nil {
		restaurant.Theme = update.Theme
	}
	if update.TaxRate != nil {
		if err := validateRate(*update.TaxRate); err != nil {
			return nil, err
		}
		restaurant.TaxRate = *update.TaxRate
	}
	if update.ServiceFeeRate != nil {
		if err := validateRate(*update.ServiceFeeRate); err != nil {
			return nil, err
		}
		restaurant.ServiceFeeRate = *update.ServiceFeeRate
	}
	if update.TipPresets != nil {
		restaurant.TipPresets = update.TipPresets
	}

	if err := s.db.Save(restaurant).Error; err != nil {
		return nil, err
	}
	return restaurant, nil
}

// validateRate accepts decimal fractions like "0.0875"; rates are stored
// as strings and only ever multiplied through shopspring/decimal.
func validateRate(rate string) error {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return fmt.Errorf("%w: invalid rate %q", ErrInvalidArgument, rate)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: rate %q out of range", ErrInvalidArgument, rate)
	}
	return nil
}
