package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tably-system/internal/database"
	"tably-system/internal/database/models"
)

func newTestService(t *testing.T) (*Service, int64) {
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

	restaurant := models.Restaurant{
		Name:           "Test Restaurant",
		TaxRate:        "0.0875",
		ServiceFeeRate: "0.0300",
		AdminTokenHash: "admin-hash-" + t.Name(),
	}
	if err := db.Create(&restaurant).Error; err != nil {
		t.Fatalf("create restaurant: %v", err)
	}

	return NewService(db, nil), restaurant.ID
}

func TestCategoryCRUD(t *testing.T) {
	s, restaurantID := newTestService(t)
	ctx := context.Background()

	category, err := s.CreateCategory(ctx, restaurantID, "Mains", 2)
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := s.CreateCategory(ctx, restaurantID, "", 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty name: error = %v, want ErrInvalidArgument", err)
	}

	newName := "Main Courses"
	updated, err := s.UpdateCategory(ctx, restaurantID, category.ID, CategoryUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("name = %q, want %q", updated.Name, newName)
	}
	if updated.Position != 2 {
		t.Errorf("position changed to %d on a name-only patch", updated.Position)
	}

	if err := s.DeleteCategory(ctx, restaurantID, category.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if _, err := s.GetCategory(restaurantID, category.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted category: error = %v, want ErrNotFound", err)
	}
}

func TestItemOwnershipAndValidation(t *testing.T) {
	s, restaurantID := newTestService(t)
	ctx := context.Background()

	category, err := s.CreateCategory(ctx, restaurantID, "Mains", 1)
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	item, err := s.CreateItem(ctx, restaurantID, ItemInput{
		CategoryID: category.ID,
		Name:       "Pasta",
		PriceCents: 1200,
		Available:  true,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	// A category from another restaurant is rejected.
	if _, err := s.CreateItem(ctx, restaurantID+1, ItemInput{
		CategoryID: category.ID,
		Name:       "Smuggled",
		PriceCents: 100,
	}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("foreign category: error = %v, want ErrInvalidArgument", err)
	}

	negative := int64(-5)
	if _, err := s.UpdateItem(ctx, restaurantID, item.ID, ItemUpdate{PriceCents: &negative}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative price: error = %v, want ErrInvalidArgument", err)
	}

	unavailable := false
	updated, err := s.UpdateItem(ctx, restaurantID, item.ID, ItemUpdate{Available: &unavailable})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.Available {
		t.Error("availability toggle did not stick")
	}
	if updated.PriceCents != 1200 {
		t.Errorf("price = %d, want untouched 1200", updated.PriceCents)
	}
}

func TestMenuOrdering(t *testing.T) {
	s, restaurantID := newTestService(t)
	ctx := context.Background()

	if _, err := s.CreateCategory(ctx, restaurantID, "Desserts", 3); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := s.CreateCategory(ctx, restaurantID, "Appetizers", 1); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := s.CreateCategory(ctx, restaurantID, "Mains", 2); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	menu, err := s.Menu(ctx, restaurantID)
	if err != nil {
		t.Fatalf("Menu: %v", err)
	}
	want := []string{"Appetizers", "Mains", "Desserts"}
	if len(menu) != len(want) {
		t.Fatalf("menu has %d categories, want %d", len(menu), len(want))
	}
	for i, name := range want {
		if menu[i].Name != name {
			t.Errorf("menu[%d] = %q, want %q", i, menu[i].Name, name)
		}
	}
}

func TestCreateTableReturnsTokenOnce(t *testing.T) {
	s, restaurantID := newTestService(t)

	table, token, err := s.CreateTable(restaurantID, "Patio 4")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if token == "" {
		t.Fatal("plain token must be returned at creation")
	}
	if table.TableTokenHash == token {
		t.Error("plain token must not be persisted")
	}

	tables, err := s.Tables(restaurantID)
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
}

func TestUpdateSettingsRateValidation(t *testing.T) {
	s, restaurantID := newTestService(t)

	bad := "1.5"
	if _, err := s.UpdateSettings(restaurantID, SettingsUpdate{TaxRate: &bad}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("rate > 1: error = %v, want ErrInvalidArgument", err)
	}

	junk := "lots"
	if _, err := s.UpdateSettings(restaurantID, SettingsUpdate{ServiceFeeRate: &junk}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("non-numeric rate: error = %v, want ErrInvalidArgument", err)
	}

	good := "0.1000"
	updated, err := s.UpdateSettings(restaurantID, SettingsUpdate{TaxRate: &good})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if updated.TaxRate != good {
		t.Errorf("tax rate = %q, want %q", updated.TaxRate, good)
	}
}
