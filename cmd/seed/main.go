package main

import (
	"log"

	"tably-system/config"
	"tably-system/internal/auth"
	"tably-system/internal/database"
	"tably-system/internal/database/models"

	"gorm.io/gorm"
)

// Fixed demo tokens so the frontend can be pointed at a fresh database
// without copying generated secrets around.
const (
	adminToken = "admin123"
	tableToken = "table1abc"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Seeding database...")

	restaurant, err := seedRestaurant(db)
	if err != nil {
		log.Fatalf("Failed to seed restaurant: %v", err)
	}

	if err := seedTable(db, restaurant); err != nil {
		log.Fatalf("Failed to seed table: %v", err)
	}

	if err := seedMenu(db, restaurant); err != nil {
		log.Fatalf("Failed to seed menu: %v", err)
	}

	log.Println("=== Seeding Complete ===")
	log.Printf("Admin token: %s", adminToken)
	log.Printf("Table token: %s", tableToken)
}

func seedRestaurant(db *gorm.DB) (*models.Restaurant, error) {
	hash := auth.HashToken(adminToken)

	var restaurant models.Restaurant
	err := db.Where("admin_token_hash = ?", hash).First(&restaurant).Error
	if err == nil {
		log.Printf("Restaurant already exists: %s", restaurant.Name)
		return &restaurant, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	restaurant = models.Restaurant{
		Name: "Demo Restaurant",
		Theme: models.JSONMap{
			"primaryColor":   "#4F46E5",
			"secondaryColor": "#10B981",
			"logo":           "",
		},
		TaxRate:        "0.0875",
		ServiceFeeRate: "0.0300",
		TipPresets:     models.FloatArray{0.15, 0.18, 0.20, 0.25},
		AdminTokenHash: hash,
	}
	if err := db.Create(&restaurant).Error; err != nil {
		return nil, err
	}
	log.Printf("Created restaurant: %s", restaurant.Name)
	return &restaurant, nil
}

func seedTable(db *gorm.DB, restaurant *models.Restaurant) error {
	hash := auth.HashToken(tableToken)

	var table models.Table
	err := db.Where("table_token_hash = ?", hash).First(&table).Error
	if err == nil {
		log.Printf("Table already exists: %s", table.Name)
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	table = models.Table{
		RestaurantID:   restaurant.ID,
		Name:           "Table 1",
		TableTokenHash: hash,
	}
	if err := db.Create(&table).Error; err != nil {
		return err
	}
	log.Printf("Created table: %s", table.Name)
	return nil
}

type seedItem struct {
	name        string
	description string
	priceCents  int64
	options     models.JSONMap
}

type seedCategory struct {
	name     string
	position int32
	items    []seedItem
}

func seedMenu(db *gorm.DB, restaurant *models.Restaurant) error {
	var count int64
	if err := db.Model(&models.MenuCategory{}).
		Where("restaurant_id = ?", restaurant.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Menu already exists")
		return nil
	}

	menu := []seedCategory{
		{
			name: "Appetizers", position: 1,
			items: []seedItem{
				{"Spring Rolls", "Crispy vegetable spring rolls with sweet chili sauce", 895, models.JSONMap{}},
				{"Chicken Wings", "Buffalo wings with ranch dressing", 1295, models.JSONMap{
					"spicy_level": []string{"Mild", "Medium", "Hot", "Extra Hot"},
				}},
				{"Calamari", "Fried calamari rings with marinara sauce", 1495, models.JSONMap{}},
			},
		},
		{
			name: "Main Courses", position: 2,
			items: []seedItem{
				{"Grilled Salmon", "Fresh Atlantic salmon with roasted vegetables", 2495, models.JSONMap{
					"cooking": []string{"Medium", "Well Done"},
				}},
				{"Ribeye Steak", "12oz ribeye with garlic mashed potatoes", 3495, models.JSONMap{
					"cooking": []string{"Rare", "Medium Rare", "Medium", "Medium Well", "Well Done"},
				}},
				{"Chicken Parmesan", "Breaded chicken breast with marinara and mozzarella", 1895, models.JSONMap{}},
				{"Vegetarian Pasta", "Penne pasta with seasonal vegetables in tomato sauce", 1695, models.JSONMap{
					"pasta_type": []string{"Penne", "Spaghetti", "Fettuccine"},
				}},
			},
		},
		{
			name: "Desserts", position: 3,
			items: []seedItem{
				{"Chocolate Lava Cake", "Warm chocolate cake with vanilla ice cream", 895, models.JSONMap{}},
				{"Tiramisu", "Classic Italian dessert with coffee and mascarpone", 795, models.JSONMap{}},
				{"Cheesecake", "New York style cheesecake with berry compote", 795, models.JSONMap{
					"topping": []string{"Strawberry", "Blueberry", "Mixed Berry", "Plain"},
				}},
			},
		},
		{
			name: "Beverages", position: 4,
			items: []seedItem{
				{"Soft Drinks", "Coca-Cola, Sprite, Fanta, Iced Tea", 295, models.JSONMap{
					"type": []string{"Coca-Cola", "Sprite", "Fanta", "Iced Tea"},
				}},
				{"Fresh Juice", "Orange, Apple, or Cranberry juice", 495, models.JSONMap{
					"type": []string{"Orange", "Apple", "Cranberry"},
				}},
				{"Coffee", "Freshly brewed coffee", 395, models.JSONMap{
					"type": []string{"Black", "With Cream", "Cappuccino", "Latte"},
				}},
			},
		},
	}

	for _, sc := range menu {
		category := models.MenuCategory{
			RestaurantID: restaurant.ID,
			Name:         sc.name,
			Position:     sc.position,
		}
		if err := db.Create(&category).Error; err != nil {
			return err
		}
		for _, si := range sc.items {
			item := models.MenuItem{
				RestaurantID: restaurant.ID,
				CategoryID:   category.ID,
				Name:         si.name,
				Description:  si.description,
				PriceCents:   si.priceCents,
				Available:    true,
				Options:      si.options,
			}
			if err := db.Create(&item).Error; err != nil {
				return err
			}
		}
	}

	log.Println("Created menu categories and items")
	return nil
}
