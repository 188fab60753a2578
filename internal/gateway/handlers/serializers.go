package handlers

import (
	"github.com/gin-gonic/gin"

	"tably-system/internal/database/models"
)

func billLineJSON(line models.BillLine) gin.H {
	sessionID := line.SessionID
	if sessionID == "" {
		sessionID = "unknown"
	}
	return gin.H{
		"id":               line.ID,
		"name_snapshot":    line.NameSnapshot,
		"options_snapshot": line.OptionsSnapshot,
		"qty":              line.Qty,
		"unit_price_cents": line.UnitPriceCents,
		"line_total_cents": line.LineTotalCents,
		"session_id":       sessionID,
		"ordered_at":       line.OrderedAt,
	}
}

func billJSON(bill *models.Bill) gin.H {
	lines := make([]gin.H, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		lines = append(lines, billLineJSON(line))
	}
	return gin.H{
		"id":                bill.ID,
		"is_open":           bill.IsOpen,
		"subtotal_cents":    bill.SubtotalCents,
		"tax_cents":         bill.TaxCents,
		"service_fee_cents": bill.ServiceFeeCents,
		"tip_cents":         bill.TipCents,
		"total_cents":       bill.TotalCents,
		"created_at":        bill.CreatedAt,
		"lines":             lines,
	}
}

func menuItemJSON(item models.MenuItem) gin.H {
	return gin.H{
		"id":           item.ID,
		"category":     item.CategoryID,
		"name":         item.Name,
		"description":  item.Description,
		"price_cents":  item.PriceCents,
		"image_url":    item.ImageURL,
		"available":    item.Available,
		"options_json": item.Options,
	}
}

func menuCategoryJSON(category models.MenuCategory) gin.H {
	items := make([]gin.H, 0, len(category.Items))
	for _, item := range category.Items {
		items = append(items, menuItemJSON(item))
	}
	return gin.H{
		"id":       category.ID,
		"name":     category.Name,
		"position": category.Position,
		"items":    items,
	}
}

func settingsJSON(restaurant *models.Restaurant) gin.H {
	return gin.H{
		"id":               restaurant.ID,
		"name":             restaurant.Name,
		"theme_json":       restaurant.Theme,
		"tax_rate":         restaurant.TaxRate,
		"service_fee_rate": restaurant.ServiceFeeRate,
		"tip_presets_json": restaurant.TipPresets,
	}
}
