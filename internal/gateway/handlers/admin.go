package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tably-system/internal/auth"
	"tably-system/internal/billing"
	"tably-system/internal/catalog"
	"tably-system/internal/database/models"
	"tably-system/internal/gateway/middleware"
)

type AdminHandler struct {
	db         *gorm.DB
	billing    *billing.Service
	catalog    *catalog.Service
	jwtSecret  []byte
	sessionTTL time.Duration
}

func NewAdminHandler(db *gorm.DB, billingService *billing.Service, catalogService *catalog.Service, jwtSecret []byte, sessionTTL time.Duration) *AdminHandler {
	return &AdminHandler{
		db:         db,
		billing:    billingService,
		catalog:    catalogService,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
	}
}

// Request structs
type CreateCategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	Position int32  `json:"position"`
}

type UpdateCategoryRequest struct {
	Name     *string `json:"name"`
	Position *int32  `json:"position"`
}

type CreateItemRequest struct {
	Category    int64          `json:"category" binding:"required"`
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	PriceCents  int64          `json:"price_cents"`
	ImageURL    *string        `json:"image_url"`
	Available   *bool          `json:"available"`
	Options     models.JSONMap `json:"options_json"`
}

type UpdateItemRequest struct {
	Category    *int64         `json:"category"`
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	PriceCents  *int64         `json:"price_cents"`
	ImageURL    *string        `json:"image_url"`
	Available   *bool          `json:"available"`
	Options     models.JSONMap `json:"options_json"`
}

type CreateTableRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateSettingsRequest struct {
	Name           *string           `json:"name"`
	Theme          models.JSONMap    `json:"theme_json"`
	TaxRate        *string           `json:"tax_rate"`
	ServiceFeeRate *string           `json:"service_fee_rate"`
	TipPresets     models.FloatArray `json:"tip_presets_json"`
}

// POST /api/admin/auth/session
// Exchanges a valid X-Admin-Token for a short-lived session JWT.
func (h *AdminHandler) CreateSession(c *gin.Context) {
	token := c.GetHeader("X-Admin-Token")
	if token == "" {
		c.JSON(http.StatusBadRequest, errorResponse("X-Admin-Token header required"))
		return
	}

	restaurant, err := auth.ResolveAdminToken(h.db, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid admin token"))
		return
	}

	sessionToken, expiresAt, err := auth.GenerateSessionToken(h.jwtSecret, restaurant.ID, h.sessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to issue session token"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Session created successfully", gin.H{
		"token":      sessionToken,
		"expires_at": expiresAt,
	}))
}

// GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.billing.Dashboard(middleware.RestaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"openChecksCount":   stats.OpenChecksCount,
		"todayRevenueCents": stats.TodayRevenueCents,
		"totalBillsToday":   stats.TotalBillsToday,
	})
}

// GET /api/admin/orders
// Active orders grouped by table, with per-session attribution so staff
// can see who ordered what. Amounts here are presentation-time major
// units; everything at rest stays integer cents.
func (h *AdminHandler) Orders(c *gin.Context) {
	bills, err := h.billing.OpenBills(middleware.RestaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	orders := make([]gin.H, 0, len(bills))
	for _, bill := range bills {
		sessions := make(map[string][]gin.H)
		for session, lines := range billing.LinesBySession(bill.Lines) {
			for _, line := range lines {
				sessions[session] = append(sessions[session], gin.H{
					"id":        line.ID,
					"name":      line.NameSnapshot,
					"qty":       line.Qty,
					"price":     float64(line.UnitPriceCents) / 100,
					"lineTotal": float64(line.LineTotalCents) / 100,
					"orderedAt": line.OrderedAt,
				})
			}
		}

		allItems := make([]gin.H, 0, len(bill.Lines))
		for _, line := range bill.Lines {
			sessionID := line.SessionID
			if sessionID == "" {
				sessionID = billing.SessionUnknown
			}
			allItems = append(allItems, gin.H{
				"id":        line.ID,
				"name":      line.NameSnapshot,
				"qty":       line.Qty,
				"price":     float64(line.UnitPriceCents) / 100,
				"lineTotal": float64(line.LineTotalCents) / 100,
				"orderedAt": line.OrderedAt,
				"sessionId": sessionID,
			})
		}

		tableNumber := ""
		tableName := ""
		if bill.Table != nil {
			tableNumber = bill.Table.PublicToken()
			tableName = bill.Table.Name
		}

		orders = append(orders, gin.H{
			"billId":       bill.ID,
			"tableNumber":  tableNumber,
			"tableName":    tableName,
			"subtotal":     float64(bill.SubtotalCents) / 100,
			"tax":          float64(bill.TaxCents) / 100,
			"serviceFee":   float64(bill.ServiceFeeCents) / 100,
			"total":        float64(bill.TotalCents) / 100,
			"createdAt":    bill.CreatedAt,
			"updatedAt":    bill.UpdatedAt,
			"sessionCount": len(sessions),
			"sessions":     sessions,
			"allItems":     allItems,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":         orders,
		"totalOpenBills": len(orders),
	})
}

// -- Menu categories --

func (h *AdminHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(middleware.RestaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		payload = append(payload, menuCategoryJSON(category))
	}
	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", payload))
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), middleware.RestaurantID(c), req.Name, req.Position)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Category created successfully", menuCategoryJSON(*category)))
}

func (h *AdminHandler) GetCategory(c *gin.Context) {
	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	category, err := h.catalog.GetCategory(middleware.RestaurantID(c), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Category retrieved successfully", menuCategoryJSON(*category)))
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	category, err := h.catalog.UpdateCategory(c.Request.Context(), middleware.RestaurantID(c), categoryID, catalog.CategoryUpdate{
		Name:     req.Name,
		Position: req.Position,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Category updated successfully", menuCategoryJSON(*category)))
}

func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category ID"))
		return
	}

	if err := h.catalog.DeleteCategory(c.Request.Context(), middleware.RestaurantID(c), categoryID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// -- Menu items --

func (h *AdminHandler) ListItems(c *gin.Context) {
	items, err := h.catalog.Items(middleware.RestaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(items))
	for _, item := range items {
		payload = append(payload, menuItemJSON(item))
	}
	c.JSON(http.StatusOK, successResponse("Items retrieved successfully", payload))
}

func (h *AdminHandler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item, err := h.catalog.CreateItem(c.Request.Context(), middleware.RestaurantID(c), catalog.ItemInput{
		CategoryID:  req.Category,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		ImageURL:    req.ImageURL,
		Available:   available,
		Options:     req.Options,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Item created successfully", menuItemJSON(*item)))
}

func (h *AdminHandler) GetItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid item ID"))
		return
	}

	item, err := h.catalog.GetItem(middleware.RestaurantID(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item retrieved successfully", menuItemJSON(*item)))
}

func (h *AdminHandler) UpdateItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid item ID"))
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	item, err := h.catalog.UpdateItem(c.Request.Context(), middleware.RestaurantID(c), itemID, catalog.ItemUpdate{
		CategoryID:  req.Category,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		ImageURL:    req.ImageURL,
		Available:   req.Available,
		Options:     req.Options,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item updated successfully", menuItemJSON(*item)))
}

func (h *AdminHandler) DeleteItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid item ID"))
		return
	}

	if err := h.catalog.DeleteItem(c.Request.Context(), middleware.RestaurantID(c), itemID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// -- Tables --

func (h *AdminHandler) ListTables(c *gin.Context) {
	tables, err := h.catalog.Tables(middleware.RestaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(tables))
	for _, table := range tables {
		payload = append(payload, gin.H{
			"id":            table.ID,
			"restaurant_id": table.RestaurantSlug,
			"table_number":  table.TableNumber,
			"name":          table.Name,
			"table_token":   table.PublicToken(),
			"created_at":    table.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, successResponse("Tables retrieved successfully", payload))
}

func (h *AdminHandler) CreateTable(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Table name required"))
		return
	}

	table, token, err := h.catalog.CreateTable(middleware.RestaurantID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	// The plain token is returned only on creation.
	c.JSON(http.StatusCreated, successResponse("Table created successfully", gin.H{
		"id":            table.ID,
		"restaurant_id": table.RestaurantSlug,
		"table_number":  table.TableNumber,
		"name":          table.Name,
		"table_token":   token,
		"created_at":    table.CreatedAt,
	}))
}

// -- Settings --

func (h *AdminHandler) GetSettings(c *gin.Context) {
	restaurant, err := h.catalog.Settings(middleware.RestaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Settings retrieved successfully", settingsJSON(restaurant)))
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	restaurant, err := h.catalog.UpdateSettings(middleware.RestaurantID(c), catalog.SettingsUpdate{
		Name:           req.Name,
		Theme:          req.Theme,
		TaxRate:        req.TaxRate,
		ServiceFeeRate: req.ServiceFeeRate,
		TipPresets:     req.TipPresets,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Settings updated successfully", settingsJSON(restaurant)))
}
