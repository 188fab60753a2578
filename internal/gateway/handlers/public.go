package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tably-system/internal/auth"
	"tably-system/internal/billing"
	"tably-system/internal/catalog"
	"tably-system/internal/database/models"
)

type PublicHandler struct {
	db      *gorm.DB
	billing *billing.Service
	catalog *catalog.Service
}

func NewPublicHandler(db *gorm.DB, billingService *billing.Service, catalogService *catalog.Service) *PublicHandler {
	return &PublicHandler{
		db:      db,
		billing: billingService,
		catalog: catalogService,
	}
}

// Request structs
type AddBillItemRequest struct {
	ItemID    int64          `json:"itemId" binding:"required"`
	Qty       int32          `json:"qty"`
	Options   models.JSONMap `json:"options"`
	SessionID string         `json:"sessionId"`
}

type PaymentIntentRequest struct {
	Mode      string `json:"mode"`
	Seats     int    `json:"seats"`
	Tip       int64  `json:"tip"`
	SessionID string `json:"sessionId"`
}

type ReceiptEmailRequest struct {
	Email  string `json:"email" binding:"required"`
	BillID int64  `json:"billId" binding:"required"`
}

// GET /api/public/table-context/:token
func (h *PublicHandler) TableContext(c *gin.Context) {
	restaurant, table, err := auth.ResolveTableToken(h.db, c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Invalid table token"))
		return
	}

	taxRate, _ := decimal.NewFromString(restaurant.TaxRate)
	feeRate, _ := decimal.NewFromString(restaurant.ServiceFeeRate)
	taxFloat, _ := taxRate.Float64()
	feeFloat, _ := feeRate.Float64()

	c.JSON(http.StatusOK, gin.H{
		"restaurantId":   restaurant.ID,
		"tableId":        table.ID,
		"theme":          restaurant.Theme,
		"taxRate":        taxFloat,
		"serviceFeeRate": feeFloat,
		"tipPresets":     restaurant.TipPresets,
	})
}

// GET /api/public/menu/:token
func (h *PublicHandler) Menu(c *gin.Context) {
	restaurant, _, err := auth.ResolveTableToken(h.db, c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Invalid table token"))
		return
	}

	categories, err := h.catalog.Menu(c.Request.Context(), restaurant.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	payload := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		payload = append(payload, menuCategoryJSON(category))
	}

	c.JSON(http.StatusOK, successResponse("Menu retrieved successfully", payload))
}

// GET /api/public/tables/:tableID/bill
func (h *PublicHandler) GetBill(c *gin.Context) {
	tableID, err := strconv.ParseInt(c.Param("tableID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid table ID"))
		return
	}

	bill, err := h.billing.GetOrOpenBill(tableID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Bill retrieved successfully", billJSON(bill)))
}

// POST /api/public/tables/:tableID/bill/items
func (h *PublicHandler) AddBillItem(c *gin.Context) {
	tableID, err := strconv.ParseInt(c.Param("tableID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid table ID"))
		return
	}

	var req AddBillItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if req.Qty == 0 {
		req.Qty = 1
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.GetHeader("X-Session-Id")
	}

	bill, err := h.billing.AddItem(tableID, req.ItemID, req.Qty, req.Options, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Item added to bill successfully", billJSON(bill)))
}

// DELETE /api/public/tables/:tableID/bill/items/:lineID
func (h *PublicHandler) RemoveBillItem(c *gin.Context) {
	tableID, err := strconv.ParseInt(c.Param("tableID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid table ID"))
		return
	}

	lineID, err := strconv.ParseInt(c.Param("lineID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid line ID"))
		return
	}

	bill, err := h.billing.RemoveItem(tableID, lineID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item removed from bill successfully", billJSON(bill)))
}

// POST /api/public/tables/:tableID/payment/intent
func (h *PublicHandler) PaymentIntent(c *gin.Context) {
	tableID, err := strconv.ParseInt(c.Param("tableID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid table ID"))
		return
	}

	var req PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if req.Mode == "" {
		req.Mode = "full"
	}
	if req.Seats == 0 {
		req.Seats = 1
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.GetHeader("X-Session-Id")
	}

	mode, err := billing.ParseSplitMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.billing.CreatePaymentIntent(tableID, billing.SplitRequest{
		Mode:      mode,
		Seats:     req.Seats,
		TipCents:  req.Tip,
		SessionID: sessionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"paymentId":   result.Payment.ID,
		"status":      result.Payment.Status,
		"amountCents": result.Payment.AmountCents,
		"providerRef": result.Payment.ProviderRef,
		"billClosed":  result.BillClosed,
	})
}

// POST /api/public/receipt/email
// Stub: acknowledges the request without sending anything. A real mailer
// integration slots in here.
func (h *PublicHandler) ReceiptEmail(c *gin.Context) {
	var req ReceiptEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Email and billId required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Receipt sent successfully",
		"email":   req.Email,
	})
}
