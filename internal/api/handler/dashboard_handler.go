package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/polyboard/internal/domain"
	"github.com/evetabi/polyboard/internal/service"
)

// DashboardHandler serves the market dashboard page and the manual
// order-placement endpoint.
type DashboardHandler struct {
	svc *service.DashboardService
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Index godoc
// GET /
// Renders the dashboard for the configured event. Build failures surface as
// an error banner inside the page, never as a 5xx.
func (h *DashboardHandler) Index(c *gin.Context) {
	page := h.svc.BuildPage(c.Request.Context())
	c.HTML(http.StatusOK, "index.html", page)
}

// ExecuteTrade godoc
// POST /execute_trade
// Body: {"price":0.45,"size":10,"side":"BUY","token_id":"1234..."}
func (h *DashboardHandler) ExecuteTrade(c *gin.Context) {
	var body struct {
		Price   float64 `json:"price"`
		Size    float64 `json:"size"`
		Side    string  `json:"side"`
		TokenID string  `json:"token_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	side := domain.Side(body.Side)
	if !side.IsValid() {
		respondError(c, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	if body.Price <= 0 || body.Size <= 0 {
		respondError(c, http.StatusBadRequest, "price and size must be positive")
		return
	}
	if body.TokenID == "" {
		respondError(c, http.StatusBadRequest, "token_id is required")
		return
	}

	resp, err := h.svc.PlaceOrder(c.Request.Context(), body.Price, body.Size, side, body.TokenID)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, resp)
}
