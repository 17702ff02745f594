package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bistro/server/internal/models"
	"bistro/server/internal/services"
)

// OrderController serves /api/v1/orders.
type OrderController struct {
	orderService *services.OrderService
}

func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

type orderRequest struct {
	Items []services.CartLine `json:"items"`
	services.OrderDetails
}

// CreateOrder places an order and deducts kitchen stock. Deductions that
// hit zero are listed under "clamped".
// POST /api/v1/orders
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req orderRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := oc.orderService.Create(c.Request.Context(), req.Items, req.OrderDetails)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order":      res.Order,
		"movements":  res.Movements,
		"clamped":    res.Clamped(),
		"unresolved": res.Unresolved,
	})
}

// UpdateOrder replaces the items of a pending order. Stock is not adjusted.
// PUT /api/v1/orders/:id
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	var req orderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.orderService.Update(c.Request.Context(), c.Param("id"), req.Items, req.OrderDetails)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /api/v1/orders/:id/settle
func (oc *OrderController) SettleOrder(c *gin.Context) {
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	order, err := oc.orderService.Settle(c.Request.Context(), c.Param("id"), req.PaymentMethod)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /api/v1/orders/:id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	res, err := oc.orderService.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":      res.Order,
		"movements":  res.Movements,
		"unresolved": res.Unresolved,
	})
}

// GET /api/v1/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.orderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /api/v1/orders/number/:number
func (oc *OrderController) GetOrderByNumber(c *gin.Context) {
	order, err := oc.orderService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /api/v1/orders?status=&order_type=&table_id=&waiter_id=&from=&to=&limit=&offset=
func (oc *OrderController) ListOrders(c *gin.Context) {
	from, err := queryTime(c, "from")
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		respondError(c, err)
		return
	}
	f := services.OrderFilter{
		Status:    models.OrderStatus(c.Query("status")),
		OrderType: models.OrderType(c.Query("order_type")),
		TableID:   c.Query("table_id"),
		WaiterID:  c.Query("waiter_id"),
		From:      from,
		To:        to,
		Limit:     queryInt(c, "limit", 50),
		Offset:    queryInt(c, "offset", 0),
	}
	orders, total, err := oc.orderService.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orders, "count": len(orders), "total": total})
}
