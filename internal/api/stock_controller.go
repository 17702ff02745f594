package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bistro/server/internal/services"
)

// StockController serves the ingredient ledger under /api/v1/inventory.
type StockController struct {
	stockService *services.StockService
}

func NewStockController(stockService *services.StockService) *StockController {
	return &StockController{stockService: stockService}
}

// ListIngredients
// GET /api/v1/inventory/ingredients?category_id=&search=&low_stock=true
func (sc *StockController) ListIngredients(c *gin.Context) {
	items, err := sc.stockService.ListIngredients(c.Request.Context(), services.IngredientFilter{
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		LowStock:   queryBool(c, "low_stock"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// POST /api/v1/inventory/ingredients
func (sc *StockController) CreateIngredient(c *gin.Context) {
	var in services.IngredientInput
	if !bindJSON(c, &in) {
		return
	}
	ing, err := sc.stockService.CreateIngredient(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ing)
}

// GET /api/v1/inventory/ingredients/:id
func (sc *StockController) GetIngredient(c *gin.Context) {
	ing, err := sc.stockService.GetIngredient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// UpdateIngredient edits name, unit, threshold and category. Stock levels
// are only changed through the ledger endpoints.
// PUT /api/v1/inventory/ingredients/:id
func (sc *StockController) UpdateIngredient(c *gin.Context) {
	var in services.IngredientInput
	if !bindJSON(c, &in) {
		return
	}
	ing, err := sc.stockService.UpdateIngredient(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// DELETE /api/v1/inventory/ingredients/:id
func (sc *StockController) DeleteIngredient(c *gin.Context) {
	if err := sc.stockService.DeleteIngredient(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/inventory/categories
func (sc *StockController) ListCategories(c *gin.Context) {
	cats, err := sc.stockService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cats, "count": len(cats)})
}

// POST /api/v1/inventory/categories
func (sc *StockController) CreateCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	cat, err := sc.stockService.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// POST /api/v1/inventory/purchases
func (sc *StockController) AddPurchase(c *gin.Context) {
	var in services.PurchaseInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := sc.stockService.AddPurchase(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	ing, err := sc.stockService.GetIngredient(c.Request.Context(), in.IngredientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"purchase": p, "ingredient": ing})
}

// POST /api/v1/inventory/transfer
func (sc *StockController) Transfer(c *gin.Context) {
	var in services.TransferInput
	if !bindJSON(c, &in) {
		return
	}
	tr, err := sc.stockService.Transfer(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tr)
}

// POST /api/v1/inventory/remove
func (sc *StockController) Remove(c *gin.Context) {
	var in services.RemovalInput
	if !bindJSON(c, &in) {
		return
	}
	r, err := sc.stockService.Remove(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// POST /api/v1/inventory/sell
func (sc *StockController) Sell(c *gin.Context) {
	var in services.SaleInput
	if !bindJSON(c, &in) {
		return
	}
	s, err := sc.stockService.Sell(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func historyFilter(c *gin.Context) (services.HistoryFilter, bool) {
	from, err := queryTime(c, "from")
	if err != nil {
		respondError(c, err)
		return services.HistoryFilter{}, false
	}
	to, err := queryTime(c, "to")
	if err != nil {
		respondError(c, err)
		return services.HistoryFilter{}, false
	}
	return services.HistoryFilter{
		IngredientID: c.Query("ingredient_id"),
		From:         from,
		To:           to,
		Limit:        queryInt(c, "limit", 0),
	}, true
}

// History returns one of the ledger histories selected by kind.
// GET /api/v1/inventory/{purchases|transfers|removals|sales|movements}?ingredient_id=&from=&to=&limit=
func (sc *StockController) History(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, ok := historyFilter(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var (
			items interface{}
			count int
			err   error
		)
		switch kind {
		case "purchases":
			list, e := sc.stockService.ListPurchases(ctx, f)
			items, count, err = list, len(list), e
		case "transfers":
			list, e := sc.stockService.ListTransfers(ctx, f)
			items, count, err = list, len(list), e
		case "removals":
			list, e := sc.stockService.ListRemovals(ctx, f)
			items, count, err = list, len(list), e
		case "sales":
			list, e := sc.stockService.ListSales(ctx, f)
			items, count, err = list, len(list), e
		default:
			list, e := sc.stockService.ListMovements(ctx, c.Query("order_id"), f)
			items, count, err = list, len(list), e
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "count": count})
	}
}
