package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bistro/server/internal/services"
)

// MenuController serves the catalog under /api/v1/menu.
type MenuController struct {
	menuService *services.MenuService
}

func NewMenuController(menuService *services.MenuService) *MenuController {
	return &MenuController{menuService: menuService}
}

// GET /api/v1/menu/categories
func (mc *MenuController) ListCategories(c *gin.Context) {
	cats, err := mc.menuService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cats, "count": len(cats)})
}

// POST /api/v1/menu/categories
func (mc *MenuController) CreateCategory(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		DisplayOrder int    `json:"display_order"`
	}
	if !bindJSON(c, &req) {
		return
	}
	cat, err := mc.menuService.CreateCategory(c.Request.Context(), req.Name, req.DisplayOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// GET /api/v1/menu/items?category_id=&available=true
func (mc *MenuController) ListItems(c *gin.Context) {
	items, err := mc.menuService.ListItems(c.Request.Context(), services.MenuFilter{
		CategoryID:    c.Query("category_id"),
		AvailableOnly: queryBool(c, "available"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// Available returns the cached snapshot of orderable items.
// GET /api/v1/menu/available
func (mc *MenuController) Available(c *gin.Context) {
	items := mc.menuService.Available()
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"count":       len(items),
		"last_update": mc.menuService.LastUpdate(),
	})
}

// POST /api/v1/menu/items
func (mc *MenuController) CreateItem(c *gin.Context) {
	var in services.MenuItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := mc.menuService.CreateItem(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GET /api/v1/menu/items/:id
func (mc *MenuController) GetItem(c *gin.Context) {
	item, err := mc.menuService.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateItem replaces fields and recipe.
// PUT /api/v1/menu/items/:id
func (mc *MenuController) UpdateItem(c *gin.Context) {
	var in services.MenuItemInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := mc.menuService.UpdateItem(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DELETE /api/v1/menu/items/:id
func (mc *MenuController) DeleteItem(c *gin.Context) {
	if err := mc.menuService.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PATCH /api/v1/menu/items/:id/availability
func (mc *MenuController) SetAvailability(c *gin.Context) {
	var req struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	item, err := mc.menuService.SetAvailability(c.Request.Context(), c.Param("id"), *req.IsAvailable)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GET /api/v1/menu/items/:id/cost
func (mc *MenuController) ItemCost(c *gin.Context) {
	report, err := mc.menuService.ItemCost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/v1/menu/recompute-costs
func (mc *MenuController) RecomputeCosts(c *gin.Context) {
	n, err := mc.menuService.RecomputeCosts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
