package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bistro/server/internal/models"
	"bistro/server/internal/services"
)

// TableController serves /api/v1/tables and /api/v1/waiters. Occupancy is
// read-only here; it follows the orders.
type TableController struct {
	tableService *services.TableService
}

func NewTableController(tableService *services.TableService) *TableController {
	return &TableController{tableService: tableService}
}

// GET /api/v1/tables?status=available|occupied
func (tc *TableController) ListTables(c *gin.Context) {
	tables, err := tc.tableService.ListTables(c.Request.Context(), models.TableStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": tables, "count": len(tables)})
}

// POST /api/v1/tables
func (tc *TableController) CreateTable(c *gin.Context) {
	var in services.TableInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := tc.tableService.CreateTable(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GET /api/v1/tables/:id
func (tc *TableController) GetTable(c *gin.Context) {
	t, err := tc.tableService.GetTable(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// AssignWaiter sets the table's waiter; a null waiter_id clears it.
// PUT /api/v1/tables/:id/waiter
func (tc *TableController) AssignWaiter(c *gin.Context) {
	var req struct {
		WaiterID *string `json:"waiter_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	t, err := tc.tableService.AssignWaiter(c.Request.Context(), c.Param("id"), req.WaiterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// GET /api/v1/waiters?active=true
func (tc *TableController) ListWaiters(c *gin.Context) {
	waiters, err := tc.tableService.ListWaiters(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": waiters, "count": len(waiters)})
}

// POST /api/v1/waiters
func (tc *TableController) CreateWaiter(c *gin.Context) {
	var in services.WaiterInput
	if !bindJSON(c, &in) {
		return
	}
	w, err := tc.tableService.CreateWaiter(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// GET /api/v1/waiters/:id
func (tc *TableController) GetWaiter(c *gin.Context) {
	w, err := tc.tableService.GetWaiter(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// PATCH /api/v1/waiters/:id/active
func (tc *TableController) SetWaiterActive(c *gin.Context) {
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	w, err := tc.tableService.SetWaiterActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
