package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bistro/server/internal/metrics"
	"bistro/server/internal/services"
)

// Services bundles what the router needs. Metrics and Hub may be nil.
type Services struct {
	DB      *gorm.DB
	Stock   *services.StockService
	Menu    *services.MenuService
	Tables  *services.TableService
	Orders  *services.OrderService
	Reports *services.ReportService
	Hub     *Hub
	Metrics *metrics.Metrics
}

// SetupRouter builds the gin engine with every route.
func SetupRouter(s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", healthHandler(s.DB))
	r.GET("/api/v1/health", healthHandler(s.DB))

	r.Use(requestLogger())
	// POS terminals and back-office screens are served from other origins
	// on the restaurant network.
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))
	if s.Metrics != nil {
		r.Use(s.Metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
	if s.Hub != nil {
		r.GET("/ws/ledger", ServeLedgerWS(s.Hub))
	}

	v1 := r.Group("/api/v1")

	stock := NewStockController(s.Stock)
	inventory := v1.Group("/inventory")
	{
		inventory.GET("/ingredients", stock.ListIngredients)
		inventory.POST("/ingredients", stock.CreateIngredient)
		inventory.GET("/ingredients/:id", stock.GetIngredient)
		inventory.PUT("/ingredients/:id", stock.UpdateIngredient)
		inventory.DELETE("/ingredients/:id", stock.DeleteIngredient)
		inventory.GET("/categories", stock.ListCategories)
		inventory.POST("/categories", stock.CreateCategory)

		inventory.POST("/purchases", stock.AddPurchase)
		inventory.POST("/transfer", stock.Transfer)
		inventory.POST("/remove", stock.Remove)
		inventory.POST("/sell", stock.Sell)

		inventory.GET("/purchases", stock.History("purchases"))
		inventory.GET("/transfers", stock.History("transfers"))
		inventory.GET("/removals", stock.History("removals"))
		inventory.GET("/sales", stock.History("sales"))
		inventory.GET("/movements", stock.History("movements"))
	}

	menuCtl := NewMenuController(s.Menu)
	menu := v1.Group("/menu")
	{
		menu.GET("/categories", menuCtl.ListCategories)
		menu.POST("/categories", menuCtl.CreateCategory)
		menu.GET("/available", menuCtl.Available)
		menu.GET("/items", menuCtl.ListItems)
		menu.POST("/items", menuCtl.CreateItem)
		menu.GET("/items/:id", menuCtl.GetItem)
		menu.PUT("/items/:id", menuCtl.UpdateItem)
		menu.DELETE("/items/:id", menuCtl.DeleteItem)
		menu.PATCH("/items/:id/availability", menuCtl.SetAvailability)
		menu.GET("/items/:id/cost", menuCtl.ItemCost)
		menu.POST("/recompute-costs", menuCtl.RecomputeCosts)
	}

	tables := NewTableController(s.Tables)
	v1.GET("/tables", tables.ListTables)
	v1.POST("/tables", tables.CreateTable)
	v1.GET("/tables/:id", tables.GetTable)
	v1.PUT("/tables/:id/waiter", tables.AssignWaiter)
	v1.GET("/waiters", tables.ListWaiters)
	v1.POST("/waiters", tables.CreateWaiter)
	v1.GET("/waiters/:id", tables.GetWaiter)
	v1.PATCH("/waiters/:id/active", tables.SetWaiterActive)

	orders := NewOrderController(s.Orders)
	orderGroup := v1.Group("/orders")
	{
		orderGroup.POST("", orders.CreateOrder)
		orderGroup.GET("", orders.ListOrders)
		orderGroup.GET("/number/:number", orders.GetOrderByNumber)
		orderGroup.GET("/:id", orders.GetOrder)
		orderGroup.PUT("/:id", orders.UpdateOrder)
		orderGroup.POST("/:id/settle", orders.SettleOrder)
		orderGroup.POST("/:id/cancel", orders.CancelOrder)
	}

	if s.Reports != nil {
		reports := NewReportController(s.Reports)
		reportGroup := v1.Group("/reports")
		{
			reportGroup.GET("/daily", reports.DailySales)
			reportGroup.GET("/menu-profitability", reports.MenuProfitability)
			reportGroup.GET("/low-stock", reports.LowStock)
		}
	}

	return r
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if db == nil {
			status, dbStatus = http.StatusServiceUnavailable, "not configured"
		} else if sqlDB, err := db.DB(); err != nil {
			status, dbStatus = http.StatusServiceUnavailable, err.Error()
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			status, dbStatus = http.StatusServiceUnavailable, err.Error()
		}
		c.JSON(status, gin.H{
			"status":   http.StatusText(status),
			"service":  "bistro-ledger",
			"database": dbStatus,
		})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("🌐 %s %s - Status: %d - Latency: %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
