package router

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aruizmx/comandero/cash"
	"github.com/aruizmx/comandero/catalog"
	"github.com/aruizmx/comandero/floor"
	"github.com/aruizmx/comandero/hub"
	"github.com/aruizmx/comandero/kitchen"
	"github.com/aruizmx/comandero/models"
	"github.com/aruizmx/comandero/reports"
	"github.com/aruizmx/comandero/store"
	"github.com/aruizmx/comandero/utils"
)

// AssetLoader serves uploaded binaries. The gorm remote service implements it.
type AssetLoader interface {
	Asset(ctx context.Context, id string) (*models.Asset, error)
}

type Deps struct {
	Hub     *hub.Hub
	Floor   *floor.Controller
	Cash    *cash.Register
	Catalog *catalog.Manager
	Kitchen *kitchen.Scheduler
	Reports *reports.Engine
	Assets  AssetLoader

	Tables       *store.Store[models.Table]
	Zones        *store.Store[models.Zone]
	Sessions     *store.Store[models.TableSession]
	Orders       *store.Store[models.Order]
	OrderItems   *store.Store[models.OrderItem]
	Products     *store.Store[models.Product]
	Categories   *store.Store[models.Category]
	Shifts       *store.Store[models.CashShift]
	Transactions *store.Store[models.CashTransaction]
}

var timeNow = time.Now

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Setup builds the gateway: snapshot reads, lifecycle commands and the
// websocket upgrade. The stores are the only data source; no handler queries
// the remote service for reads.
func Setup(d Deps) *gin.Engine {
	r := gin.Default()

	// Snapshots
	r.GET("/tables", snapshot(d.Tables, "List of tables"))
	r.GET("/zones", snapshot(d.Zones, "List of zones"))
	r.GET("/sessions", snapshot(d.Sessions, "List of sessions"))
	r.GET("/orders", snapshot(d.Orders, "List of orders"))
	r.GET("/order-items", snapshot(d.OrderItems, "List of order items"))
	r.GET("/products", snapshot(d.Products, "List of products"))
	r.GET("/categories", snapshot(d.Categories, "List of categories"))
	r.GET("/cash/shifts", snapshot(d.Shifts, "List of shifts"))
	r.GET("/cash/transactions", snapshot(d.Transactions, "List of transactions"))

	r.GET("/zones/stats", func(c *gin.Context) {
		stats := floor.ZoneStats(d.Zones.Snapshot(), d.Tables.Snapshot())
		utils.RespondJSON(c, http.StatusOK, "Zone stats", stats)
	})

	// Tables and zones
	r.POST("/tables", func(c *gin.Context) {
		var table models.Table
		if err := c.ShouldBindJSON(&table); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		created, err := d.Floor.CreateTable(c.Request.Context(), table)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Table created", created)
	})

	r.PATCH("/tables/:table_id", func(c *gin.Context) {
		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		if err := d.Floor.UpdateTable(c.Request.Context(), c.Param("table_id"), patch); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Table updated", nil)
	})

	r.DELETE("/tables/:table_id", func(c *gin.Context) {
		if err := d.Floor.DeleteTable(c.Request.Context(), c.Param("table_id")); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": c.Param("table_id")})
	})

	r.POST("/tables/:table_id/occupy", func(c *gin.Context) {
		var body struct {
			PartySize int    `json:"party_size"`
			WaiterID  string `json:"waiter_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		session, err := d.Floor.Occupy(c.Request.Context(), c.Param("table_id"), body.PartySize, body.WaiterID)
		if err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Table occupied", session)
	})

	r.POST("/tables/:table_id/free", func(c *gin.Context) {
		var body struct {
			SessionID string `json:"session_id"`
		}
		_ = c.ShouldBindJSON(&body) // body optional
		if err := d.Floor.Free(c.Request.Context(), c.Param("table_id"), body.SessionID); err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Table freed", nil)
	})

	r.PATCH("/tables/:table_id/status", func(c *gin.Context) {
		var body struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		if err := d.Floor.ChangeStatus(c.Request.Context(), c.Param("table_id"), body.Status); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Table status updated", nil)
	})

	r.POST("/zones", func(c *gin.Context) {
		var zone models.Zone
		if err := c.ShouldBindJSON(&zone); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		created, err := d.Floor.CreateZone(c.Request.Context(), zone)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Zone created", created)
	})

	r.PATCH("/zones/:zone_id", func(c *gin.Context) {
		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		if err := d.Floor.UpdateZone(c.Request.Context(), c.Param("zone_id"), patch); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Zone updated", nil)
	})

	r.DELETE("/zones/:zone_id", func(c *gin.Context) {
		if err := d.Floor.DeleteZone(c.Request.Context(), c.Param("zone_id")); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Zone deleted", gin.H{"id": c.Param("zone_id")})
	})

	// Kitchen
	r.GET("/kitchen/board", func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusOK, "Kitchen board", d.Kitchen.Board())
	})

	r.POST("/kitchen/station", func(c *gin.Context) {
		var body struct {
			StationID string `json:"station_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		d.Kitchen.SetStation(body.StationID)
		utils.RespondJSON(c, http.StatusOK, "Station selected", d.Kitchen.Board())
	})

	r.POST("/kitchen/items/:item_id/toggle", func(c *gin.Context) {
		if err := d.Kitchen.ToggleItem(c.Request.Context(), c.Param("item_id")); err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Item toggled", nil)
	})

	r.POST("/kitchen/orders/:order_id/ready", func(c *gin.Context) {
		if err := d.Kitchen.MarkStationReady(c.Request.Context(), c.Param("order_id")); err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Station items marked ready", nil)
	})

	// Cash register
	r.GET("/cash/shift", func(c *gin.Context) {
		shift, ok := d.Cash.CurrentShift()
		if !ok {
			utils.RespondJSON(c, http.StatusOK, "No open shift", nil)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Current shift", shift)
	})

	r.POST("/cash/shifts", func(c *gin.Context) {
		var body struct {
			BaseAmount float64 `json:"base_amount"`
			UserID     string  `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		shift, err := d.Cash.OpenShift(c.Request.Context(), body.BaseAmount, body.UserID)
		if err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Shift opened", shift)
	})

	r.POST("/cash/shifts/:shift_id/close", func(c *gin.Context) {
		var body struct {
			Expected float64 `json:"expected"`
			Real     float64 `json:"real"`
			Notes    string  `json:"notes"`
			ClosedBy string  `json:"closed_by"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		shift, err := d.Cash.CloseShift(c.Request.Context(), c.Param("shift_id"),
			body.Expected, body.Real, body.Notes, body.ClosedBy)
		if err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Shift closed", shift)
	})

	r.POST("/cash/shifts/:shift_id/transactions", func(c *gin.Context) {
		var body struct {
			Type        string  `json:"type" binding:"required"`
			Amount      float64 `json:"amount" binding:"required"`
			Description string  `json:"description"`
			UserID      string  `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		tx, err := d.Cash.AddTransaction(c.Request.Context(), c.Param("shift_id"),
			body.Type, body.Amount, body.Description, body.UserID)
		if err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Transaction added", tx)
	})

	r.GET("/cash/shifts/:shift_id/summary", func(c *gin.Context) {
		summary, err := d.Reports.Shift(c.Param("shift_id"))
		if err != nil {
			utils.RespondError(c, statusOf(err), err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Shift summary", summary)
	})

	// Reports
	r.GET("/reports/monthly", func(c *gin.Context) {
		w := reports.MonthWindow(timeNow())
		utils.RespondJSON(c, http.StatusOK, "Monthly report", d.Reports.Monthly(w))
	})

	// Catalog
	r.POST("/products", func(c *gin.Context) {
		var p models.Product
		if err := c.ShouldBindJSON(&p); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		created, err := d.Catalog.CreateProduct(c.Request.Context(), p)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Product created", created)
	})

	r.PATCH("/products/:product_id", func(c *gin.Context) {
		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		if err := d.Catalog.UpdateProduct(c.Request.Context(), c.Param("product_id"), patch); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Product updated", nil)
	})

	r.DELETE("/products/:product_id", func(c *gin.Context) {
		if err := d.Catalog.DeleteProduct(c.Request.Context(), c.Param("product_id")); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Product deleted", gin.H{"id": c.Param("product_id")})
	})

	r.POST("/products/image", func(c *gin.Context) {
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		url, err := d.Catalog.UploadImage(c.Request.Context(), header.Filename, data)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Image uploaded", gin.H{"url": url})
	})

	r.POST("/categories", func(c *gin.Context) {
		var cat models.Category
		if err := c.ShouldBindJSON(&cat); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		created, err := d.Catalog.CreateCategory(c.Request.Context(), cat)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusCreated, "Category created", created)
	})

	r.PATCH("/categories/:category_id", func(c *gin.Context) {
		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		if err := d.Catalog.UpdateCategory(c.Request.Context(), c.Param("category_id"), patch); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Category updated", nil)
	})

	r.DELETE("/categories/:category_id", func(c *gin.Context) {
		if err := d.Catalog.DeleteCategory(c.Request.Context(), c.Param("category_id")); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Category deleted", gin.H{"id": c.Param("category_id")})
	})

	// Assets
	r.GET("/assets/:asset_id", func(c *gin.Context) {
		if d.Assets == nil {
			c.Status(http.StatusNotFound)
			return
		}
		asset, err := d.Assets.Asset(c.Request.Context(), c.Param("asset_id"))
		if err != nil {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", asset.Data)
	})

	// Websocket feed
	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			utils.ErrorLogger.Printf("ws upgrade: %v", err)
			return
		}
		role := c.Query("role")
		if role == "" {
			role = "staff"
		}
		d.Hub.Register(conn, role)
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					d.Hub.Unregister(conn)
					return
				}
			}
		}()
	})

	return r
}

func snapshot[T store.Entity](s *store.Store[T], message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusOK, message, s.Snapshot())
	}
}

func statusOf(err error) int {
	if utils.IsValidation(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
