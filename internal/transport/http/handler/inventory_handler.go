package handler

import (
	"github.com/gin-gonic/gin"

	"freshtrack/internal/domain"
	"freshtrack/internal/feature/inventory"
	"freshtrack/internal/guard"
	"freshtrack/internal/transport/http/ez"
	mdw "freshtrack/internal/transport/http/middleware"
)

type page[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

// InventoryHandler 实现 router.APIModule，挂在已登录分组下
type InventoryHandler struct {
	svc *inventory.Service
}

func NewInventoryHandler(svc *inventory.Service) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) Priority() int { return 50 }

func need(res domain.Resource, act domain.Action) *guard.Guard {
	return guard.New(guard.RequirePermission(res, act), guard.Options{ShowLogin: true})
}

func (h *InventoryHandler) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g)

	ez.RegisterAction(e, ez.Action[struct{}, inventory.DashboardStats]{
		Method: "GET",
		Path:   "/dashboard",
		Binder: ez.BindNone,
		Guard:  need(domain.ResourceDashboard, domain.ActionView),
		Handler: func(c *gin.Context, _ *struct{}) (inventory.DashboardStats, error) {
			st, err := h.svc.Dashboard(c.Request.Context())
			if err != nil {
				return inventory.DashboardStats{}, inventoryErr(err)
			}
			return st, nil
		},
	})

	type listQ struct {
		Q        string `form:"q"`
		Category string `form:"category"`
		LowStock bool   `form:"low_stock"`
		Offset   int    `form:"offset,default=0"`
		Limit    int    `form:"limit,default=20"`
	}
	ez.RegisterAction(e, ez.Action[listQ, page[inventory.Product]]{
		Method: "GET",
		Path:   "/products",
		Binder: ez.BindQuery,
		Guard:  need(domain.ResourceInventory, domain.ActionView),
		Handler: func(c *gin.Context, in *listQ) (page[inventory.Product], error) {
			items, total, err := h.svc.ListProducts(c.Request.Context(), inventory.ProductFilter{
				Q: in.Q, Category: in.Category, LowStockOnly: in.LowStock,
				Offset: in.Offset, Limit: in.Limit,
			})
			if err != nil {
				return page[inventory.Product]{}, inventoryErr(err)
			}
			return page[inventory.Product]{Total: total, Items: items}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[inventory.CreateProductInput, inventory.Product]{
		Method: "POST",
		Path:   "/products",
		Binder: ez.BindJSON,
		Guard:  need(domain.ResourceInventory, domain.ActionCreate),
		Handler: func(c *gin.Context, in *inventory.CreateProductInput) (inventory.Product, error) {
			p, err := h.svc.CreateProduct(c.Request.Context(), *in)
			if err != nil {
				return inventory.Product{}, inventoryErr(err)
			}
			return p, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, inventory.Product]{
		Method: "GET",
		Path:   "/products/barcode/:code",
		Binder: ez.BindNone,
		Guard:  need(domain.ResourceScanner, domain.ActionView),
		Handler: func(c *gin.Context, _ *struct{}) (inventory.Product, error) {
			p, err := h.svc.Scan(c.Request.Context(), c.Param("code"))
			if err != nil {
				return inventory.Product{}, inventoryErr(err)
			}
			return p, nil
		},
	})

	type movementQ struct {
		ProductID string `form:"product_id"`
		Type      string `form:"type"`
		Offset    int    `form:"offset,default=0"`
		Limit     int    `form:"limit,default=20"`
	}
	ez.RegisterAction(e, ez.Action[movementQ, page[inventory.StockMovement]]{
		Method: "GET",
		Path:   "/movements",
		Binder: ez.BindQuery,
		Guard:  need(domain.ResourceMovements, domain.ActionView),
		Handler: func(c *gin.Context, in *movementQ) (page[inventory.StockMovement], error) {
			items, total, err := h.svc.ListMovements(c.Request.Context(), inventory.MovementFilter{
				ProductID: in.ProductID, Type: inventory.MovementType(in.Type),
				Offset: in.Offset, Limit: in.Limit,
			})
			if err != nil {
				return page[inventory.StockMovement]{}, inventoryErr(err)
			}
			return page[inventory.StockMovement]{Total: total, Items: items}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[inventory.MovementInput, inventory.StockMovement]{
		Method: "POST",
		Path:   "/movements",
		Binder: ez.BindJSON,
		Guard:  need(domain.ResourceMovements, domain.ActionCreate),
		Handler: func(c *gin.Context, in *inventory.MovementInput) (inventory.StockMovement, error) {
			u := mdw.SessionFrom(c).CurrentUser()
			if u == nil {
				return inventory.StockMovement{}, ez.Unauthorized("Anmeldung erforderlich")
			}
			m, err := h.svc.RecordMovement(c.Request.Context(), u.ID, *in)
			if err != nil {
				return inventory.StockMovement{}, inventoryErr(err)
			}
			return m, nil
		},
	})
}
