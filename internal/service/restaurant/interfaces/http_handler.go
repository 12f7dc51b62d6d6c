// internal/service/restaurant/interfaces/http_handler.go
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/faults"
	"fooddash/internal/pkg/httpx"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/restaurant/application"
	"fooddash/internal/service/restaurant/domain"
)

// RestaurantHandler 封装了餐厅服务的 HTTP 处理器
type RestaurantHandler struct {
	catalog *application.CatalogService
	ledger  *application.Ledger
	faults  *faults.Settings
}

func NewRestaurantHandler(catalog *application.CatalogService, ledger *application.Ledger, f *faults.Settings) *RestaurantHandler {
	return &RestaurantHandler{catalog: catalog, ledger: ledger, faults: f}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *RestaurantHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("GET /menus", h.listMenus)
	mux.HandleFunc("POST /menus", h.createMenu)
	mux.HandleFunc("GET /menus/{id}", h.getMenu)
	mux.HandleFunc("PATCH /menus/{id}/price", h.updatePrice)

	mux.HandleFunc("GET /restaurants", h.listRestaurants)
	mux.HandleFunc("POST /restaurants", h.createRestaurant)
	mux.HandleFunc("GET /restaurants/{id}", h.getRestaurant)
	mux.HandleFunc("GET /restaurants/{id}/menus", h.listRestaurantMenus)

	mux.HandleFunc("PUT /inventory/{id}", h.decrement)
	mux.HandleFunc("PUT /inventory/{id}/restore", h.restore)

	mux.HandleFunc("GET /chaos", h.getChaos)
	mux.HandleFunc("POST /chaos/inventory_delay", h.setInventoryDelay)
	mux.HandleFunc("POST /chaos/inventory_error", h.setInventoryError)
}

// OrderID 只在归还时使用，用于去重
type inventoryUpdate struct {
	Quantity int   `json:"quantity"`
	OrderID  int64 `json:"order_id,omitempty"`
}

type inventoryResponse struct {
	MenuID    int64 `json:"menu_id"`
	Remaining int   `json:"remaining_inventory"`
}

type ledgerOp func(ctx context.Context, menuID int64, req inventoryUpdate) (int, error)

func (h *RestaurantHandler) decrement(w http.ResponseWriter, r *http.Request) {
	h.mutateInventory(w, r, func(ctx context.Context, menuID int64, req inventoryUpdate) (int, error) {
		return h.ledger.Decrement(ctx, menuID, req.Quantity)
	})
}

func (h *RestaurantHandler) restore(w http.ResponseWriter, r *http.Request) {
	h.mutateInventory(w, r, func(ctx context.Context, menuID int64, req inventoryUpdate) (int, error) {
		return h.ledger.Restore(ctx, req.OrderID, menuID, req.Quantity)
	})
}

func (h *RestaurantHandler) mutateInventory(w http.ResponseWriter, r *http.Request, op ledgerOp) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid menu id")
		return
	}
	var req inventoryUpdate
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	remaining, err := op(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, inventoryResponse{MenuID: id, Remaining: remaining})
}

func (h *RestaurantHandler) listMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.catalog.ListMenus(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, menus)
}

func (h *RestaurantHandler) getMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid menu id")
		return
	}
	menu, err := h.catalog.GetMenu(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, menu)
}

func (h *RestaurantHandler) createMenu(w http.ResponseWriter, r *http.Request) {
	var req application.CreateMenuRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	menu, err := h.catalog.CreateMenu(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, menu)
}

func (h *RestaurantHandler) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid menu id")
		return
	}
	var req struct {
		Price int64 `json:"price"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	menu, err := h.catalog.UpdateMenuPrice(r.Context(), id, req.Price)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, menu)
}

func (h *RestaurantHandler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.catalog.ListRestaurants(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, restaurants)
}

func (h *RestaurantHandler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid restaurant id")
		return
	}
	restaurant, err := h.catalog.GetRestaurant(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, restaurant)
}

func (h *RestaurantHandler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	var req application.CreateRestaurantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	restaurant, err := h.catalog.CreateRestaurant(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, restaurant)
}

func (h *RestaurantHandler) listRestaurantMenus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid restaurant id")
		return
	}
	menus, err := h.catalog.ListRestaurantMenus(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, menus)
}

func (h *RestaurantHandler) getChaos(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.faults.Snapshot())
}

func (h *RestaurantHandler) setInventoryDelay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DelayMs int `json:"delay_ms"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.faults.SetInventoryDelay(time.Duration(req.DelayMs) * time.Millisecond); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Ctx(r.Context()).Warn().Int("delay_ms", req.DelayMs).Msg("chaos: inventory delay updated")
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Inventory delay updated",
		"delay_ms": req.DelayMs,
	})
}

func (h *RestaurantHandler) setInventoryError(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ErrorPercent int `json:"error_percent"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.faults.SetInventoryErrorPercent(req.ErrorPercent); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Ctx(r.Context()).Warn().Int("error_percent", req.ErrorPercent).Msg("chaos: inventory error rate updated")
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Inventory error rate updated",
		"error_percent": req.ErrorPercent,
	})
}

// writeDomainError 根据错误类型返回不同的 HTTP 状态码
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrMenuNotFound),
		errors.Is(err, domain.ErrRestaurantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, application.ErrInvalidMenu):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDownstreamUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusGatewayTimeout
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		status = http.StatusInternalServerError
	}
	httpx.WriteError(w, status, err.Error())
}
