// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/httpx"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/order/application"
	"fooddash/internal/service/order/domain"
)

// StatusStream 把一个已鉴权用户的连接升级为状态推送流
type StatusStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64)
}

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
	stream  StatusStream
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例，stream 可以为 nil。
func NewOrderHandler(service *application.OrderApplicationService, stream StatusStream) *OrderHandler {
	return &OrderHandler{service: service, stream: stream}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("PATCH /orders/{id}/status", h.advanceStatus)

	mux.HandleFunc("GET /chaos", h.getChaos)
	mux.HandleFunc("POST /chaos/payment_fail", h.setPaymentFail)

	if h.stream != nil {
		mux.HandleFunc("GET /ws", h.subscribe)
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Token = bearerToken(r)

	result, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		if result != nil {
			// 订单已经落库并被标记为 FAILED，返回错误的同时把订单号带回去
			w.Header().Set("X-Order-ID", fmt.Sprint(result.Order.ID))
		}
		writeDomainError(w, r, err)
		return
	}
	if n := len(result.CompensationFailures); n > 0 {
		logger.Ctx(r.Context()).Warn().Int64("order_id", result.Order.ID).Int("compensation_failures", n).Msg("order created with unrestored inventory")
	}
	httpx.WriteJSON(w, http.StatusCreated, result.Order)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListUserOrders(r.Context(), bearerToken(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	data, err := h.service.GetOrderSnapshot(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	// 缓存中的快照原样返回，保证 TTL 内多次读取完全一致
	httpx.WriteRaw(w, http.StatusOK, data)
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	result, err := h.service.CancelOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Order cancelled successfully",
		"order_id": result.OrderID,
	})
}

func (h *OrderHandler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	next, ok := domain.ParseStatus(strings.ToLower(req.Status))
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}
	view, err := h.service.AdvanceStatus(r.Context(), id, next)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *OrderHandler) getChaos(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.service.Faults.Snapshot())
}

func (h *OrderHandler) setPaymentFail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FailPercent int `json:"fail_percent"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.SetPaymentFailureRate(req.FailPercent); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Ctx(r.Context()).Warn().Int("fail_percent", req.FailPercent).Msg("chaos: payment failure rate updated")
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Payment failure rate set to %d%%", req.FailPercent),
	})
}

// subscribe 浏览器无法自定义 websocket 头，token 放在查询参数里
func (h *OrderHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	userID, err := h.service.VerifyUser(r.Context(), token)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.stream.ServeWS(w, r, userID)
}

// writeDomainError 根据错误类型返回不同的 HTTP 状态码
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrMenuNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, httpx.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderRejected):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDownstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusBadGateway
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		status = http.StatusInternalServerError
	}
	httpx.WriteError(w, status, err.Error())
}
