package orders

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openclob/venue/internal/engine"
	"github.com/openclob/venue/internal/types"
	"github.com/openclob/venue/pkg/response"
)

// GinHandlers contains HTTP handlers for the order-entry endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for order-entry endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// brokerAuthorized checks an order's broker against the broker bound to the
// caller's JWT. Tokens without a broker binding pass.
func brokerAuthorized(c *gin.Context, brokerID int64) bool {
	v, ok := c.Get("brokerID")
	if !ok {
		return true
	}
	bound, ok := v.(int64)
	return !ok || bound == brokerID
}

// handleRequestError renders an engine request error: not-found lookups get a
// 404, everything else a validation failure carrying all reasons.
func handleRequestError(c *gin.Context, err error) {
	var reqErr *engine.RequestError
	if errors.As(err, &reqErr) {
		for _, reason := range reqErr.Reasons {
			if reason == engine.ReasonOrderIDNotFound {
				response.NotFound(c, reason)
				return
			}
		}
		response.ValidationFailed(c, reqErr.Reasons)
		return
	}
	response.InternalError(c, err.Error())
}

// CreateOrderHandler handles POST requests to enter new orders
// Requires a valid JWT token; request body carries the order parameters
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.OrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if !brokerAuthorized(c, req.BrokerID) {
			response.Forbidden(c, "Order does not belong to the authenticated broker")
			return
		}

		resp, err := h.service.EnterOrder(c.Request.Context(), &req, engine.EntryNew)
		if err != nil {
			handleRequestError(c, err)
			return
		}

		response.Success(c, resp)
	}
}

// UpdateOrderHandler handles PUT requests to modify resting orders
// URL parameter: order_id (authoritative over the body's order id)
func (h *GinHandlers) UpdateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid order ID")
			return
		}

		var req types.OrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		req.OrderID = orderID
		if !brokerAuthorized(c, req.BrokerID) {
			response.Forbidden(c, "Order does not belong to the authenticated broker")
			return
		}

		resp, err := h.service.EnterOrder(c.Request.Context(), &req, engine.EntryUpdate)
		if err != nil {
			handleRequestError(c, err)
			return
		}

		response.Success(c, resp)
	}
}

// DeleteOrderHandler handles DELETE requests to remove resting orders
// URL parameter: order_id; query parameters: security_id, side
func (h *GinHandlers) DeleteOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid order ID")
			return
		}

		req := types.DeleteOrderRequest{
			SecurityID: c.Query("security_id"),
			Side:       c.Query("side"),
			OrderID:    orderID,
		}
		if req.SecurityID == "" || req.Side == "" {
			response.BadRequest(c, "security_id and side query parameters are required")
			return
		}

		resp, err := h.service.DeleteOrder(c.Request.Context(), &req)
		if err != nil {
			handleRequestError(c, err)
			return
		}

		response.Success(c, resp)
	}
}

// GetOrderStatusHandler handles GET requests to retrieve persisted order state
// URL parameter: order_id; query parameter: security_id
func (h *GinHandlers) GetOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid order ID")
			return
		}
		securityID := c.Query("security_id")
		if securityID == "" {
			response.BadRequest(c, "security_id query parameter is required")
			return
		}

		record, err := h.service.GetOrder(securityID, orderID)
		if err != nil || record == nil {
			response.NotFound(c, "Order not found")
			return
		}

		response.Success(c, record)
	}
}

// ChangeMatchingStateHandler handles POST requests to switch a security's
// trading regime. Internal endpoint.
// URL parameter: security_id
func (h *GinHandlers) ChangeMatchingStateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		securityID := c.Param("security_id")

		var req types.MatchingStateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		resp, err := h.service.ChangeMatchingState(c.Request.Context(), securityID, req.State)
		if err != nil {
			handleRequestError(c, err)
			return
		}

		response.Success(c, resp)
	}
}
