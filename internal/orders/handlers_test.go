package orders

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclob/venue/internal/types"
)

func postOrderContext(t *testing.T, brokerBinding interface{}, req *types.OrderRequest) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	if brokerBinding != nil {
		c.Set("brokerID", brokerBinding)
	}
	return c, w
}

func TestCreateOrderRejectsForeignBroker(t *testing.T) {
	// A token bound to broker 2 cannot enter orders for broker 1; the request
	// never reaches the service.
	h := NewGinHandlers(nil)

	c, w := postOrderContext(t, int64(2), &types.OrderRequest{
		RequestID:     1,
		OrderID:       1,
		SecurityID:    "IRO3",
		Side:          "BUY",
		Quantity:      100,
		Price:         15800,
		BrokerID:      1,
		ShareholderID: 1,
	})
	h.CreateOrderHandler()(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateOrderAllowsBoundBroker(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewGinHandlers(svc)

	c, w := postOrderContext(t, int64(1), &types.OrderRequest{
		RequestID:     1,
		OrderID:       1,
		SecurityID:    "IRO3",
		Side:          "BUY",
		Quantity:      100,
		Price:         15800,
		BrokerID:      1,
		ShareholderID: 1,
	})
	h.CreateOrderHandler()(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}
