package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/logger"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/catalog"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/checkout"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/events"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/notify"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/orderclient"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "s3cret"

type fakeCatalog struct {
	products map[int64]domain.Product
	err      error
}

func (c fakeCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.Product, 0, len(c.products))
	for id := int64(1); id <= int64(len(c.products)); id++ {
		out = append(out, c.products[id])
	}
	return out, nil
}

func (c fakeCatalog) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	if c.err != nil {
		return domain.Product{}, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type mockOrderCreator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockOrderCreator) CreateOrder(_ context.Context, req ordersapi.OrderRequest) (ordersapi.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return ordersapi.Order{}, m.err
	}
	return ordersapi.Order{ID: "ord-1", CustomerName: req.CustomerName, Items: req.Items, TotalAmount: req.TotalAmount, Status: "pending"}, nil
}

type testEnv struct {
	handler http.Handler
	kv      *storage.MemoryStorage
	orders  *mockOrderCreator
	relay   *notify.Relay
	display *notify.Display
}

func newTestEnv(t *testing.T, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()
	log := logger.Discard()
	sale := decimal.RequireFromString("6.90")
	cat := fakeCatalog{products: map[int64]domain.Product{
		1: {ID: 1, Name: "Argan Oil", Names: map[string]string{"fr": "Huile d'argan"}, Price: decimal.RequireFromString("24.90")},
		2: {ID: 2, Name: "Mint Tea", Price: decimal.RequireFromString("8.50"), SalePrice: &sale},
	}}

	env := &testEnv{kv: storage.NewMemoryStorage(), orders: &mockOrderCreator{}, relay: notify.NewRelay()}
	env.display = notify.NewDisplay(env.relay, notify.DisplayConfig{TTL: time.Minute}, log)
	t.Cleanup(env.display.Close)

	carts := NewCarts(env.kv, log)
	submitter := checkout.NewSubmitter(env.orders, events.NewBus(log), env.relay, log)
	cfg := RouterConfig{RequestTimeout: 5 * time.Second, AdminToken: testAdminToken}
	for _, opt := range opts {
		opt(&cfg)
	}
	env.handler = NewRouter(
		cfg,
		NewProductHandler(cat, time.Second, log),
		NewCartHandler(carts, cat, time.Second, log),
		NewCheckoutHandler(carts, submitter, time.Second, log),
		NewAdminHandler(env.display, log),
	)
	return env
}

// client replays the session cookie like a browser would
type client struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.env.handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartDTO {
	t.Helper()
	var c CartDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func adminRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(AdminTokenHeader, testAdminToken)
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProducts_Localized(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?lang=fr", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fr", rec.Header().Get("Content-Language"))
	var products []ProductDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "Huile d'argan", products[0].Name)
	assert.Equal(t, "Mint Tea", products[1].Name)
	require.NotNil(t, products[1].SalePrice)
	assert.Equal(t, "6.90", products[1].DisplayPrice)
	assert.Equal(t, "8.50", products[1].Price)
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/77", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_SessionScopedAndPersisted(t *testing.T) {
	env := newTestEnv(t)
	alice := &client{t: t, env: env}
	bob := &client{t: t, env: env}

	rec := alice.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, alice.cookie)

	rec = alice.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 3})
	c := decodeCart(t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, "124.50", c.Total)

	// a new request with the same cookie reloads from storage
	c = decodeCart(t, alice.do(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, 5, c.Count)

	c = decodeCart(t, bob.do(http.MethodGet, "/api/cart", nil))
	assert.Empty(t, c.Items)
	assert.NotEqual(t, alice.cookie.Value, bob.cookie.Value)
}

func TestCart_AddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 99, Quantity: 1}).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 0, Quantity: 1}).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 100}).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: -1}).Code)

	// omitted quantity means one
	rec := c.do(http.MethodPost, "/api/cart/items", map[string]int64{"productId": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	cart := decodeCart(t, rec)
	assert.Equal(t, 1, cart.Count)
	// totals use the base price even when a sale price is set
	assert.Equal(t, "8.50", cart.Total)
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}
	c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 1})
	c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 2, Quantity: 1})

	cart := decodeCart(t, c.do(http.MethodPatch, "/api/cart/items/2", map[string]int{"quantity": 4}))
	assert.Equal(t, 5, cart.Count)
	assert.Equal(t, int64(2), cart.Items[1].ProductID)

	cart = decodeCart(t, c.do(http.MethodPatch, "/api/cart/items/1", map[string]int{"quantity": 0}))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPatch, "/api/cart/items/2", map[string]string{}).Code)

	rec := c.do(http.MethodDelete, "/api/cart/items/2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)

	// removing again is a no-op
	assert.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/cart/items/2", nil).Code)

	c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 1})
	cart = decodeCart(t, c.do(http.MethodDelete, "/api/cart", nil))
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Total)
}

func checkoutBody() CheckoutRequestDTO {
	return CheckoutRequestDTO{CustomerName: "Amina", CustomerPhone: "+212600000000", DeliveryAddress: "Rabat"}
}

func TestCheckout_SuccessClearsCartAndNotifiesAdmin(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}
	c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})

	rec := c.do(http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order ordersapi.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "49.80", order.TotalAmount)

	assert.Empty(t, decodeCart(t, c.do(http.MethodGet, "/api/cart", nil)).Items)

	list := env.display.List()
	require.Len(t, list, 1)
	assert.Equal(t, "ord-1", list[0].OrderID)
	assert.Equal(t, "49.80", list[0].Amount.StringFixed(2))
}

func TestCheckout_FailureKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	env.orders.err = errors.New("connection refused")
	c := &client{t: t, env: env}
	c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})

	rec := c.do(http.MethodPost, "/api/checkout", checkoutBody())
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	assert.Equal(t, 2, decodeCart(t, c.do(http.MethodGet, "/api/cart", nil)).Count)
	assert.Empty(t, env.display.List())
}

func TestCheckout_RejectedOrder(t *testing.T) {
	env := newTestEnv(t)
	env.orders.err = &orderclient.APIError{StatusCode: http.StatusBadRequest, Message: "totalAmount mismatch"}
	c := &client{t: t, env: env}
	c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 1})

	rec := c.do(http.MethodPost, "/api/checkout", checkoutBody())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "totalAmount mismatch")
}

func TestCheckout_EmptyCartAndInvalidCustomer(t *testing.T) {
	env := newTestEnv(t)
	c := &client{t: t, env: env}

	rec := c.do(http.MethodPost, "/api/checkout", checkoutBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty_cart")

	c.do(http.MethodPost, "/api/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 1})
	rec = c.do(http.MethodPost, "/api/checkout", CheckoutRequestDTO{CustomerName: "Amina"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_customer")
	assert.Equal(t, 0, env.orders.calls)
}

func TestAdmin_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/notifications", nil)
	req.Header.Set(AdminTokenHeader, "wrong")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/notifications?token="+testAdminToken, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_EmptyConfiguredTokenLocksRoutes(t *testing.T) {
	h := AdminTokenMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/notifications", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_MarkReadAndDismiss(t *testing.T) {
	env := newTestEnv(t)
	env.relay.Publish(notify.NewOrder{OrderID: "a", Amount: decimal.NewFromInt(1)})
	env.relay.Publish(notify.NewOrder{OrderID: "b", Amount: decimal.NewFromInt(2)})

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, adminRequest(http.MethodGet, "/admin/notifications"))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []NotificationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{"1.00", "2.00"}, []string{list[0].Amount, list[1].Amount})

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/admin/notifications/"+list[0].ID+"/read"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, adminRequest(http.MethodDelete, "/admin/notifications/"+list[1].ID))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, adminRequest(http.MethodDelete, "/admin/notifications/"+list[1].ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, env.display.List())
}

func TestAdmin_FeedStreamsNewOrders(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/notifications/ws?token=" + testAdminToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.display.Watchers() == 1 }, time.Second, 5*time.Millisecond)

	env.relay.Publish(notify.NewOrder{OrderID: "ord-7", CustomerName: "Sara", Amount: decimal.RequireFromString("12.5")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg NotificationDTO
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, notify.TypeNewOrder, msg.Type)
	assert.Equal(t, "ord-7", msg.OrderID)
	assert.Equal(t, "Sara", msg.CustomerName)
	assert.Equal(t, "12.50", msg.Amount)
	assert.False(t, msg.Read)

	shown := env.display.List()
	require.Len(t, shown, 1)
	assert.Equal(t, shown[0].ID, msg.ID)

	// the pushed id drives the REST routes
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/admin/notifications/"+msg.ID+"/read"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.display.List())

	conn.Close()
	require.Eventually(t, func() bool { return env.display.Watchers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAdmin_FeedRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/notifications/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckout_RateLimitedPerSession(t *testing.T) {
	env := newTestEnv(t, func(c *RouterConfig) { c.CheckoutLimiter = NewSessionLimiter(1, 1) })
	alice := &client{t: t, env: env}
	bob := &client{t: t, env: env}

	rec := alice.do(http.MethodPost, "/api/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "rejected requests still spend a token")

	rec = alice.do(http.MethodPost, "/api/checkout", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = bob.do(http.MethodPost, "/api/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.orders.calls)
}

func TestCORS(t *testing.T) {
	const origin = "https://shop.example.com"
	env := newTestEnv(t, func(c *RouterConfig) { c.AllowedOrigins = []string{origin} })

	req := httptest.NewRequest(http.MethodOptions, "/api/cart/items", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, origin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
