package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"

	"fooddash/internal/pkg/cache"
	"fooddash/internal/pkg/faults"
	"fooddash/internal/service/order/application"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
	"fooddash/internal/service/order/infrastructure"
	"fooddash/internal/service/order/infrastructure/adapter"
)

type tokenIdentity struct{}

func (tokenIdentity) Verify(_ context.Context, token string) (int64, error) {
	if token == "alice" {
		return 7, nil
	}
	return 0, domain.ErrUnauthorized
}

type staticCatalog map[int64]int64

func (c staticCatalog) GetPrice(_ context.Context, id int64) (*port.MenuQuote, error) {
	p, ok := c[id]
	if !ok {
		return nil, domain.ErrMenuNotFound
	}
	return &port.MenuQuote{MenuID: id, Name: "dish", Price: p}, nil
}

type stockMap struct {
	mu    sync.Mutex
	stock map[int64]int
}

func (s *stockMap) Decrement(_ context.Context, id int64, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stock[id] < qty {
		return 0, domain.ErrInsufficientStock
	}
	s.stock[id] -= qty
	return s.stock[id], nil
}

func (s *stockMap) Increment(_ context.Context, _, id int64, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[id] += qty
	return s.stock[id], nil
}

func (s *stockMap) level(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[id]
}

func newOrderServer(t *testing.T, rule string) (*httptest.Server, *stockMap) {
	t.Helper()
	policy, err := adapter.NewCELAdmissionPolicy(rule)
	if err != nil {
		t.Fatal(err)
	}
	f := faults.NewSettings()
	stock := &stockMap{stock: map[int64]int{1: 100, 3: 1}}
	svc := application.NewOrderApplicationService(application.Dependencies{
		Repo:      infrastructure.NewMemoryOrderRepository(),
		Cache:     cache.NewReadThrough(cache.NewMemory(), nil),
		Identity:  tokenIdentity{},
		Catalog:   staticCatalog{1: 18000, 3: 20000},
		Inventory: stock,
		Payment:   adapter.NewPaymentSimulator(f),
		Admission: policy,
		Faults:    f,
		Tracer:    noop.NewTracerProvider().Tracer("test"),
	}, application.Options{})

	mux := http.NewServeMux()
	NewOrderHandler(svc, adapter.NewStatusHub()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, stock
}

func do(t *testing.T, method, url, token, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

const orderBody = `{"items":[{"menu_id":1,"quantity":2},{"menu_id":3,"quantity":1}],"address":"12 Example Street","phone":"010-1234-5678"}`

func TestCreateAndReadOrder(t *testing.T) {
	srv, stock := newOrderServer(t, "true")

	status, body := do(t, http.MethodPost, srv.URL+"/orders", "alice", orderBody)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d: %s", status, body)
	}
	var created application.OrderView
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.TotalPrice != 56000 || created.Status != domain.StatusConfirmed {
		t.Errorf("created = %+v", created)
	}
	if stock.level(1) != 98 || stock.level(3) != 0 {
		t.Errorf("stock = %d/%d", stock.level(1), stock.level(3))
	}

	url := srv.URL + "/orders/" + jsonID(created.ID)
	status, first := do(t, http.MethodGet, url, "", "")
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	_, second := do(t, http.MethodGet, url, "", "")
	if !bytes.Equal(first, second) {
		t.Errorf("repeated reads differ")
	}

	status, body = do(t, http.MethodGet, srv.URL+"/orders", "alice", "")
	if status != http.StatusOK || !strings.Contains(string(body), `"total_price":56000`) {
		t.Errorf("list = %d %s", status, body)
	}
}

func TestCreateOrderErrors(t *testing.T) {
	srv, _ := newOrderServer(t, "total_price <= 100000")

	tests := []struct {
		name   string
		token  string
		body   string
		status int
	}{
		{"no token", "", orderBody, http.StatusUnauthorized},
		{"bad token", "mallory", orderBody, http.StatusUnauthorized},
		{"unknown menu", "alice", `{"items":[{"menu_id":9,"quantity":1}]}`, http.StatusNotFound},
		{"zero quantity", "alice", `{"items":[{"menu_id":1,"quantity":0}]}`, http.StatusBadRequest},
		{"empty", "alice", `{"items":[]}`, http.StatusBadRequest},
		{"malformed", "alice", `{"items":`, http.StatusBadRequest},
		{"rejected", "alice", `{"items":[{"menu_id":1,"quantity":6}]}`, http.StatusUnprocessableEntity},
		{"out of stock", "alice", `{"items":[{"menu_id":3,"quantity":2}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodPost, srv.URL+"/orders", tt.token, tt.body)
			if status != tt.status {
				t.Errorf("status = %d, want %d: %s", status, tt.status, body)
			}
			var e map[string]interface{}
			if err := json.Unmarshal(body, &e); err != nil || e["detail"] == nil {
				t.Errorf("body = %s", body)
			}
		})
	}
}

func TestCancelAndAdvance(t *testing.T) {
	srv, stock := newOrderServer(t, "true")
	_, body := do(t, http.MethodPost, srv.URL+"/orders", "alice", `{"items":[{"menu_id":1,"quantity":2}]}`)
	var created application.OrderView
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	base := srv.URL + "/orders/" + jsonID(created.ID)

	status, body := do(t, http.MethodPatch, base+"/status", "", `{"status":"preparing"}`)
	if status != http.StatusOK || !strings.Contains(string(body), `"status":"preparing"`) {
		t.Errorf("advance = %d %s", status, body)
	}
	if status, _ := do(t, http.MethodPatch, base+"/status", "", `{"status":"unknown"}`); status != http.StatusBadRequest {
		t.Errorf("unknown status = %d", status)
	}
	if status, _ := do(t, http.MethodPatch, base+"/status", "", `{"status":"delivered"}`); status != http.StatusBadRequest {
		t.Errorf("skip ahead = %d", status)
	}

	status, body = do(t, http.MethodPost, base+"/cancel", "", "")
	if status != http.StatusOK {
		t.Fatalf("cancel = %d %s", status, body)
	}
	var msg map[string]interface{}
	_ = json.Unmarshal(body, &msg)
	if msg["message"] != "Order cancelled successfully" || msg["order_id"] != float64(created.ID) {
		t.Errorf("cancel body = %s", body)
	}
	if stock.level(1) != 100 {
		t.Errorf("stock = %d, want 100", stock.level(1))
	}

	if status, _ := do(t, http.MethodPost, base+"/cancel", "", ""); status != http.StatusBadRequest {
		t.Errorf("second cancel = %d", status)
	}
	if status, _ := do(t, http.MethodPost, srv.URL+"/orders/999/cancel", "", ""); status != http.StatusNotFound {
		t.Errorf("unknown cancel = %d", status)
	}
	if status, _ := do(t, http.MethodGet, srv.URL+"/orders/abc", "", ""); status != http.StatusBadRequest {
		t.Errorf("bad id = %d", status)
	}
}

func TestPaymentChaosEndpoint(t *testing.T) {
	srv, stock := newOrderServer(t, "true")

	status, body := do(t, http.MethodPost, srv.URL+"/chaos/payment_fail", "", `{"fail_percent":100}`)
	if status != http.StatusOK || !strings.Contains(string(body), "Payment failure rate set to 100%") {
		t.Fatalf("chaos = %d %s", status, body)
	}
	if status, _ := do(t, http.MethodPost, srv.URL+"/chaos/payment_fail", "", `{"fail_percent":101}`); status != http.StatusBadRequest {
		t.Errorf("out of range = %d", status)
	}
	_, body = do(t, http.MethodGet, srv.URL+"/chaos", "", "")
	if !strings.Contains(string(body), `"payment_fail_percent":100`) {
		t.Errorf("chaos settings = %s", body)
	}

	// 支付失败仍然是 201，订单为 FAILED，库存全部归还
	status, body = do(t, http.MethodPost, srv.URL+"/orders", "alice", orderBody)
	if status != http.StatusCreated || !strings.Contains(string(body), `"status":"failed"`) {
		t.Errorf("create = %d %s", status, body)
	}
	if stock.level(1) != 100 || stock.level(3) != 1 {
		t.Errorf("stock = %d/%d", stock.level(1), stock.level(3))
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
