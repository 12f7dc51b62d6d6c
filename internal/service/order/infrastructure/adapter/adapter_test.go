package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace/noop"

	"fooddash/internal/pkg/faults"
	"fooddash/internal/pkg/httpclient"
	"fooddash/internal/pkg/httpx"
	"fooddash/internal/pkg/mq"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
)

func newClient(timeout time.Duration) *httpclient.Client {
	return httpclient.NewClient(noop.NewTracerProvider().Tracer("test"), timeout)
}

func TestIdentityHTTPAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/validate" {
			http.NotFound(w, r)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"user_id": 7, "username": "kim"})
		case "Bearer slow":
			time.Sleep(200 * time.Millisecond)
			httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"user_id": 7})
		default:
			httpx.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		}
	}))
	defer srv.Close()

	a := NewIdentityHTTPAdapter(newClient(50*time.Millisecond), httpclient.StaticResolver(srv.URL))
	ctx := context.Background()

	uid, err := a.Verify(ctx, "good")
	if err != nil || uid != 7 {
		t.Fatalf("Verify(good) = %d, %v", uid, err)
	}
	for _, token := range []string{"", "bad", "slow"} {
		if _, err := a.Verify(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("Verify(%q) = %v, want ErrUnauthorized", token, err)
		}
	}

	down := NewIdentityHTTPAdapter(newClient(time.Second), httpclient.StaticResolver("http://127.0.0.1:1"))
	if _, err := down.Verify(ctx, "good"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("unreachable identity: %v", err)
	}
}

func restaurantStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /menus/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "1":
			httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"id": 1, "name": "Fried Chicken", "price": 18000, "inventory": 100})
		case "5":
			httpx.WriteError(w, http.StatusInternalServerError, "boom")
		default:
			httpx.WriteError(w, http.StatusNotFound, "menu not found")
		}
	})
	mux.HandleFunc("PUT /inventory/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Quantity int `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch {
		case r.PathValue("id") == "9":
			httpx.WriteError(w, http.StatusNotFound, "menu not found")
		case r.PathValue("id") == "5":
			httpx.WriteError(w, http.StatusServiceUnavailable, "downstream service unavailable")
		case req.Quantity <= 0:
			httpx.WriteError(w, http.StatusBadRequest, "quantity must be positive")
		case req.Quantity > 10:
			httpx.WriteError(w, http.StatusBadRequest, "not enough inventory")
		default:
			httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"menu_id": 1, "remaining_inventory": 10 - req.Quantity})
		}
	})
	mux.HandleFunc("PUT /inventory/{id}/restore", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Quantity int   `json:"quantity"`
			OrderID  int64 `json:"order_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
			httpx.WriteError(w, http.StatusBadRequest, "restore without order id")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"menu_id": 1, "remaining_inventory": 10 + req.Quantity})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalogHTTPAdapter(t *testing.T) {
	srv := restaurantStub(t)
	a := NewCatalogHTTPAdapter(newClient(time.Second), httpclient.StaticResolver(srv.URL))
	ctx := context.Background()

	q, err := a.GetPrice(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if q.Price != 18000 || q.Name != "Fried Chicken" || q.MenuID != 1 {
		t.Errorf("quote = %+v", q)
	}
	if _, err := a.GetPrice(ctx, 2); !errors.Is(err, domain.ErrMenuNotFound) {
		t.Errorf("unknown menu: %v", err)
	}
	if _, err := a.GetPrice(ctx, 5); !errors.Is(err, domain.ErrDownstreamUnavailable) {
		t.Errorf("5xx: %v", err)
	}
}

func TestInventoryHTTPAdapter(t *testing.T) {
	srv := restaurantStub(t)
	a := NewInventoryHTTPAdapter(newClient(time.Second), httpclient.StaticResolver(srv.URL))
	ctx := context.Background()

	remaining, err := a.Decrement(ctx, 1, 3)
	if err != nil || remaining != 7 {
		t.Fatalf("Decrement = %d, %v", remaining, err)
	}
	if remaining, err := a.Increment(ctx, 77, 1, 2); err != nil || remaining != 12 {
		t.Errorf("Increment = %d, %v", remaining, err)
	}

	tests := []struct {
		menuID int64
		qty    int
		want   error
	}{
		{1, 11, domain.ErrInsufficientStock},
		{1, 0, domain.ErrInvalidQuantity},
		{9, 1, domain.ErrMenuNotFound},
		{5, 1, domain.ErrDownstreamUnavailable},
	}
	for _, tt := range tests {
		if _, err := a.Decrement(ctx, tt.menuID, tt.qty); !errors.Is(err, tt.want) {
			t.Errorf("Decrement(%d, %d) = %v, want %v", tt.menuID, tt.qty, err, tt.want)
		}
	}

	down := NewInventoryHTTPAdapter(newClient(time.Second), httpclient.StaticResolver("http://127.0.0.1:1"))
	if _, err := down.Decrement(ctx, 1, 1); !errors.Is(err, domain.ErrDownstreamUnavailable) {
		t.Errorf("unreachable: %v", err)
	}
}

func TestPaymentSimulator(t *testing.T) {
	f := faults.NewSettings()
	p := NewPaymentSimulator(f)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if !p.Charge(ctx, 1, 100) {
			t.Fatal("payment failed with 0% failure rate")
		}
	}
	_ = f.SetPaymentFailPercent(100)
	for i := 0; i < 20; i++ {
		if p.Charge(ctx, 1, 100) {
			t.Fatal("payment succeeded with 100% failure rate")
		}
	}
}

func TestCELAdmissionPolicy(t *testing.T) {
	ctx := context.Background()
	req := port.AdmissionRequest{UserID: 7, TotalPrice: 56000, ItemCount: 2, MenuIDs: []int64{1, 3}}

	tests := []struct {
		rule  string
		admit bool
	}{
		{"", true},
		{"true", true},
		{"total_price <= 50000", false},
		{"total_price <= 100000 && item_count <= 5", true},
		{"!(4 in menu_ids)", true},
		{"3 in menu_ids", true},
		{"user_id != 7", false},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			p, err := NewCELAdmissionPolicy(tt.rule)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			err = p.Admit(ctx, req)
			if tt.admit && err != nil {
				t.Errorf("rejected: %v", err)
			}
			if !tt.admit && !errors.Is(err, domain.ErrOrderRejected) {
				t.Errorf("Admit() = %v, want ErrOrderRejected", err)
			}
		})
	}

	for _, bad := range []string{"total_price +", "total_price", "unknown_var > 1"} {
		if _, err := NewCELAdmissionPolicy(bad); err == nil {
			t.Errorf("rule %q compiled", bad)
		}
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaAdapters(t *testing.T) {
	ctx := context.Background()
	w := &fakeWriter{}

	event := domain.OrderEvent{Type: domain.EventOrderConfirmed, OrderID: 3, UserID: 7, Status: domain.StatusConfirmed}
	if err := NewNotificationKafkaAdapter(w).Publish(ctx, event); err != nil {
		t.Fatal(err)
	}
	if err := NewCompensationKafkaAdapter(w).ReportCompensationFailure(ctx, domain.CompensationFailure{OrderID: 3, MenuID: 1, Quantity: 2, Attempt: 1}); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "7" || mq.Header(w.msgs[0], mq.HeaderEventType) != domain.EventOrderConfirmed {
		t.Errorf("event message = %+v", w.msgs[0])
	}
	var got domain.CompensationFailure
	if err := json.Unmarshal(w.msgs[1].Value, &got); err != nil || got.MenuID != 1 || got.Quantity != 2 {
		t.Errorf("compensation payload = %s (%v)", w.msgs[1].Value, err)
	}
}

func TestFanoutPublisherTriesAll(t *testing.T) {
	ok := &fakeWriter{}
	broken := &fakeWriter{err: errors.New("broker down")}
	f := FanoutPublisher{NewNotificationKafkaAdapter(broken), NewNotificationKafkaAdapter(ok)}

	err := f.Publish(context.Background(), domain.OrderEvent{Type: domain.EventOrderFailed, UserID: 1})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("Publish() = %v", err)
	}
	if len(ok.msgs) != 1 {
		t.Errorf("healthy publisher skipped")
	}
}

func TestStatusHubPushesToUser(t *testing.T) {
	hub := NewStatusHub()
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, 7)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(7) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Connections(7) != 1 {
		t.Fatal("client not registered")
	}

	ctx := context.Background()
	_ = hub.Publish(ctx, domain.OrderEvent{Type: domain.EventOrderCancelled, OrderID: 99, UserID: 8})
	_ = hub.Publish(ctx, domain.OrderEvent{Type: domain.EventOrderConfirmed, OrderID: 3, UserID: 7, Status: domain.StatusConfirmed})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var got domain.OrderEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.OrderID != 3 || got.Status != domain.StatusConfirmed {
		t.Errorf("pushed event = %+v", got)
	}
}
