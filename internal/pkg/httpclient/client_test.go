package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
)

func newTestClient(timeout time.Duration) *Client {
	return NewClient(noop.NewTracerProvider().Tracer("test"), timeout)
}

func TestDoJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("method=%s content-type=%s", r.Method, r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("authorization header not forwarded")
		}
		var in map[string]int
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]int{"remaining_inventory": 100 - in["quantity"]})
	}))
	defer srv.Close()

	var out struct {
		Remaining int `json:"remaining_inventory"`
	}
	header := http.Header{"Authorization": []string{"Bearer tok"}}
	err := newTestClient(0).DoJSON(context.Background(), http.MethodPut, srv.URL+"/inventory/1", header, map[string]int{"quantity": 2}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Remaining != 98 {
		t.Errorf("remaining = %d", out.Remaining)
	}
}

func TestDoJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Not enough inventory"}`))
	}))
	defer srv.Close()

	err := newTestClient(0).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusBadRequest || se.Detail != "Not enough inventory" {
		t.Errorf("status error = %+v", se)
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
}

func TestDoJSONTimeoutBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	err := newTestClient(20*time.Millisecond).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

type fakeDiscoverer struct{}

func (fakeDiscoverer) DiscoverServiceInstance(string) (string, int, error) {
	return "10.1.2.3", 8002, nil
}

func TestResolvers(t *testing.T) {
	got, _ := StaticResolver("http://restaurant:8002/").Resolve(context.Background())
	if got != "http://restaurant:8002" {
		t.Errorf("static = %q", got)
	}
	got, _ = DiscoveryResolver{Discoverer: fakeDiscoverer{}, ServiceName: "restaurant-service"}.Resolve(context.Background())
	if got != "http://10.1.2.3:8002" {
		t.Errorf("discovery = %q", got)
	}
}
