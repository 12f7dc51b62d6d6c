package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"quantity":2,"extra":true}`))
	if err := DecodeJSON(r, &body); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v", err)
	}

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"quantity":2}`))
	if err := DecodeJSON(r, &body); err != nil || body.Quantity != 2 {
		t.Fatalf("quantity=%d err=%v", body.Quantity, err)
	}
}

func TestMiddlewareSetsRequestID(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("request id not generated")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	h.ServeHTTP(rec, req)
	if rec.Header().Get(HeaderRequestID) != "abc" {
		t.Errorf("request id = %q", rec.Header().Get(HeaderRequestID))
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var ok bool
	mux.HandleFunc("GET /menus/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = PathID(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/menus/12", nil))
	if !ok || got != 12 {
		t.Errorf("id=%d ok=%v", got, ok)
	}
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/menus/abc", nil))
	if ok {
		t.Error("non-numeric id accepted")
	}
}
