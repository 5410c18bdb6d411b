package persistenceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPostOrdersReturnsStatusCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	status, err := c.PostOrders(context.Background(), []string{"anything"})
	if err != nil {
		t.Fatalf("PostOrders: %v", err)
	}
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want %d", status, http.StatusCreated)
	}
}

func TestPostTradesReturnsNon200WithoutError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	status, err := c.PostTrades(context.Background(), []string{})
	if err != nil {
		t.Fatalf("PostTrades should not error on a non-200 response: %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
}

func TestGetOrdersDecodesResult(t *testing.T) {
	type order struct {
		Hash string `json:"hash"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("market_id") != "market-1" {
			t.Errorf("market_id query param = %q, want market-1", r.URL.Query().Get("market_id"))
		}
		json.NewEncoder(w).Encode([]order{{Hash: "0xabc"}})
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	var out []order
	if err := c.GetOrders(context.Background(), "market-1", &out); err != nil {
		t.Fatalf("GetOrders: %v", err)
	}
	if len(out) != 1 || out[0].Hash != "0xabc" {
		t.Fatalf("got %+v, want one order with hash 0xabc", out)
	}
}

func TestGetOrdersErrorsOnNon200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	var out []struct{}
	if err := c.GetOrders(context.Background(), "nope", &out); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestHealthCheckOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestHealthCheckErrorsOnNon200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second)
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}
