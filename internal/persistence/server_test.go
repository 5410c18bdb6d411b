package persistence

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostThenGetOrders(t *testing.T) {
	srv := NewServer(NewStore(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	order := WireOrder{
		Kind: "bid", Owner: "0x01", Nonce: 1,
		Component: WireOrderComponent{MarketID: "market-1", TimeSlot: 900},
		Hash:      "0xabc",
	}
	body, _ := json.Marshal([]WireOrder{order})

	resp, err := http.Post(ts.URL+"/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/orders?market_id=market-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var got []WireOrder
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Hash != "0xabc" {
		t.Fatalf("got %+v, want one order with hash 0xabc", got)
	}
}

func TestGetMarketNotFound(t *testing.T) {
	srv := NewServer(NewStore(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/market?market_id=nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := NewServer(NewStore(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health_check")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
