//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
)

// TestStockLifecycle walks one product through receive, reserve, commit,
// reserve and release, checking the ledger after every step.
func TestStockLifecycle(t *testing.T) {
	const productID = "p-gift-box"

	avail0, frozen0 := getStock(t, productID)

	// Receive 10 units.
	in := doPost(t, "/api/stock-in", receiveStockRequest{ProductID: productID, Quantity: 10})
	in.Body.Close()
	if in.StatusCode != http.StatusCreated {
		t.Fatalf("stock-in: expected 201, got %d", in.StatusCode)
	}
	if a, f := getStock(t, productID); a != avail0+10 || f != frozen0 {
		t.Fatalf("after receive: got (%d, %d), want (%d, %d)", a, f, avail0+10, frozen0)
	}

	// Reserve 3 and pay: the commit removes the frozen units for good.
	first := placeOrder(t, productID, 3)
	if a, f := getStock(t, productID); a != avail0+7 || f != frozen0+3 {
		t.Fatalf("after reserve: got (%d, %d), want (%d, %d)", a, f, avail0+7, frozen0+3)
	}

	pay := doPost(t, "/api/orders/"+first.OrderID+"/payment", confirmPaymentRequest{Method: "cash"})
	pay.Body.Close()
	if pay.StatusCode != http.StatusOK {
		t.Fatalf("payment: expected 200, got %d", pay.StatusCode)
	}
	if a, f := getStock(t, productID); a != avail0+7 || f != frozen0 {
		t.Fatalf("after commit: got (%d, %d), want (%d, %d)", a, f, avail0+7, frozen0)
	}

	// Reserve 4 and cancel: the reservation returns in full.
	second := placeOrder(t, productID, 4)
	if a, f := getStock(t, productID); a != avail0+3 || f != frozen0+4 {
		t.Fatalf("after second reserve: got (%d, %d), want (%d, %d)", a, f, avail0+3, frozen0+4)
	}

	cancel := doPost(t, "/api/orders/"+second.OrderID+"/cancel", struct{}{})
	cancel.Body.Close()
	if cancel.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", cancel.StatusCode)
	}
	if a, f := getStock(t, productID); a != avail0+7 || f != frozen0 {
		t.Fatalf("after release: got (%d, %d), want (%d, %d)", a, f, avail0+7, frozen0)
	}
}

// TestConcurrentOrders_NoOverselling races one more single-unit order than
// there is available stock and checks that exactly the available quantity
// gets reserved.
func TestConcurrentOrders_NoOverselling(t *testing.T) {
	const productID = "p-gift-box"

	avail, frozen := getStock(t, productID)
	if avail == 0 {
		in := doPost(t, "/api/stock-in", receiveStockRequest{ProductID: productID, Quantity: 5})
		in.Body.Close()
		if in.StatusCode != http.StatusCreated {
			t.Fatalf("stock-in: expected 201, got %d", in.StatusCode)
		}
		avail, frozen = getStock(t, productID)
	}

	body, err := json.Marshal(createOrderRequest{
		UserID: "it-racer",
		Lines:  []orderLineRequest{{ProductID: productID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	n := avail + 1
	statuses := make([]int, n)

	// Plain http calls here: test helpers must not Fatal off the test
	// goroutine.
	var wg sync.WaitGroup
	for i := int64(0); i < n; i++ {
		wg.Add(1)
		go func(i int64) {
			defer wg.Done()
			resp, err := httpClient.Post(baseURL+"/api/orders", "application/json", bytes.NewReader(body))
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	var created, conflicts int64
	for _, code := range statuses {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}

	if created != avail {
		t.Errorf("created orders: got %d, want %d", created, avail)
	}
	if conflicts != 1 {
		t.Errorf("conflicts: got %d, want 1", conflicts)
	}

	a, f := getStock(t, productID)
	if a != 0 {
		t.Errorf("available after race: got %d, want 0", a)
	}
	if f != frozen+created {
		t.Errorf("frozen after race: got %d, want %d", f, frozen+created)
	}
}
