//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 6 {
		t.Fatalf("expected 6 products, got %d", len(products))
	}

	byID := make(map[string]productResponse, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	beans, ok := byID["p-espresso-beans-1kg"]
	if !ok {
		t.Fatal("seeded product p-espresso-beans-1kg missing")
	}
	if beans.SellingPrice != "14.90" {
		t.Errorf("sellingPrice: got %s, want 14.90", beans.SellingPrice)
	}
	if beans.CostPrice != "8.50" {
		t.Errorf("costPrice: got %s, want 8.50", beans.CostPrice)
	}

	kettle, ok := byID["p-drip-kettle"]
	if !ok {
		t.Fatal("seeded product p-drip-kettle missing")
	}
	if kettle.Active {
		t.Error("p-drip-kettle should be inactive")
	}
}

func TestGetProduct_IncludesStock(t *testing.T) {
	resp := doGet(t, "/api/products/p-ceramic-mug")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name != "Ceramic Mug" {
		t.Errorf("name: got %q, want Ceramic Mug", p.Name)
	}
	if p.Available == nil {
		t.Error("available not present on single product read")
	}
	if p.Frozen == nil {
		t.Error("frozen not present on single product read")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/p-unknown")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Error != "product_not_found" {
		t.Errorf("error: got %q, want product_not_found", body.Error)
	}
}
