package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestProductDiscount(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{0, "0%"},
		{20, "20%"},
		{100, "100%"},
	}
	for _, tt := range tests {
		p := &Product{DiscountPercent: tt.percent}
		if got := p.Discount(); got != tt.want {
			t.Fatalf("Discount(%d) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestProductMarshalJSON(t *testing.T) {
	p := Product{
		Title:           "Cotton Shirt",
		Price:           decimal.RequireFromString("1000"),
		OriginalPrice:   decimal.RequireFromString("1250.50"),
		DiscountPercent: 20,
		Rating:          4.5,
		ProductURL:      "https://example.com/products/shirt-i1.html?a=1&b=2",
		Category:        "Men's Fashion",
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["price"] != 1000.0 {
		t.Fatalf("price = %v, want 1000", decoded["price"])
	}
	if decoded["original_price"] != 1250.5 {
		t.Fatalf("original_price = %v, want 1250.5", decoded["original_price"])
	}
	if decoded["discount"] != "20%" {
		t.Fatalf("discount = %v, want 20%%", decoded["discount"])
	}
	if v, ok := decoded["image_url"]; !ok || v != nil {
		t.Fatalf("image_url = %v (present %v), want null", v, ok)
	}
	if decoded["product_url"] != p.ProductURL {
		t.Fatalf("product_url = %v, want %s", decoded["product_url"], p.ProductURL)
	}
	if _, ok := decoded["synthetic"]; ok {
		t.Fatal("synthetic should be omitted for real records")
	}
}

func TestProductMarshalJSONSynthetic(t *testing.T) {
	p := Product{
		Title:      "Sample Product 1",
		Price:      decimal.NewFromInt(500),
		ImageURL:   "https://example.com/img.jpg",
		ProductURL: "https://example.com/c?page=1#sample-1",
		Synthetic:  true,
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["synthetic"] != true {
		t.Fatalf("synthetic = %v, want true", decoded["synthetic"])
	}
	if decoded["image_url"] != p.ImageURL {
		t.Fatalf("image_url = %v, want %s", decoded["image_url"], p.ImageURL)
	}
}
