package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestGetProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Goku"},{"name":"Sold Out","in_stock":false},{"name":"Iron Man","in_stock":true}]`))
	}))
	defer srv.Close()

	products, err := NewClient(srv.URL, "secret", zap.NewNop()).GetProducts(context.Background())
	if err != nil {
		t.Fatalf("GetProducts failed: %v", err)
	}
	if len(products) != 2 || products[0].Name != "Goku" || products[1].Name != "Iron Man" {
		t.Errorf("unexpected products: %+v", products)
	}
}

func TestGetProductsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", zap.NewNop()).GetProducts(context.Background()); err == nil {
		t.Error("expected an error for a 500 response")
	}
}
