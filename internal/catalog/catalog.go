// Package catalog provides the ordered list of products offered in the
// website ordering flow. The list is loaded once at startup.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"posterbot/pkg/api"
)

// FallbackProduct is offered when no catalog could be loaded so the
// website flow still works.
const FallbackProduct = "Generic Website Product"

type Provider interface {
	ListProducts() []string
}

// Static is an immutable product list.
type Static struct {
	products []string
}

// NewStatic keeps names in order, skipping blanks. An empty list becomes
// the single fallback product.
func NewStatic(names []string) *Static {
	products := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			products = append(products, n)
		}
	}
	if len(products) == 0 {
		products = []string{FallbackProduct}
	}
	return &Static{products: products}
}

// ListProducts returns a copy; callers may modify it.
func (s *Static) ListProducts() []string {
	out := make([]string, len(s.products))
	copy(out, s.products)
	return out
}

type fileProduct struct {
	Name string `json:"name"`
}

// LoadFile reads a products.json file: an array of {"name": ...} objects.
func LoadFile(path string) (*Static, error) {
	const operation = "catalog.LoadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	var items []fileProduct
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%s: failed to decode %s: %w", operation, path, err)
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return NewStatic(names), nil
}

// Load builds the catalog from the shop API when apiClient is set, then
// from the file at path. Any failure falls back to the next source and
// finally to FallbackProduct; loading never fails the bot.
func Load(ctx context.Context, apiClient *api.Client, path string, logger *zap.Logger) *Static {
	if apiClient != nil {
		products, err := apiClient.GetProducts(ctx)
		if err == nil && len(products) > 0 {
			names := make([]string, len(products))
			for i, p := range products {
				names[i] = p.Name
			}
			logger.Info("Loaded catalog from shop API", zap.Int("products", len(names)))
			return NewStatic(names)
		}
		logger.Warn("Failed to load catalog from shop API", zap.Error(err))
	}

	if path != "" {
		s, err := LoadFile(path)
		switch {
		case err == nil:
			logger.Info("Loaded catalog file", zap.String("path", path), zap.Int("products", len(s.products)))
			return s
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("Catalog file not found", zap.String("path", path))
		default:
			logger.Error("Failed to load catalog file", zap.String("path", path), zap.Error(err))
		}
	}

	return NewStatic(nil)
}
